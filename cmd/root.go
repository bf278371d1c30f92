package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"pdfdigest/internal/config"
	"pdfdigest/internal/logger"
)

var version = "1.0.0"

// appConfig is the configuration loaded by main before Execute.
var appConfig = config.Default()

var rootCmd = &cobra.Command{
	Use:   "pdfdigest",
	Short: "pdfdigest - extract and summarize text from ZIP archives of PDFs",
	Long: `pdfdigest unpacks ZIP archives of PDF documents, extracts the text of every
document (falling back to OCR when a page has no text layer), writes one .txt
file per document and asks a language model to summarize the result.

Settings are read from config.yaml (or CONFIG_FILE), then from environment
variables, and finally from command flags.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("pdfdigest executed")

		fmt.Println("Welcome to pdfdigest!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

// Execute runs the CLI with the loaded configuration.
func Execute(cfg *config.Config) {
	log := logger.WithComponent("cmd")
	if cfg != nil {
		appConfig = cfg
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
