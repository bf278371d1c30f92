package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"pdfdigest/internal/logger"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder]",
	Short: "Process every ZIP archive in a folder",
	Long: `Process every .zip file directly inside the folder, one after another.

Each archive is extracted into its own subdirectory of the output directory,
named after the archive, and summarized there. Subfolders are not searched.
A corrupt archive is reported and skipped; the remaining archives are still
processed.`,
	Example: `  # Process all archives in ./inbox into ./output
  pdfdigest batch inbox

  # Keep the source PDFs next to the text files
  pdfdigest batch inbox -o extracted --keep-pdfs`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output-dir", "o", "", "Output directory (default: output_dir from config)")
	batchCmd.Flags().Bool("keep-pdfs", false, "Keep the extracted source PDFs")
	batchCmd.Flags().String("prompt", "", "Summary instruction (default: summary_prompt from config)")
	batchCmd.Flags().Bool("no-summary", false, "Skip the summary step")
	batchCmd.Flags().Int("timeout", 0, "Overall timeout in seconds (0 = none)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch-cmd")

	inputDir := args[0]
	outputDir := flagOrString(cmd.Flags(), "output-dir", appConfig.OutputDir)
	keepPDFs := flagOrBool(cmd.Flags(), "keep-pdfs", appConfig.KeepSourcePDFs)
	prompt := flagOrString(cmd.Flags(), "prompt", appConfig.SummaryPrompt)
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	p, err := newPipeline(ctx, appConfig, !noSummary, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR engine")
		}
	}()

	outcomes, err := p.orchestrator().ProcessAll(ctx, inputDir, outputDir, keepPDFs, prompt)
	if err != nil {
		log.Error().Err(err).Str("input_dir", inputDir).Msg("Batch setup failed")
		return fmt.Errorf("batch failed: %w", err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Batch results for %s\n", inputDir)
	fmt.Println(strings.Repeat("=", 80))

	failedArchives, documents, failedDocuments := 0, 0, 0
	for _, outcome := range outcomes {
		fmt.Printf("\n%s\n", outcome.Archive)
		for _, line := range outcome.Lines() {
			fmt.Printf("  %s\n", line)
		}

		if outcome.Failed() {
			failedArchives++
		}
		documents += len(outcome.Report.Entries())
		failedDocuments += outcome.Report.FailedDocuments()
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Archives: %d (%d failed)\n", len(outcomes), failedArchives)
	fmt.Printf("Documents: %d (%d with errors)\n", documents, failedDocuments)
	fmt.Println(strings.Repeat("=", 80))

	if len(outcomes) == 0 {
		log.Warn().Str("input_dir", inputDir).Msg("No ZIP archives found")
	}

	return nil
}
