package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"pdfdigest/internal/batch"
	"pdfdigest/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [zip-file]",
	Short: "Extract the PDFs of one ZIP archive to text and summarize them",
	Long: `Unpack one ZIP archive into the output directory, write a .txt file for every
PDF found inside it and summarize the extracted text.

Text is read from each page's text layer. When any page of a document has no
text layer, the whole document is rasterized and run through OCR instead.
Text files are written flat into the output directory, named after the PDF.

The archive path defaults to archive_path / ARCHIVE_PATH from the configuration.`,
	Example: `  # Extract an archive into ./output and summarize it
  pdfdigest extract ordinances.zip

  # Keep the extracted PDFs and skip the summary
  pdfdigest extract ordinances.zip -o extracted --keep-pdfs --no-summary

  # Use a custom summary instruction
  pdfdigest extract ordinances.zip --prompt "List every tax rate mentioned."`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output-dir", "o", "", "Output directory (default: output_dir from config)")
	extractCmd.Flags().Bool("keep-pdfs", false, "Keep the extracted source PDFs")
	extractCmd.Flags().String("prompt", "", "Summary instruction (default: summary_prompt from config)")
	extractCmd.Flags().Bool("no-summary", false, "Skip the summary step")
	extractCmd.Flags().Int("timeout", 0, "Overall timeout in seconds (0 = none)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	archivePath := appConfig.ArchivePath
	if len(args) == 1 {
		archivePath = args[0]
	}
	if archivePath == "" {
		return fmt.Errorf("no archive given: pass a ZIP file or set ARCHIVE_PATH")
	}

	outputDir := flagOrString(cmd.Flags(), "output-dir", appConfig.OutputDir)
	keepPDFs := flagOrBool(cmd.Flags(), "keep-pdfs", appConfig.KeepSourcePDFs)
	prompt := flagOrString(cmd.Flags(), "prompt", appConfig.SummaryPrompt)
	noSummary, _ := cmd.Flags().GetBool("no-summary")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	log.Info().
		Str("archive", archivePath).
		Str("output_dir", outputDir).
		Bool("keep_source_pdfs", keepPDFs).
		Bool("summary", !noSummary).
		Msg("Starting archive extraction")

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

	outcome := p.orchestrator().ProcessOne(ctx, archivePath, outputDir, keepPDFs, prompt)

	fmt.Println(strings.Repeat("=", 80))
	for _, line := range outcome.Lines() {
		fmt.Println(line)
	}
	fmt.Println(strings.Repeat("=", 80))

	return outcomeError(outcome)
}

// outcomeError turns an archive-level or summary failure into the command's error.
func outcomeError(outcome batch.Outcome) error {
	if outcome.Report.Failed() {
		return fmt.Errorf("archive %s failed: %w", outcome.Archive, outcome.Report.Err())
	}
	if outcome.SummaryErr != nil {
		return fmt.Errorf("summary for %s failed: %w", outcome.Archive, outcome.SummaryErr)
	}
	return nil
}
