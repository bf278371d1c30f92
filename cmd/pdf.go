package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/extract"
	"pdfdigest/internal/logger"
	"pdfdigest/internal/pdftext"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [pdf-file]",
	Short: "Extract the text of a single PDF",
	Long: `Extract the text of one PDF file the same way archives are processed.

Every page is read from its text layer. If any page has no text layer, the
whole document is rasterized and recognized with the configured OCR engine:

  tesseract - local Tesseract (default), languages from OCR_LANGUAGES
  vision    - Google Cloud Vision, requires GOOGLE_APPLICATION_CREDENTIALS
              or GOOGLE_CREDENTIALS`,
	Example: `  # Print the text of ordinance.pdf
  pdfdigest pdf ordinance.pdf

  # Save extracted text to file
  pdfdigest pdf ordinance.pdf -o ordinance.txt

  # Include metadata and output as JSON
  pdfdigest pdf scan.pdf --metadata --json -o result.json

  # Process with custom timeout
  pdfdigest pdf large-document.pdf --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

// PDFOutput represents the JSON output structure when --json flag is used
type PDFOutput struct {
	Text               string           `json:"text"`
	Strategy           extract.Strategy `json:"strategy"`
	PageCount          int              `json:"page_count,omitempty"`
	FallbackPage       int              `json:"fallback_page,omitempty"`
	ProcessedAt        time.Time        `json:"processed_at"`
	ProcessingDuration string           `json:"processing_duration"`
	FileName           string           `json:"file_name"`
	FileSize           int64            `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	pdfCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	pdfCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	pdfCmd.Flags().Bool("json", false, "Output as JSON")
	pdfCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runPDF(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("pdf")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("metadata", includeMetadata).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting PDF extraction")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	extractor, closeOCR, err := newDocumentExtractor(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeOCR(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR engine")
		}
	}()

	processedAt := time.Now()
	result := extractor.Extract(ctx, pdfPath)
	if !result.OK() {
		return handleExtractError(result.Err, log)
	}

	// The text parser only reports pages it reached; pdfcpu counts them all.
	pageCount := result.Pages
	if includeMetadata || jsonOutput {
		if n, err := pdftext.PageCount(pdfPath); err != nil {
			log.Warn().Err(err).Str("file", pdfPath).Msg("Failed to count pages")
		} else {
			pageCount = n
		}
	}

	log.Info().
		Str("strategy", string(result.Strategy)).
		Int("page_count", pageCount).
		Dur("duration", result.Duration).
		Int("text_length", len(result.Text)).
		Msg("PDF extraction completed successfully")

	output := PDFOutput{
		Text:               result.Text,
		Strategy:           result.Strategy,
		PageCount:          pageCount,
		FallbackPage:       result.FallbackPage,
		ProcessedAt:        processedAt,
		ProcessingDuration: result.Duration.String(),
		FileName:           filepath.Base(fileInfo.Name()),
		FileSize:           fileInfo.Size(),
	}
	return outputResults(output, outputPath, jsonOutput, includeMetadata, log)
}

// validatePDFFile checks if the file exists, is readable, and is not empty
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	return fileInfo, nil
}

// handleExtractError provides user-friendly error messages for extraction failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Str("kind", docerr.KindOf(err).String()).Msg("PDF extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("PDF extraction timed out. Try increasing --timeout or setting DOCUMENT_TIMEOUT")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("PDF extraction was canceled")
	case errors.Is(err, docerr.ErrDocumentRead):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or use OCR_ENGINE=tesseract: %w", err)
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, docerr.ErrOCR):
		return fmt.Errorf("OCR failed. Check that the OCR engine and its language data are installed: %w", err)
	default:
		return fmt.Errorf("PDF extraction failed: %w", err)
	}
}

// outputResults formats and outputs the extraction results
func outputResults(result PDFOutput, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var output strings.Builder
	var outputData []byte
	var err error

	if jsonOutput {
		outputData, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		if includeMetadata {
			output.WriteString(fmt.Sprintf("=== Text of %s ===\n", result.FileName))
			output.WriteString(fmt.Sprintf("File size: %d bytes\n", result.FileSize))
			if result.PageCount > 0 {
				output.WriteString(fmt.Sprintf("Pages: %d\n", result.PageCount))
			}
			output.WriteString(fmt.Sprintf("Strategy: %s\n", result.Strategy))
			if result.FallbackPage > 0 {
				output.WriteString(fmt.Sprintf("OCR triggered by page: %d\n", result.FallbackPage))
			}
			output.WriteString(fmt.Sprintf("Processing time: %s\n", result.ProcessingDuration))
			output.WriteString(fmt.Sprintf("Processed at: %s\n", result.ProcessedAt.Format(time.RFC3339)))
			output.WriteString("\n=== Extracted Text ===\n\n")
		}

		output.WriteString(result.Text)
		outputData = []byte(output.String())
	}

	if outputPath != "" {
		err = os.WriteFile(outputPath, outputData, 0o644)
		if err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("Extracted text written to file")
	} else {
		_, err = os.Stdout.Write(outputData)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}

		// JSON output already ends cleanly
		if !jsonOutput {
			fmt.Println()
		}
	}

	return nil
}
