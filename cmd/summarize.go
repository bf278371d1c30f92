package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"pdfdigest/internal/logger"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [dir]",
	Short: "Summarize the .txt files of an already extracted directory",
	Long: `Concatenate every .txt file under the directory, ask the configured language
model to summarize it and write the result to resumen_final.txt in the same
directory. The summary is translated when SUMMARY_TRANSLATE is enabled.

Providers:
  ollama - local Ollama server (LLM_BASE_URL, default http://localhost:11434)
  openai - OpenAI or any compatible API (OPENAI_API_KEY, optional LLM_BASE_URL)`,
	Example: `  # Summarize a directory produced by extract
  pdfdigest summarize output

  # Summarize without translating
  pdfdigest summarize output --no-translate --prompt "Summarize in five bullet points."`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().String("prompt", "", "Summary instruction (default: summary_prompt from config)")
	summarizeCmd.Flags().Bool("no-translate", false, "Skip the translation call")
	summarizeCmd.Flags().Int("timeout", 0, "Timeout in seconds (0 = none)")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summarize")

	dir := args[0]
	prompt := flagOrString(cmd.Flags(), "prompt", appConfig.SummaryPrompt)
	noTranslate, _ := cmd.Flags().GetBool("no-translate")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg := *appConfig
	if noTranslate {
		cfg.SummaryTranslate = false
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	summarizer, err := newSummarizer(&cfg, log)
	if err != nil {
		return err
	}

	result, err := summarizer.Summarize(ctx, dir, prompt)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Summary failed")
		return fmt.Errorf("summary failed: %w", err)
	}

	fmt.Println(result.Line())
	return nil
}
