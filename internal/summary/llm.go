package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"pdfdigest/internal/logger"
)

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	// Provider is "ollama" (default) or "openai".
	Provider string

	// Model is the model name, e.g. "llama2" or "gpt-4o-mini".
	Model string

	// BaseURL is the server URL. Empty uses the provider default.
	BaseURL string

	// APIKey is required for the openai provider.
	APIKey string

	// Temperature is the sampling temperature.
	Temperature float32

	// MaxRetries is the number of attempts for the openai provider.
	MaxRetries int
}

// NewLLM creates the configured backend. The client is created once here and
// shared by every summary of a run.
func NewLLM(cfg LLMConfig) (LLM, error) {
	const op = "NewLLM"

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "ollama":
		return NewOllamaLLM(cfg)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s: OPENAI_API_KEY is required for the openai provider", op)
		}
		return NewOpenAILLM(cfg), nil
	default:
		return nil, fmt.Errorf("%s: unknown LLM provider %q (use ollama or openai)", op, cfg.Provider)
	}
}

// OllamaLLM talks to a local Ollama server through langchaingo.
type OllamaLLM struct {
	llm         *ollama.LLM
	temperature float64
}

// NewOllamaLLM creates an Ollama backend. Defaults: model llama2 at http://localhost:11434.
func NewOllamaLLM(cfg LLMConfig) (*OllamaLLM, error) {
	model := cfg.Model
	if model == "" {
		model = "llama2"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("NewOllamaLLM: failed to create client: %w", err)
	}
	return &OllamaLLM{llm: llm, temperature: float64(cfg.Temperature)}, nil
}

// Complete implements LLM.
func (o *OllamaLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(o.temperature))
}

// OpenAILLM talks to the OpenAI chat completions API or any compatible server.
type OpenAILLM struct {
	client *openai.Client
	config LLMConfig
	log    zerolog.Logger
}

// NewOpenAILLM creates an OpenAI backend.
func NewOpenAILLM(cfg LLMConfig) *OpenAILLM {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &OpenAILLM{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		log:    logger.WithComponent("summary-openai"),
	}
}

// Complete implements LLM. Failed requests and responses with no choices or
// blank content are retried up to MaxRetries attempts.
func (o *OpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "Complete"
	log := logger.ForContext(ctx, o.log)

	log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", o.config.Model).
		Float32("temperature", o.config.Temperature).
		Msg("Sending completion request")

	var lastErr error
	for attempt := 1; attempt <= o.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.config.Model,
			Temperature: o.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", o.config.MaxRetries).
				Msg("Completion request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			lastErr = fmt.Errorf("empty response content")
			log.Warn().
				Int("attempt", attempt).
				Int("max_retries", o.config.MaxRetries).
				Msg("Empty completion, retrying")
			continue
		}

		return content, nil
	}

	return "", fmt.Errorf("%s: all %d attempts failed, last error: %w", op, o.config.MaxRetries, lastErr)
}
