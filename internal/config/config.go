package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"pdfdigest/internal/logger"
	"pdfdigest/internal/summary"
)

// DefaultFile is the YAML config file read when CONFIG_FILE is not set.
const DefaultFile = "config.yaml"

// DefaultSummaryPrompt is used when neither the file nor the environment supply one.
const DefaultSummaryPrompt = "Summarize the following documents, keeping the key facts, dates and amounts."

type Config struct {
	// Pipeline Configuration
	ArchivePath    string `yaml:"archive_path"`
	OutputDir      string `yaml:"output_dir"`
	KeepSourcePDFs bool   `yaml:"keep_source_pdfs"`
	SummaryPrompt  string `yaml:"summary_prompt"`

	// OCR Configuration
	OCREngine       string        `yaml:"ocr_engine"`
	OCRLanguages    []string      `yaml:"ocr_languages"`
	OCRDPI          float64       `yaml:"ocr_dpi"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`

	// LLM Configuration
	LLMProvider    string  `yaml:"llm_provider"`
	LLMModel       string  `yaml:"llm_model"`
	LLMBaseURL     string  `yaml:"llm_base_url"`
	OpenAIAPIKey   string  `yaml:"-"`
	LLMTemperature float32 `yaml:"llm_temperature"`
	LLMMaxRetries  int     `yaml:"llm_max_retries"`

	// Summary Configuration
	SummaryTranslate bool   `yaml:"summary_translate"`
	SummaryLanguage  string `yaml:"summary_language"`

	// Logging Configuration
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

// Default returns the configuration used before the file and environment are applied.
func Default() *Config {
	return &Config{
		OutputDir:        "output",
		SummaryPrompt:    DefaultSummaryPrompt,
		OCREngine:        "tesseract",
		OCRLanguages:     []string{"eng"},
		LLMProvider:      "ollama",
		LLMTemperature:   0.2,
		LLMMaxRetries:    3,
		SummaryTranslate: true,
		SummaryLanguage:  "Spanish",
		LogLevel:         "info",
		LogFormat:        "console",
		LogTimeFormat:    "2006-01-02T15:04:05Z07:00",
		LogOutput:        "stderr",
	}
}

// Load reads the YAML file at path, then applies environment overrides. An
// empty path means CONFIG_FILE or config.yaml. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getEnv("CONFIG_FILE", DefaultFile)
	}

	config := Default()
	if err := config.loadFile(path); err != nil {
		return nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("config environment invalid: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ArchivePath = getEnv("ARCHIVE_PATH", c.ArchivePath)
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.SummaryPrompt = getEnv("SUMMARY_PROMPT", c.SummaryPrompt)
	c.OCREngine = getEnv("OCR_ENGINE", c.OCREngine)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.SummaryLanguage = getEnv("SUMMARY_LANGUAGE", c.SummaryLanguage)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogTimeFormat = getEnv("LOG_TIME_FORMAT", c.LogTimeFormat)
	c.LogOutput = getEnv("LOG_OUTPUT", c.LogOutput)

	if value := os.Getenv("OCR_LANGUAGES"); value != "" {
		c.OCRLanguages = splitList(value)
	}

	var err error
	if c.KeepSourcePDFs, err = getEnvBool("KEEP_SOURCE_PDFS", c.KeepSourcePDFs); err != nil {
		return err
	}
	if c.SummaryTranslate, err = getEnvBool("SUMMARY_TRANSLATE", c.SummaryTranslate); err != nil {
		return err
	}
	if value := os.Getenv("OCR_DPI"); value != "" {
		if c.OCRDPI, err = strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("OCR_DPI: %w", err)
		}
	}
	if value := os.Getenv("DOCUMENT_TIMEOUT"); value != "" {
		if c.DocumentTimeout, err = time.ParseDuration(value); err != nil {
			return fmt.Errorf("DOCUMENT_TIMEOUT: %w", err)
		}
	}
	if value := os.Getenv("LLM_TEMPERATURE"); value != "" {
		temperature, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE: %w", err)
		}
		c.LLMTemperature = float32(temperature)
	}
	if value := os.Getenv("LLM_MAX_RETRIES"); value != "" {
		if c.LLMMaxRetries, err = strconv.Atoi(value); err != nil {
			return fmt.Errorf("LLM_MAX_RETRIES: %w", err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if c.OCRDPI < 0 {
		return fmt.Errorf("OCR_DPI must not be negative")
	}
	if c.DocumentTimeout < 0 {
		return fmt.Errorf("DOCUMENT_TIMEOUT must not be negative")
	}
	if c.LLMMaxRetries < 1 {
		return fmt.Errorf("LLM_MAX_RETRIES must be at least 1")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetLLMConfig returns the summarizer model configuration.
func (c *Config) GetLLMConfig() summary.LLMConfig {
	return summary.LLMConfig{
		Provider:    c.LLMProvider,
		Model:       c.LLMModel,
		BaseURL:     c.LLMBaseURL,
		APIKey:      c.OpenAIAPIKey,
		Temperature: c.LLMTemperature,
		MaxRetries:  c.LLMMaxRetries,
	}
}

// GetSummaryConfig returns the summary service configuration.
func (c *Config) GetSummaryConfig() summary.Config {
	return summary.Config{
		Translate:  c.SummaryTranslate,
		Language:   c.SummaryLanguage,
		OutputName: summary.DefaultOutputName,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
