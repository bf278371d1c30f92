package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"pdfdigest/cmd"
	"pdfdigest/internal/config"
	"pdfdigest/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		// Use default logger config if main config fails
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Info().Msg("Starting pdfdigest")

	// A nil config keeps the defaults.
	cmd.Execute(cfg)

	log.Info().Msg("pdfdigest shutdown")
	os.Exit(0)
}
