package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"katom-scraper/config"
	"katom-scraper/extractor"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Parse command line flags
	var (
		inputFlag    = flag.String("input", "", "Input spreadsheet (.xlsx or .csv) with a 'Mfr Model' column")
		prefixFlag   = flag.String("prefix", "", "URL prefix for the product pages")
		configFlag   = flag.String("config", "", "Path to JSON config file")
		outputFlag   = flag.String("output", "", "Output directory (overrides config)")
		retriesFlag  = flag.Int("retries", 0, "Maximum scrape attempts per model (overrides config)")
		delayFlag    = flag.Duration("delay", 0, "Delay between rows (overrides config)")
		timeoutFlag  = flag.Duration("timeout", 0, "Page load timeout (overrides config)")
		httpOnlyFlag = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		verboseFlag  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verboseFlag {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if *inputFlag == "" {
		logger.Fatal("The -input flag is required")
	}
	if *prefixFlag == "" {
		logger.Fatal("The -prefix flag is required")
	}

	cfg, err := config.Load(*configFlag, logger)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Flag overrides
	if *outputFlag != "" {
		cfg.OutputDir = *outputFlag
	}
	if *retriesFlag > 0 {
		cfg.RetryAttempts = *retriesFlag
	}
	if *delayFlag > 0 {
		cfg.RequestDelay = *delayFlag
	}
	if *timeoutFlag > 0 {
		cfg.PageLoadTimeout = *timeoutFlag
	}
	if *httpOnlyFlag {
		cfg.UseHeadlessBrowser = false
	}

	// Interrupts stop the run cooperatively at the next row boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ext := extractor.NewKatomExtractor(cfg, logger)
	defer ext.Close()

	startTime := time.Now()
	logger.Infof("Processing %s", *inputFlag)

	if err := ext.ProcessFile(ctx, *inputFlag, *prefixFlag); err != nil {
		logger.Fatalf("Processing failed: %v", err)
	}

	logger.Infof("Done in %v", time.Since(startTime))
}
