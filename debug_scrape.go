package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"katom-scraper/adapters"
	"katom-scraper/extractor"
	"katom-scraper/internal/types"
)

// Manual harness for a single model: scrapes one product page and dumps
// every extracted field.
//
//	go run debug_scrape.go -model 527F3HD -prefix 150
func main() {
	modelFlag := flag.String("model", "", "Raw model number to scrape")
	prefixFlag := flag.String("prefix", "", "URL prefix for the product page")
	httpOnly := flag.Bool("http-only", false, "Use HTTP requests only")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if *modelFlag == "" || *prefixFlag == "" {
		logger.Fatal("Both -model and -prefix are required")
	}

	cfg := types.DefaultConfig()
	if *httpOnly {
		cfg.UseHeadlessBrowser = false
	}

	normalized := adapters.NormalizeModel(*modelFlag)
	fmt.Printf("Model:       %s -> %s\n", *modelFlag, normalized)
	fmt.Printf("URL:         %s\n", adapters.ProductURL(normalized, *prefixFlag))

	ext := extractor.NewKatomExtractor(cfg, logger)
	defer ext.Close()

	res := ext.ScrapeWithRetry(context.Background(), *modelFlag, *prefixFlag)

	fmt.Printf("Found:       %v\n", res.Found())
	fmt.Printf("Title:       %s\n", res.Title)
	fmt.Printf("Price:       %s\n", res.Price)
	fmt.Printf("Description: %.200s\n", res.Description)
	fmt.Printf("Specs:       %d entries\n", len(res.Specs))
	for key, value := range res.Specs {
		fmt.Printf("  %-30s %s\n", key, value)
	}
	fmt.Printf("Videos:      %v\n", res.VideoLinks)
	fmt.Printf("Main image:  %s\n", res.MainImage)
	fmt.Printf("Additional:  %v\n", res.AdditionalImages)
}
