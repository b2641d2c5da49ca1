// Package extractor drives the per-row scrape pipeline: it walks the input
// spreadsheet, scrapes each model through a bounded retry policy, maps the
// extracted fields into the configured output columns, and persists the
// result table after every appended row.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"katom-scraper/adapters"
	"katom-scraper/internal/types"
	"katom-scraper/sheet"
)

// Fatal pipeline errors.
var (
	ErrNoModelColumn = errors.New("missing 'Mfr Model' column in file")
	ErrEmptyFile     = errors.New("file contains no data rows")
)

// KatomExtractor processes a spreadsheet of model numbers against katom.com
type KatomExtractor struct {
	adapter  *adapters.KatomAdapter
	config   *types.Config
	logger   types.Logger
	notifier types.Notifier

	// scrape performs one attempt; swapped out in tests.
	scrape func(ctx context.Context, model, prefix string) (*types.ScrapeResult, error)
}

// NewKatomExtractor creates a new Katom extractor
func NewKatomExtractor(config *types.Config, logger types.Logger) *KatomExtractor {
	adapter := adapters.NewKatomAdapter(config, logger)
	return &KatomExtractor{
		adapter:  adapter,
		config:   config,
		logger:   logger,
		notifier: NewLogNotifier(logger),
		scrape:   adapter.ScrapeModel,
	}
}

// SetNotifier replaces the default log-backed notifier.
func (e *KatomExtractor) SetNotifier(n types.Notifier) {
	if n != nil {
		e.notifier = n
	}
}

// Close cleans up resources
func (e *KatomExtractor) Close() {
	if e.adapter != nil {
		e.adapter.Close()
	}
}

// ProcessFile runs the whole pipeline over one input file. Rows with a blank
// model cell are skipped; rows whose scrape comes back without a real title
// are skipped too. The output file is rewritten after every appended row, so
// partial progress survives a mid-run failure. Cancelling ctx stops the run
// at the next row boundary without error.
func (e *KatomExtractor) ProcessFile(ctx context.Context, inputPath, prefix string) error {
	table, err := sheet.Load(inputPath)
	if err != nil {
		e.notifier.Error(err.Error())
		return err
	}

	modelCol := table.ColumnIndex(isModelHeader)
	if modelCol < 0 {
		e.notifier.Error("Missing 'Mfr Model' column in file")
		return ErrNoModelColumn
	}
	if len(table.Rows) == 0 {
		e.notifier.Error("File contains no data rows")
		return ErrEmptyFile
	}

	plan := planColumns(e.config, e.logger)
	outPath := sheet.OutputPath(e.config, inputPath, prefix)
	result := types.NewResultTable(plan.Columns)

	// Write the header right away so the output file exists even if every
	// row gets skipped.
	if err := sheet.Save(outPath, result); err != nil {
		e.notifier.Error(err.Error())
		return err
	}
	e.logger.Infof("Writing results to %s", outPath)

	total := len(table.Rows)
	e.notifier.Progress(0, total)

	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			e.logger.Info("Processing stopped before completion")
			return nil
		}

		raw := strings.TrimSpace(table.Cell(i, modelCol))
		if raw == "" || strings.EqualFold(raw, "nan") {
			continue
		}

		e.notifier.Status("Processing model: " + raw)
		res := e.ScrapeWithRetry(ctx, raw, prefix)
		if res.Found() {
			result.Append(e.buildRow(raw, res, plan))
			if err := sheet.Save(outPath, result); err != nil {
				e.logger.Errorf("Failed to save results: %v", err)
				e.notifier.Error(err.Error())
			}
		} else {
			e.logger.Infof("Skipping model %s: product not found", raw)
		}

		e.notifier.Progress(i+1, total)
		sleepCtx(ctx, e.config.RequestDelay)
	}

	if ctx.Err() != nil {
		e.logger.Info("Processing stopped before completion")
		return nil
	}
	e.notifier.Finished()
	return nil
}

// ScrapeWithRetry normalizes the raw model cell and scrapes it, retrying on
// failure with linearly increasing backoff. Exhausting every attempt yields
// the all-sentinel result rather than an error; not-found pages come back
// from the adapter as sentinel results and are never retried.
func (e *KatomExtractor) ScrapeWithRetry(ctx context.Context, rawModel, prefix string) *types.ScrapeResult {
	model := adapters.NormalizeModel(rawModel)
	attempts := e.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := e.scrape(ctx, model, prefix)
		if err == nil {
			return res
		}
		lastErr = err
		e.logger.Warnf("Attempt %d/%d for model %s failed: %v", attempt+1, attempts, model, err)
		if attempt < attempts-1 {
			if !sleepCtx(ctx, time.Duration(attempt+1)*e.config.RetryDelay) {
				break
			}
		}
	}

	e.notifier.Error(fmt.Sprintf("Model %s failed after %d attempts: %v", model, attempts, lastErr))
	return types.NewScrapeResult()
}

// buildRow maps one scrape result into the planned output columns.
func (e *KatomExtractor) buildRow(rawModel string, res *types.ScrapeResult, plan *columnPlan) types.OutputRow {
	row := make(types.OutputRow, len(plan.Columns))
	for _, col := range plan.Columns {
		row[col] = ""
	}

	row[modelColumn] = rawModel
	row[titleColumn] = res.Title

	combined := fmt.Sprintf(`<div style="text-align: justify;">%s</div>`, res.Description)
	if res.SpecsHTML != "" {
		combined += `<h3 style="margin-top: 15px;">Specifications</h3>` + res.SpecsHTML
	}
	row[descriptionColumn] = combined

	if _, ok := row[priceColumn]; ok {
		row[priceColumn] = res.Price
	}

	// Spec keys are matched against the selected fields by exact then
	// substring comparison, first match wins. Keys are walked in sorted
	// order so overlapping matches resolve the same way every run.
	keys := make([]string, 0, len(res.Specs))
	for key := range res.Specs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := res.Specs[key]
		if strings.Contains(key, "weight") {
			value = adapters.ProcessWeightValue(value)
		}
		for _, field := range plan.MappingFields {
			if key == field || strings.Contains(field, key) {
				if col := titleCase(field); hasColumn(row, col) {
					row[col] = value
				}
				break
			}
		}
	}

	if hasColumn(row, shippingWeightCol) {
		if weight := res.Specs["weight"]; weight != "" {
			row[shippingWeightCol] = adapters.ProcessWeightValue(weight)
		}
	}

	for i, link := range res.VideoLinks {
		if i >= maxVideoColumns {
			break
		}
		row[videoLinkColumn(i+1)] = link
	}

	if plan.MainImage {
		row[mainImageColumn] = res.MainImage
	}
	if plan.AdditionalImages {
		for i, img := range res.AdditionalImages {
			if i >= maxAdditionalImageCols {
				break
			}
			row[additionalImageColumn(i+1)] = img
		}
	}

	return row
}

func hasColumn(row types.OutputRow, col string) bool {
	_, ok := row[col]
	return ok
}

// isModelHeader accepts both header spellings seen in input files.
func isModelHeader(header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	return h == "mfr model" || h == "model number"
}

// sleepCtx waits for d or until ctx is cancelled. It reports whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
