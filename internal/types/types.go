package types

import (
	"strings"
	"time"
)

// Sentinel values written when a scrape finds no real data.
const (
	TitleNotFound       = "Title not found"
	DescriptionNotFound = "Description not found"
)

// ScrapeResult holds everything pulled from a single product page.
// A fresh value is created per scrape attempt and not mutated after return.
type ScrapeResult struct {
	Title            string
	Description      string
	Specs            map[string]string
	SpecsHTML        string
	VideoLinks       []string
	Price            string
	MainImage        string
	AdditionalImages []string
}

// NewScrapeResult returns a result prefilled with sentinel values.
func NewScrapeResult() *ScrapeResult {
	return &ScrapeResult{
		Title:       TitleNotFound,
		Description: DescriptionNotFound,
		Specs:       make(map[string]string),
	}
}

// Found reports whether the scrape located a real product. Sentinel titles
// and anything carrying a "not found" marker count as misses.
func (r *ScrapeResult) Found() bool {
	if r == nil || r.Title == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(r.Title), "not found")
}

// OutputRow maps output column names to cell values.
type OutputRow map[string]string

// ResultTable accumulates output rows during a processing run. It grows
// monotonically and is persisted after every append.
type ResultTable struct {
	Columns []string
	Rows    []OutputRow
}

// NewResultTable creates an empty table with the given column plan.
func NewResultTable(columns []string) *ResultTable {
	return &ResultTable{Columns: columns}
}

// Append adds a row to the table.
func (t *ResultTable) Append(row OutputRow) {
	t.Rows = append(t.Rows, row)
}

// CustomField is a user-defined output field.
type CustomField struct {
	Name     string `json:"name"`
	Selector string `json:"selector,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// Config holds the configuration for the scraper
type Config struct {
	PageLoadTimeout    time.Duration
	ElementWait        time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	RequestDelay       time.Duration
	UseHeadlessBrowser bool
	UserAgent          string
	OutputDir          string
	OutputPrefix       string
	SelectedFields     map[string]bool
	CustomFields       []CustomField
	CommonSpecFields   []string
}

// DefaultFieldOrder is the canonical ordering of the enumerated output
// fields. Column planning walks this list so the output layout stays stable
// no matter how the selected-fields map iterates.
var DefaultFieldOrder = []string{
	"manufacturer", "food type", "frypot style", "heat", "hertz", "nema",
	"number of fry pots", "oil capacity/fryer (lb)", "phase", "product",
	"product type", "rating", "special features", "type", "voltage",
	"warranty", "weight", "title", "description", "model", "dimensions",
	"price", "sku", "main_image", "additional_images",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	selected := make(map[string]bool, len(DefaultFieldOrder))
	for _, f := range DefaultFieldOrder {
		selected[f] = true
	}
	// Image columns are opt-in.
	selected["main_image"] = false
	selected["additional_images"] = false

	return &Config{
		PageLoadTimeout:    30 * time.Second,
		ElementWait:        10 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         2 * time.Second,
		RequestDelay:       500 * time.Millisecond,
		UseHeadlessBrowser: true,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		OutputDir:          "~/GoogleDriveMount/Web/Completed/Final",
		OutputPrefix:       "final_",
		SelectedFields:     selected,
		CustomFields: []CustomField{
			{Name: "shipping_weight", Enabled: true},
		},
		CommonSpecFields: []string{
			"manufacturer", "food type", "frypot style", "heat", "hertz",
			"nema", "number of", "oil capacity", "phase", "product", "type",
			"rating", "special features", "voltage", "warranty", "weight",
			"dimensions",
		},
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Notifier receives progress updates during a file-processing run. It stands
// in for the signal/slot notifications of a UI front end; implementations
// are called from the processing goroutine.
type Notifier interface {
	// Progress reports the current and total row counts.
	Progress(current, total int)
	// Status reports a human-readable status line.
	Status(text string)
	// Error reports a row-level or fatal error message.
	Error(msg string)
	// Finished signals that the run completed without being cancelled.
	Finished()
}
