package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katom-scraper/internal/types"
	"katom-scraper/sheet"
)

func newTestConfig(t *testing.T) *types.Config {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.RetryDelay = 0
	cfg.RequestDelay = 0
	cfg.OutputDir = t.TempDir()
	return cfg
}

func newTestExtractor(t *testing.T, cfg *types.Config) *KatomExtractor {
	t.Helper()
	ext := NewKatomExtractor(cfg, logrus.New())
	t.Cleanup(ext.Close)
	return ext
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	progress []int
	status   []string
	errors   []string
	finished bool
}

func (n *recordingNotifier) Progress(current, total int) { n.progress = append(n.progress, current) }
func (n *recordingNotifier) Status(text string)          { n.status = append(n.status, text) }
func (n *recordingNotifier) Error(msg string)            { n.errors = append(n.errors, msg) }
func (n *recordingNotifier) Finished()                   { n.finished = true }

func TestTitleCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"manufacturer", "Manufacturer"},
		{"food type", "Food Type"},
		{"oil capacity/fryer (lb)", "Oil Capacity/Fryer (Lb)"},
		{"shipping_weight", "Shipping Weight"},
		{"nema", "Nema"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleCase(tt.in))
	}
}

func TestPlanColumns_Defaults(t *testing.T) {
	cfg := newTestConfig(t)
	plan := planColumns(cfg, logrus.New())

	assert.Equal(t, modelColumn, plan.Columns[0])
	assert.Contains(t, plan.Columns, "Manufacturer")
	assert.Contains(t, plan.Columns, "Shipping Weight")
	assert.Contains(t, plan.Columns, "Video Link 1")
	assert.Contains(t, plan.Columns, "Video Link 5")

	// Image fields are off by default.
	assert.NotContains(t, plan.Columns, mainImageColumn)
	assert.NotContains(t, plan.Columns, "Additional Image 1")

	// Title/description are pinned near the end, not mapped fields.
	titleIdx := indexOf(plan.Columns, titleColumn)
	videoIdx := indexOf(plan.Columns, "Video Link 1")
	assert.Greater(t, videoIdx, titleIdx)
}

func TestPlanColumns_NoDuplicates(t *testing.T) {
	cfg := newTestConfig(t)
	// A custom field colliding with an enumerated one must be dropped.
	cfg.CustomFields = append(cfg.CustomFields, types.CustomField{Name: "weight", Enabled: true})
	cfg.CustomFields = append(cfg.CustomFields, types.CustomField{Name: "Shipping_Weight", Enabled: true})

	plan := planColumns(cfg, logrus.New())

	seen := make(map[string]bool)
	for _, col := range plan.Columns {
		lower := strings.ToLower(col)
		assert.False(t, seen[lower], "duplicate column %s", col)
		seen[lower] = true
	}
	assert.Contains(t, plan.Columns, "Weight")
	assert.Contains(t, plan.Columns, "Shipping Weight")
}

func TestPlanColumns_ImageColumns(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SelectedFields[mainImageField] = true
	cfg.SelectedFields[additionalImagesField] = true

	plan := planColumns(cfg, logrus.New())

	assert.Contains(t, plan.Columns, mainImageColumn)
	for i := 1; i <= 5; i++ {
		assert.Contains(t, plan.Columns, additionalImageColumn(i))
	}
}

func TestBuildRow_Mapping(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.SelectedFields[mainImageField] = true
	cfg.SelectedFields[additionalImagesField] = true
	ext := newTestExtractor(t, cfg)
	plan := planColumns(cfg, logrus.New())

	res := &types.ScrapeResult{
		Title:       "Frymaster F3",
		Description: "<p>A fryer.</p>",
		SpecsHTML:   `<table class="specs-table"><tbody></tbody></table>`,
		Price:       "$1,299.00",
		Specs: map[string]string{
			"manufacturer": "Frymaster",
			"weight":       "12 lbs",
			"product type": "Fryer",
		},
		VideoLinks:       []string{"https://v/1.mp4", "https://v/2.mp4"},
		MainImage:        "https://img/main.jpg",
		AdditionalImages: []string{"https://img/1.jpg", "https://img/2.jpg"},
	}

	row := ext.buildRow("abc123hc", res, plan)

	assert.Equal(t, "abc123hc", row[modelColumn], "raw model cell is preserved in output")
	assert.Equal(t, "Frymaster F3", row[titleColumn])
	assert.Equal(t, "$1,299.00", row[priceColumn])

	assert.True(t, strings.HasPrefix(row[descriptionColumn], `<div style="text-align: justify;"><p>A fryer.</p></div>`))
	assert.Contains(t, row[descriptionColumn], "Specifications")

	assert.Equal(t, "Frymaster", row["Manufacturer"])
	assert.Equal(t, "17 lbs", row["Weight"], "weight specs are normalized at mapping time")
	assert.Equal(t, "17 lbs", row[shippingWeightCol])
	assert.Equal(t, "Fryer", row["Product Type"])

	assert.Equal(t, "https://v/1.mp4", row["Video Link 1"])
	assert.Equal(t, "https://v/2.mp4", row["Video Link 2"])
	assert.Equal(t, "", row["Video Link 3"], "unused video slots stay blank")

	assert.Equal(t, "https://img/main.jpg", row[mainImageColumn])
	assert.Equal(t, "https://img/1.jpg", row["Additional Image 1"])
	assert.Equal(t, "", row["Additional Image 3"])
}

func TestBuildRow_SubstringMatchIsDeterministic(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)
	plan := planColumns(cfg, logrus.New())

	// Fields are walked in canonical order and "food type" contains "type",
	// so the substring match fires before the exact "type" field is reached.
	// Ambiguous, but stable.
	res := types.NewScrapeResult()
	res.Title = "X"
	res.Specs = map[string]string{"type": "Gas"}

	row := ext.buildRow("X", res, plan)
	assert.Equal(t, "Gas", row["Food Type"])
	assert.Equal(t, "", row["Type"])
}

func TestBuildRow_VideoLinkCap(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)
	plan := planColumns(cfg, logrus.New())

	res := types.NewScrapeResult()
	res.Title = "X"
	for i := 0; i < 7; i++ {
		res.VideoLinks = append(res.VideoLinks, fmt.Sprintf("https://v/%d.mp4", i))
	}

	row := ext.buildRow("X", res, plan)
	assert.Equal(t, "https://v/4.mp4", row["Video Link 5"])
	_, ok := row["Video Link 6"]
	assert.False(t, ok, "only five video columns exist")
}

func TestScrapeWithRetry_Exhaustion(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RetryAttempts = 3
	ext := newTestExtractor(t, cfg)

	notifier := &recordingNotifier{}
	ext.SetNotifier(notifier)

	attempts := 0
	ext.scrape = func(ctx context.Context, model, prefix string) (*types.ScrapeResult, error) {
		attempts++
		return nil, errors.New("browser crashed")
	}

	res := ext.ScrapeWithRetry(context.Background(), "abc123", "abc")

	assert.Equal(t, 3, attempts)
	assert.False(t, res.Found())
	assert.Equal(t, types.TitleNotFound, res.Title)
	require.Len(t, notifier.errors, 1)
	assert.Contains(t, notifier.errors[0], "after 3 attempts")
}

func TestScrapeWithRetry_NormalizesModel(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)

	var gotModel string
	ext.scrape = func(ctx context.Context, model, prefix string) (*types.ScrapeResult, error) {
		gotModel = model
		res := types.NewScrapeResult()
		res.Title = "X"
		return res, nil
	}

	res := ext.ScrapeWithRetry(context.Background(), "abc-123hc!", "abc")
	assert.Equal(t, "ABC123", gotModel)
	assert.True(t, res.Found())
}

func writeInputCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFile(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)
	notifier := &recordingNotifier{}
	ext.SetNotifier(notifier)

	ext.scrape = func(ctx context.Context, model, prefix string) (*types.ScrapeResult, error) {
		switch model {
		case "ABC123":
			res := types.NewScrapeResult()
			res.Title = "Frymaster F3"
			res.Description = "<p>A fryer.</p>"
			res.Specs = map[string]string{"manufacturer": "Frymaster"}
			return res, nil
		case "GONE1":
			// Not-found pages come back as sentinel results.
			return types.NewScrapeResult(), nil
		default:
			return nil, errors.New("timeout")
		}
	}

	input := writeInputCSV(t, "Model Number,Notes\nabc123hc,ok\n,blank\nnan,placeholder\ngone-1,missing\nbad-1,broken\n")

	err := ext.ProcessFile(context.Background(), input, "abc")
	require.NoError(t, err)

	assert.True(t, notifier.finished)
	assert.Equal(t, []string{
		"Processing model: abc123hc",
		"Processing model: gone-1",
		"Processing model: bad-1",
	}, notifier.status, "blank and nan rows are skipped before any status update")

	outPath := sheet.OutputPath(cfg, input, "abc")
	out, err := sheet.Load(outPath)
	require.NoError(t, err)

	require.Len(t, out.Rows, 1, "only the successful scrape lands in the output")
	modelIdx := out.ColumnIndex(func(h string) bool { return h == modelColumn })
	titleIdx := out.ColumnIndex(func(h string) bool { return h == titleColumn })
	require.GreaterOrEqual(t, modelIdx, 0)
	assert.Equal(t, "abc123hc", out.Cell(0, modelIdx))
	assert.Equal(t, "Frymaster F3", out.Cell(0, titleIdx))
}

func TestProcessFile_MissingModelColumn(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)

	input := writeInputCSV(t, "Sku,Notes\n123,x\n")
	err := ext.ProcessFile(context.Background(), input, "abc")
	assert.ErrorIs(t, err, ErrNoModelColumn)
}

func TestProcessFile_EmptyFile(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)

	input := writeInputCSV(t, "Mfr Model\n")
	err := ext.ProcessFile(context.Background(), input, "abc")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestProcessFile_UnsupportedExtension(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)

	path := filepath.Join(t.TempDir(), "models.txt")
	require.NoError(t, os.WriteFile(path, []byte("Mfr Model\nabc\n"), 0o644))

	err := ext.ProcessFile(context.Background(), path, "abc")
	assert.ErrorIs(t, err, sheet.ErrUnsupportedFile)
}

func TestProcessFile_Cancelled(t *testing.T) {
	cfg := newTestConfig(t)
	ext := newTestExtractor(t, cfg)
	notifier := &recordingNotifier{}
	ext.SetNotifier(notifier)

	scrapes := 0
	ext.scrape = func(ctx context.Context, model, prefix string) (*types.ScrapeResult, error) {
		scrapes++
		res := types.NewScrapeResult()
		res.Title = "X"
		return res, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := writeInputCSV(t, "Mfr Model\na1\na2\n")
	err := ext.ProcessFile(ctx, input, "abc")

	require.NoError(t, err)
	assert.Zero(t, scrapes, "cancellation is honored at the row boundary")
	assert.False(t, notifier.finished)
}

func TestIsModelHeader(t *testing.T) {
	assert.True(t, isModelHeader("Mfr Model"))
	assert.True(t, isModelHeader("  mfr model  "))
	assert.True(t, isModelHeader("Model Number"))
	assert.False(t, isModelHeader("Model"))
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Minute))
}

func indexOf(columns []string, col string) int {
	for i, c := range columns {
		if c == col {
			return i
		}
	}
	return -1
}
