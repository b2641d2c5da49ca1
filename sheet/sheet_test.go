package sheet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katom-scraper/internal/types"
)

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("Mfr Model,Notes\nabc123,first\nxyz789\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mfr Model", "Notes"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "abc123", table.Cell(0, 0))
	assert.Equal(t, "first", table.Cell(0, 1))
	assert.Equal(t, "", table.Cell(1, 1), "ragged rows read as empty cells")
	assert.Equal(t, "", table.Cell(5, 0), "out-of-range reads are empty")
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestColumnIndex(t *testing.T) {
	table := &Table{Headers: []string{"Sku", " Mfr Model ", "Notes"}}

	idx := table.ColumnIndex(func(h string) bool {
		return strings.EqualFold(strings.TrimSpace(h), "mfr model")
	})
	assert.Equal(t, 1, idx)

	idx = table.ColumnIndex(func(h string) bool { return h == "Missing" })
	assert.Equal(t, -1, idx)
}

func TestOutputPath(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.OutputDir = "/data/out"
	cfg.OutputPrefix = "final_"

	assert.Equal(t, "/data/out/final_abc_models.xlsx", OutputPath(cfg, "/incoming/models.csv", "abc"))
	assert.Equal(t, "/data/out/final_models.xlsx", OutputPath(cfg, "models.xlsx", ""))

	// Different URL prefixes over the same input land in different files.
	assert.NotEqual(t,
		OutputPath(cfg, "models.csv", "abc"),
		OutputPath(cfg, "models.csv", "xyz"))
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.xlsx")

	table := types.NewResultTable([]string{"Mfr Model", "Title", "Description"})
	table.Append(types.OutputRow{
		"Mfr Model":   "abc123",
		"Title":       "Frymaster F3",
		"Description": "<div><p>A fryer.</p></div>",
	})

	require.NoError(t, Save(path, table), "save creates missing directories")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mfr Model", "Title", "Description"}, loaded.Headers)
	require.Len(t, loaded.Rows, 1)
	assert.Equal(t, "Frymaster F3", loaded.Cell(0, 1))

	// Saving again overwrites rather than appends.
	require.NoError(t, Save(path, table))
	loaded, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded.Rows, 1)
}

func TestSave_HeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	table := types.NewResultTable([]string{"Mfr Model", "Title"})

	require.NoError(t, Save(path, table))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mfr Model", "Title"}, loaded.Headers)
	assert.Empty(t, loaded.Rows)
}
