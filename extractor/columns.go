package extractor

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"katom-scraper/internal/types"
)

// Fixed columns that exist regardless of field selection.
const (
	modelColumn       = "Mfr Model"
	titleColumn       = "Title"
	descriptionColumn = "Description"
	priceColumn       = "Price"
	mainImageColumn   = "Main Image"
	shippingWeightCol = "Shipping Weight"

	maxVideoColumns = 5
)

// Field names that expand into dedicated columns instead of being mapped
// from the spec table.
const (
	mainImageField        = "main_image"
	additionalImagesField = "additional_images"
)

// columnPlan is the resolved output layout for one processing run.
type columnPlan struct {
	// Columns is the final deduplicated column ordering.
	Columns []string
	// MappingFields are the lowercase selected fields, in canonical order,
	// that spec keys are matched against.
	MappingFields []string
	// MainImage / AdditionalImages report whether the image columns were
	// selected.
	MainImage        bool
	AdditionalImages bool
}

// planColumns builds the output column set from the field selection:
// the model column first, then the enumerated fields, custom fields, image
// columns when enabled, title and description, and five video-link slots.
// Duplicate columns are dropped case-insensitively, first occurrence wins.
func planColumns(cfg *types.Config, logger types.Logger) *columnPlan {
	plan := &columnPlan{
		MappingFields:    orderedSelectedFields(cfg),
		MainImage:        cfg.SelectedFields[mainImageField],
		AdditionalImages: cfg.SelectedFields[additionalImagesField],
	}

	columns := []string{modelColumn}
	for _, field := range plan.MappingFields {
		if field == "title" || field == "description" {
			continue
		}
		columns = append(columns, titleCase(field))
	}
	for _, cf := range cfg.CustomFields {
		if cf.Enabled && strings.TrimSpace(cf.Name) != "" {
			columns = append(columns, titleCase(cf.Name))
		}
	}
	if plan.MainImage {
		columns = append(columns, mainImageColumn)
	}
	if plan.AdditionalImages {
		for i := 1; i <= maxAdditionalImageCols; i++ {
			columns = append(columns, additionalImageColumn(i))
		}
	}
	columns = append(columns, titleColumn, descriptionColumn)
	for i := 1; i <= maxVideoColumns; i++ {
		columns = append(columns, videoLinkColumn(i))
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		lower := strings.ToLower(col)
		if seen[lower] {
			logger.Warnf("Skipping duplicate column: %s", col)
			continue
		}
		seen[lower] = true
		plan.Columns = append(plan.Columns, col)
	}

	logger.Infof("Using %d output columns", len(plan.Columns))
	return plan
}

// orderedSelectedFields returns the enabled fields in the canonical default
// order, followed by any extra configured fields sorted by name. The field
// selection lives in a map, so without a canonical order the columns would
// shuffle between runs.
func orderedSelectedFields(cfg *types.Config) []string {
	var fields []string
	inDefault := make(map[string]bool, len(types.DefaultFieldOrder))
	for _, f := range types.DefaultFieldOrder {
		inDefault[f] = true
		if f == mainImageField || f == additionalImagesField {
			continue
		}
		if cfg.SelectedFields[f] {
			fields = append(fields, f)
		}
	}

	var extras []string
	for f, enabled := range cfg.SelectedFields {
		if enabled && !inDefault[f] {
			extras = append(extras, strings.ToLower(f))
		}
	}
	sort.Strings(extras)

	return append(fields, extras...)
}

const maxAdditionalImageCols = 5

func additionalImageColumn(i int) string {
	return "Additional Image " + strconv.Itoa(i)
}

func videoLinkColumn(i int) string {
	return "Video Link " + strconv.Itoa(i)
}

// titleCase capitalizes the first letter of every alphabetic run and lowers
// the rest, after turning underscores into spaces. "oil capacity/fryer (lb)"
// becomes "Oil Capacity/Fryer (Lb)" and "shipping_weight" becomes
// "Shipping Weight".
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
