package adapters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"katom-scraper/internal/types"
	"katom-scraper/utils"

	"github.com/PuerkitoBio/goquery"
)

const (
	siteBaseURL = "https://www.katom.com"

	// productTitleSelector marks the page as a usable product page.
	productTitleSelector = "h1.product-name.mb-0"

	descriptionContainerSelector = "div.tab-content"
	descriptionFallbackSelector  = ".product-description, .description, [class*='description']"

	priceSelector     = ".product-price, .price, [class*='price'], .regular-price"
	mainImageSelector = ".product-img, .main-product-image, img.main-image, img[itemprop='image']"
	thumbnailSelector = ".additional-images img, .product-thumbnails img, .thumb-image"

	specsTableSelector = "table.table.table-condensed.specs-table"
	specsTableOpen     = `<table class="specs-table" cellspacing="0" cellpadding="4" border="1" style="margin-top:10px;border-collapse:collapse;width:auto;" align="left"><tbody>`
	specsTableClose    = `</tbody></table>`

	maxAdditionalImages = 5
)

var (
	mp4LinkRe      = regexp.MustCompile(`https?://[^"']+\.mp4`)
	weightNumberRe = regexp.MustCompile(`\d+(\.\d+)?`)
	weightUnitsRe  = regexp.MustCompile(`[^\d.]+$`)
	colonSpecRe    = regexp.MustCompile(`^([^:]+):\s*(.+)$`)
	dashSpecRe     = regexp.MustCompile(`^([^-]+)-\s*(.+)$`)
)

// KatomAdapter scrapes product pages from katom.com
type KatomAdapter struct {
	*BaseAdapter
}

// NewKatomAdapter creates a new Katom adapter
func NewKatomAdapter(config *types.Config, logger types.Logger) *KatomAdapter {
	return &KatomAdapter{
		BaseAdapter: NewBaseAdapter(config, logger),
	}
}

// NormalizeModel reduces a raw model cell to the identifier used in product
// URLs: non-alphanumerics stripped, upper-cased, one trailing "HC" removed.
// Normalizing an already-normalized identifier is a no-op.
func NormalizeModel(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return strings.TrimSuffix(b.String(), "HC")
}

// ProductURL builds the deterministic product page URL for a normalized
// model identifier.
func ProductURL(model, prefix string) string {
	return fmt.Sprintf("%s/%s-%s.html", siteBaseURL, prefix, model)
}

// ScrapeModel performs a single scrape attempt for a normalized model
// identifier. A page that reports the product as missing yields the
// all-sentinel result with a nil error; any other failure is returned to the
// caller's retry policy.
func (k *KatomAdapter) ScrapeModel(ctx context.Context, model, prefix string) (*types.ScrapeResult, error) {
	url := ProductURL(model, prefix)
	k.logger.Debugf("Fetching %s", url)

	html, err := k.fetchProductPage(ctx, url)
	if errors.Is(err, utils.ErrPageNotFound) {
		k.logger.Infof("Product %s not found at %s", model, url)
		return types.NewScrapeResult(), nil
	}
	if err != nil {
		return nil, err
	}

	return k.ExtractFromHTML(html, model)
}

// fetchProductPage retrieves the rendered product page, via headless browser
// by default or plain HTTP when the browser is disabled. Both paths report a
// missing product as utils.ErrPageNotFound.
func (k *KatomAdapter) fetchProductPage(ctx context.Context, url string) (string, error) {
	if k.config.UseHeadlessBrowser {
		return k.browserClient.FetchProduct(ctx, url, productTitleSelector)
	}

	body, err := k.httpClient.Get(ctx, url)
	if err != nil {
		return "", err
	}
	html := string(body)

	doc, err := k.ParseHTML(html)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}

	pageTitle := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if strings.Contains(pageTitle, "404") || strings.Contains(pageTitle, "not found") {
		return "", utils.ErrPageNotFound
	}
	if doc.Find(productTitleSelector).Length() == 0 {
		return "", fmt.Errorf("title element %s not present on %s", productTitleSelector, url)
	}

	return html, nil
}

// ExtractFromHTML pulls every product field out of a fetched page. Fields
// are independently optional: a missing title stops extraction, anything
// else degrades to its zero or sentinel value.
func (k *KatomAdapter) ExtractFromHTML(html, model string) (*types.ScrapeResult, error) {
	doc, err := k.ParseHTML(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}

	res := types.NewScrapeResult()

	title := strings.TrimSpace(doc.Find(productTitleSelector).First().Text())
	if title == "" {
		// No title means no product; don't bother with the rest.
		return res, nil
	}
	res.Title = title

	res.Price = k.extractPrice(doc)
	res.Description = k.extractDescription(doc)
	res.Specs, res.SpecsHTML = k.ExtractSpecTable(doc)
	res.VideoLinks = k.extractVideoLinks(doc, html)
	res.MainImage, res.AdditionalImages = k.extractImages(doc, model)

	return res, nil
}

func (k *KatomAdapter) extractPrice(doc *goquery.Document) string {
	price := strings.TrimSpace(doc.Find(priceSelector).First().Text())
	if price == "" {
		// Fall back to the first short element whose text carries a dollar sign.
		doc.Find("span, div, p, td").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) <= 40 && strings.Contains(text, "$") {
				price = text
				return false
			}
			return true
		})
	}
	if price != "" && !strings.Contains(price, "$") {
		price = "$" + price
	}
	return price
}

// extractDescription concatenates the qualifying paragraphs of the product
// description tab. Paragraphs that are empty, start with the "*free"
// disclaimer, or mention videos are dropped.
func (k *KatomAdapter) extractDescription(doc *goquery.Document) string {
	container := doc.Find(descriptionContainerSelector).First()
	if container.Length() == 0 {
		k.logger.Debug("Description container not found, trying fallback selectors")
		if text := strings.TrimSpace(doc.Find(descriptionFallbackSelector).First().Text()); text != "" {
			return "<p>" + text + "</p>"
		}
		return types.DescriptionNotFound
	}

	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			return
		}
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "*free") || strings.Contains(lower, "video") {
			return
		}
		parts = append(parts, "<p>"+text+"</p>")
	})

	if len(parts) == 0 {
		return types.DescriptionNotFound
	}
	return strings.Join(parts, "")
}

// ExtractSpecTable pulls the specification table as both a lowercase-keyed
// mapping and a pre-rendered HTML fragment. Four tiers are tried in order
// and a tier only runs when every earlier tier came up empty: the dedicated
// specs table (or any table), key/value spec rows, definition lists, and
// finally a "key: value" text scan filtered by the configured common spec
// names. Values are kept raw; unit normalization happens at mapping time.
func (k *KatomAdapter) ExtractSpecTable(doc *goquery.Document) (map[string]string, string) {
	specs := make(map[string]string)

	table := doc.Find(specsTableSelector).First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() > 0 {
		var sb strings.Builder
		sb.WriteString(specsTableOpen)
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			key := strings.TrimSpace(cells.Eq(0).Text())
			value := strings.TrimSpace(cells.Eq(1).Text())
			if key == "" {
				return
			}
			if _, ok := specs[strings.ToLower(key)]; !ok {
				specs[strings.ToLower(key)] = value
			}
			fmt.Fprintf(&sb, `<tr><td style="padding:3px 8px;"><b>%s</b></td><td style="padding:3px 8px;">%s</td></tr>`, key, value)
		})
		sb.WriteString(specsTableClose)
		return specs, sb.String()
	}

	var pairs [][2]string
	record := func(key, value string) {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return
		}
		pairs = append(pairs, [2]string{key, value})
		if _, ok := specs[strings.ToLower(key)]; !ok {
			specs[strings.ToLower(key)] = value
		}
	}

	doc.Find(".specs-row, [class*='spec']").Each(func(_ int, row *goquery.Selection) {
		key := row.Find(".spec-key, .spec-name, [class*='key'], [class*='name']").First()
		value := row.Find(".spec-value, .spec-val, [class*='value'], [class*='val']").First()
		if key.Length() > 0 && value.Length() > 0 {
			record(key.Text(), value.Text())
		}
	})

	if len(pairs) == 0 {
		doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
			terms := dl.Find("dt")
			defs := dl.Find("dd")
			n := terms.Length()
			if defs.Length() < n {
				n = defs.Length()
			}
			for i := 0; i < n; i++ {
				record(terms.Eq(i).Text(), defs.Eq(i).Text())
			}
		})
	}

	if len(pairs) == 0 {
		doc.Find("p, div, li, span").Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || len(text) > 100 {
				return
			}
			for _, re := range []*regexp.Regexp{colonSpecRe, dashSpecRe} {
				m := re.FindStringSubmatch(text)
				if m == nil {
					continue
				}
				key := strings.TrimSpace(m[1])
				if k.isCommonSpecField(key) {
					record(key, m[2])
				}
				break
			}
		})
	}

	if len(pairs) == 0 {
		return specs, ""
	}

	var sb strings.Builder
	sb.WriteString(specsTableOpen)
	for _, p := range pairs {
		fmt.Fprintf(&sb, `<tr><td style="padding:3px 8px;"><b>%s</b></td><td style="padding:3px 8px;">%s</td></tr>`, p[0], p[1])
	}
	sb.WriteString(specsTableClose)
	return specs, sb.String()
}

func (k *KatomAdapter) isCommonSpecField(key string) bool {
	lower := strings.ToLower(key)
	for _, name := range k.config.CommonSpecFields {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// extractVideoLinks collects product video URLs through three fallback
// tiers: explicit mp4/video sources, sources nested in video elements, and a
// raw-markup scan for mp4 URLs. Later tiers only run when every earlier tier
// found nothing. Exact duplicates are dropped, discovery order is kept.
func (k *KatomAdapter) extractVideoLinks(doc *goquery.Document, rawHTML string) []string {
	var links []string
	seen := make(map[string]bool)
	add := func(src string) {
		if src != "" && !seen[src] {
			seen[src] = true
			links = append(links, src)
		}
	}

	doc.Find("source[src*='.mp4'], source[type*='video']").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src)
	})

	if len(links) == 0 {
		doc.Find("video source").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			add(src)
		})
	}

	if len(links) == 0 {
		for _, match := range mp4LinkRe.FindAllString(rawHTML, -1) {
			add(match)
		}
	}

	return links
}

// extractImages returns the main product image plus up to five additional
// thumbnails. Only the first five thumbnail elements are inspected; a
// thumbnail repeating the main image is skipped.
func (k *KatomAdapter) extractImages(doc *goquery.Document, model string) (string, []string) {
	main, _ := doc.Find(mainImageSelector).First().Attr("src")
	if main == "" {
		lowerModel := strings.ToLower(model)
		doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src, _ := img.Attr("src")
			lower := strings.ToLower(src)
			if src != "" && (strings.Contains(lower, lowerModel) || strings.Contains(lower, "product")) {
				main = src
				return false
			}
			return true
		})
	}

	var additional []string
	doc.Find(thumbnailSelector).EachWithBreak(func(i int, img *goquery.Selection) bool {
		if i >= maxAdditionalImages {
			return false
		}
		src, _ := img.Attr("src")
		if src != "" && src != main {
			additional = append(additional, src)
		}
		return true
	})

	return main, additional
}

// ProcessWeightValue normalizes a scraped weight: the first number is
// rounded up and padded by five, and any trailing unit string is kept.
// Values without a parsable number pass through untouched.
func ProcessWeightValue(value string) string {
	match := weightNumberRe.FindString(value)
	if match == "" {
		return value
	}
	number, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return value
	}
	final := int(math.Ceil(number)) + 5

	units := strings.TrimSpace(weightUnitsRe.FindString(value))
	if units != "" {
		return fmt.Sprintf("%d %s", final, units)
	}
	return strconv.Itoa(final)
}
