package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"beautybot/internal/domain"
)

const notSpecified = "Not specified"

// skinTypeTriggers are phrases scanned for in product highlights. Matching a
// trigger adds its standardized label to the tag set.
var skinTypeTriggers = []struct {
	phrase string
	label  string
}{
	{"oily skin", "Oily Skin"},
	{"dry skin", "Dry Skin"},
	{"combination skin", "Combination Skin"},
	{"sensitive skin", "Sensitive Skin"},
	{"all skin types", "All Skin Types"},
}

// Synthesize turns catalog records into the per-product document pair: the
// search text that gets embedded and the context block returned to the
// language model at query time.
func Synthesize(records []domain.ProductRecord) ([]domain.ProductDocument, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	// a Caser is stateful and not safe for concurrent use, so each run
	// builds its own
	titler := cases.Title(language.English)
	documents := make([]domain.ProductDocument, 0, len(records))
	for _, rec := range records {
		documents = append(documents, domain.ProductDocument{
			SearchText:  searchText(rec, titler),
			ContextText: contextText(rec, titler),
		})
	}
	return documents, nil
}

func searchText(rec domain.ProductRecord, titler cases.Caser) string {
	return fmt.Sprintf(
		"Product Name: %s. Suitable for Skin Types: %s. Features and Highlights: %s. Category: %s. Ingredients: %s.",
		rec.Name, skinTypeSummary(rec, titler), rec.Highlights, rec.Category, orFallback(rec.Ingredients, notSpecified),
	)
}

func contextText(rec domain.ProductRecord, titler cases.Caser) string {
	stock := "Out of Stock"
	if rec.InStock {
		stock = "In Stock"
	}
	summary := skinTypeSummary(rec, titler)
	if summary == notSpecified {
		summary = "N/A"
	}
	lines := []string{
		"Product Name: " + rec.Name,
		"Category: " + rec.Category,
		"Skin Type Information: " + summary,
		fmt.Sprintf("Price: USD %.2f", rec.Price),
		"Stock: " + stock,
		"Highlights: " + orFallback(rec.Highlights, "N/A"),
		"Ingredients: " + orFallback(rec.Ingredients, "N/A"),
	}
	return strings.Join(lines, "\n")
}

// skinTypeSummary merges the skin_type column with trigger phrases found in
// the highlights. The dedup check against triggers is a case-insensitive
// substring match on the existing tags, not set equality: a tag "Dry Skin"
// from the column suppresses the "dry skin" trigger.
func skinTypeSummary(rec domain.ProductRecord, titler cases.Caser) string {
	tags := make(map[string]struct{})
	for _, token := range strings.Split(rec.SkinType, ";") {
		token = strings.TrimSpace(token)
		if token != "" {
			tags[titler.String(token)] = struct{}{}
		}
	}

	highlights := strings.ToLower(rec.Highlights)
	for _, trigger := range skinTypeTriggers {
		if !strings.Contains(highlights, trigger.phrase) {
			continue
		}
		present := false
		for tag := range tags {
			if strings.Contains(strings.ToLower(tag), trigger.phrase) {
				present = true
				break
			}
		}
		if !present {
			tags[trigger.label] = struct{}{}
		}
	}

	if len(tags) == 0 {
		return notSpecified
	}
	sorted := make([]string, 0, len(tags))
	for tag := range tags {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "; ")
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
