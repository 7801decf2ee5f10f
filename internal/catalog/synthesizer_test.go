package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"beautybot/internal/domain"
)

func TestSynthesizeEmptyInput(t *testing.T) {
	_, err := Synthesize(nil)
	require.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestSkinTypeSummary(t *testing.T) {
	tests := []struct {
		name       string
		skinType   string
		highlights string
		want       string
	}{
		{
			name: "empty",
			want: "Not specified",
		},
		{
			name:     "column tokens title-cased and sorted",
			skinType: "oily skin;Dry Skin",
			want:     "Dry Skin; Oily Skin",
		},
		{
			name:       "trigger from highlights merged without duplicates",
			skinType:   "Dry Skin;oily skin",
			highlights: "great for sensitive skin and oily skin",
			want:       "Dry Skin; Oily Skin; Sensitive Skin",
		},
		{
			name:       "highlights only",
			highlights: "Works on ALL SKIN TYPES",
			want:       "All Skin Types",
		},
		{
			name:     "whitespace and empty tokens dropped",
			skinType: " dry skin ;; ",
			want:     "Dry Skin",
		},
		{
			name:       "substring dedup is case-insensitive",
			skinType:   "COMBINATION SKIN",
			highlights: "ideal for combination skin",
			want:       "Combination Skin",
		},
	}
	titler := cases.Title(language.English)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := domain.ProductRecord{SkinType: tt.skinType, Highlights: tt.highlights}
			assert.Equal(t, tt.want, skinTypeSummary(rec, titler))
		})
	}
}

func TestSearchTextFormat(t *testing.T) {
	docs, err := Synthesize([]domain.ProductRecord{{
		Name:       "Hydra Serum",
		Highlights: "great for dry skin",
		Category:   "Serum",
		Price:      48.0,
		InStock:    true,
	}})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t,
		"Product Name: Hydra Serum. Suitable for Skin Types: Dry Skin. "+
			"Features and Highlights: great for dry skin. Category: Serum. Ingredients: Not specified.",
		docs[0].SearchText)
}

func TestContextTextFormat(t *testing.T) {
	docs, err := Synthesize([]domain.ProductRecord{{
		Name:       "Hydra Serum",
		Highlights: "great for dry skin",
		Category:   "Serum",
		Price:      48.0,
		InStock:    true,
	}})
	require.NoError(t, err)

	lines := strings.Split(docs[0].ContextText, "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Product Name: Hydra Serum", lines[0])
	assert.Equal(t, "Category: Serum", lines[1])
	assert.Equal(t, "Skin Type Information: Dry Skin", lines[2])
	assert.Equal(t, "Price: USD 48.00", lines[3])
	assert.Equal(t, "Stock: In Stock", lines[4])
	assert.Equal(t, "Highlights: great for dry skin", lines[5])
	assert.Equal(t, "Ingredients: N/A", lines[6])
}

func TestContextTextDefaults(t *testing.T) {
	docs, err := Synthesize([]domain.ProductRecord{{Name: "Bare Product"}})
	require.NoError(t, err)

	context := docs[0].ContextText
	assert.Contains(t, context, "Price: USD 0.00")
	assert.Contains(t, context, "Stock: Out of Stock")
	// the context block uses N/A where the search text says Not specified
	assert.Contains(t, context, "Skin Type Information: N/A")
	assert.Contains(t, context, "Highlights: N/A")
	assert.Contains(t, docs[0].SearchText, "Suitable for Skin Types: Not specified.")
}
