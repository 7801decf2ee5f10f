package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"beautybot/internal/domain"
)

// Load reads the product catalog. The cleaned export is preferred; on any
// read failure the raw export is tried instead, with missing columns
// defaulted. A raw export without a primary_category column falls back to a
// plain category column when one exists.
func Load(cleanedPath, rawPath string) ([]domain.ProductRecord, error) {
	records, err := loadFile(cleanedPath)
	if err == nil {
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s has no rows", domain.ErrDataUnavailable, cleanedPath)
		}
		logrus.WithFields(logrus.Fields{"path": cleanedPath, "products": len(records)}).Info("loaded cleaned product catalog")
		return records, nil
	}
	logrus.WithError(err).WithField("path", cleanedPath).Warn("cleaned catalog unavailable, falling back to raw catalog")

	records, err = loadFile(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows", domain.ErrDataUnavailable, rawPath)
	}
	logrus.WithFields(logrus.Fields{"path": rawPath, "products": len(records)}).Info("loaded raw product catalog")
	return records, nil
}

func loadFile(path string) ([]domain.ProductRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	_, hasPrimaryCategory := columns["primary_category"]

	var records []domain.ProductRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		category := field(row, "primary_category")
		if !hasPrimaryCategory {
			category = field(row, "category")
		}
		records = append(records, domain.ProductRecord{
			Name:        field(row, "product_name"),
			Highlights:  field(row, "highlights"),
			Ingredients: field(row, "ingredients"),
			Category:    category,
			SkinType:    field(row, "skin_type"),
			Price:       parsePrice(field(row, "price_usd")),
			InStock:     parseInStock(field(row, "out_of_stock")),
		})
	}
	return records, nil
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// parseInStock follows the catalog convention that 0 means in stock and
// anything else, including an absent or unparsable value, means out of stock.
func parseInStock(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v == 0
}
