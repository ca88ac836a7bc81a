// Package ingest reads sales exports and category reference sheets into
// the row types the association builder consumes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/models"
)

var (
	ErrMissingColumn     = errors.New("missing required column")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Column headers of the sales export and the category sheet
const (
	ColumnTransaction = "VchNo"
	ColumnProduct     = "Product Name"
	ColumnPrice       = "Price"
	ColumnItem        = "Item"
	ColumnCategory    = "Category"
)

// Loader produces a dataset for a model build
type Loader interface {
	Load(ctx context.Context) (models.Dataset, error)
}

// FileLoader reads sales from .csv or .parquet and categories from .xlsx or .csv
type FileLoader struct {
	SalesPath      string
	CategoriesPath string
}

// NewFileLoader creates a new file loader
func NewFileLoader(salesPath, categoriesPath string) *FileLoader {
	return &FileLoader{SalesPath: salesPath, CategoriesPath: categoriesPath}
}

// Load reads both files
func (l *FileLoader) Load(ctx context.Context) (models.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return models.Dataset{}, err
	}

	sales, skipped, err := ReadSalesFile(l.SalesPath)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to read sales %s: %w", l.SalesPath, err)
	}

	if err := ctx.Err(); err != nil {
		return models.Dataset{}, err
	}

	categories, err := ReadCategoriesFile(l.CategoriesPath)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to read categories %s: %w", l.CategoriesPath, err)
	}

	logging.Info().
		Str("sales", l.SalesPath).
		Str("categories", l.CategoriesPath).
		Int("sale_rows", len(sales)).
		Int("category_rows", len(categories)).
		Int("skipped", skipped).
		Msg("Loaded dataset")

	return models.Dataset{Sales: sales, Categories: categories, Skipped: skipped}, nil
}

// ReadSalesFile dispatches on the file extension
func ReadSalesFile(path string) ([]models.SaleRow, int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return readSalesCSVFile(path)
	case ".parquet":
		return readSalesParquet(path)
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadCategoriesFile dispatches on the file extension
func ReadCategoriesFile(path string) ([]models.CategoryRow, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return readCategoriesXLSX(path)
	case ".csv":
		return readCategoriesCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// header maps column names to positions, ignoring case and surrounding spaces
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func (h header) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		pos, ok := h[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		idx[i] = pos
	}
	return idx, nil
}

// cell returns the trimmed value at i, or "" when the row is short
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
