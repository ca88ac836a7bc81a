package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/yishak-cs/basket-recommender/internal/models"
)

func readSalesCSVFile(path string) ([]models.SaleRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ReadSalesCSV(f)
}

func readCategoriesCSVFile(path string) ([]models.CategoryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCategoriesCSV(f)
}

// ReadSalesCSV parses a sales export with VchNo, Product Name and Price
// columns. Rows without a product or with an unparsable price are skipped
// and counted.
func ReadSalesCSV(r io.Reader) ([]models.SaleRow, int, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnTransaction)
	}
	return salesFromRows(rows)
}

// ReadCategoriesCSV parses a reference sheet with Item and Category columns
func ReadCategoriesCSV(r io.Reader) ([]models.CategoryRow, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnItem)
	}
	return categoriesFromRows(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		rows = append(rows, rec)
	}
}

// salesFromRows converts a header row plus data rows of a sales CSV
func salesFromRows(rows [][]string) ([]models.SaleRow, int, error) {
	idx, err := newHeader(rows[0]).require(ColumnTransaction, ColumnProduct, ColumnPrice)
	if err != nil {
		return nil, 0, err
	}

	var (
		sales   []models.SaleRow
		skipped int
	)
	for _, row := range rows[1:] {
		product := cell(row, idx[1])
		if product == "" {
			skipped++
			continue
		}
		price, err := parsePrice(cell(row, idx[2]))
		if err != nil {
			skipped++
			continue
		}
		sales = append(sales, models.SaleRow{
			TransactionID: cell(row, idx[0]),
			Product:       product,
			Price:         price,
		})
	}
	return sales, skipped, nil
}

func categoriesFromRows(rows [][]string) ([]models.CategoryRow, error) {
	idx, err := newHeader(rows[0]).require(ColumnItem, ColumnCategory)
	if err != nil {
		return nil, err
	}

	var out []models.CategoryRow
	for _, row := range rows[1:] {
		item := cell(row, idx[0])
		if item == "" {
			continue
		}
		out = append(out, models.CategoryRow{Item: item, Category: cell(row, idx[1])})
	}
	return out, nil
}

// parsePrice accepts plain numbers and thousands separators, e.g. "1,250.00"
func parsePrice(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid price %v", v)
	}
	return v, nil
}
