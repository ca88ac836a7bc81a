package ingest

import (
	"fmt"
	"math"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/yishak-cs/basket-recommender/internal/models"
)

// SalesParquetRow is the column layout expected in parquet sales exports
type SalesParquetRow struct {
	TransactionID string  `parquet:"vch_no"`
	ProductName   string  `parquet:"product_name"`
	Price         float64 `parquet:"price"`
}

func readSalesParquet(path string) ([]models.SaleRow, int, error) {
	rows, err := parquet.ReadFile[SalesParquetRow](path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read parquet file: %w", err)
	}

	var (
		sales   []models.SaleRow
		skipped int
	)
	for _, r := range rows {
		product := strings.TrimSpace(r.ProductName)
		if product == "" || r.Price < 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
			skipped++
			continue
		}
		sales = append(sales, models.SaleRow{
			TransactionID: strings.TrimSpace(r.TransactionID),
			Product:       product,
			Price:         r.Price,
		})
	}
	return sales, skipped, nil
}
