package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/yishak-cs/basket-recommender/internal/models"
)

// readCategoriesXLSX reads the first sheet of a workbook holding Item and
// Category columns
func readCategoriesXLSX(path string) ([]models.CategoryRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnItem)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, ColumnItem)
	}
	return categoriesFromRows(rows)
}
