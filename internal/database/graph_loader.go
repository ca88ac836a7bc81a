package database

import (
	"context"
	"fmt"

	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/models"
)

const salesQuery = `
	MATCH (o:Order)-[hi:HAS_ITEM]->(i:Item)
	RETURN toString(o.db_id) AS transaction_id,
	       i.name AS product,
	       i.price AS price
	ORDER BY o.db_id
`

const categoriesQuery = `
	MATCH (i:Item)
	WHERE i.name IS NOT NULL AND i.category IS NOT NULL
	RETURN i.name AS item, i.category AS category
	ORDER BY i.db_id
`

// GraphLoader reads a dataset from orders stored in Neo4j. Every order is
// a basket and every HAS_ITEM line is one sale row whatever its quantity,
// matching one CSV row per product in a transaction. Orders without a
// db_id yield rows with an empty transaction id.
type GraphLoader struct {
	client queryRunner
}

// NewGraphLoader creates a loader backed by client
func NewGraphLoader(client *Neo4jClient) *GraphLoader {
	return &GraphLoader{client: client}
}

// Load implements ingest.Loader
func (l *GraphLoader) Load(ctx context.Context) (models.Dataset, error) {
	records, err := l.client.ExecuteRead(ctx, salesQuery, nil)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to read orders: %w", err)
	}

	var ds models.Dataset
	for _, rec := range records {
		product := toString(rec["product"])
		price, ok := toFloat(rec["price"])
		if product == "" || !ok || price < 0 {
			ds.Skipped++
			continue
		}

		ds.Sales = append(ds.Sales, models.SaleRow{
			TransactionID: toString(rec["transaction_id"]),
			Product:       product,
			Price:         price,
		})
	}

	records, err = l.client.ExecuteRead(ctx, categoriesQuery, nil)
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to read item categories: %w", err)
	}
	for _, rec := range records {
		ds.Categories = append(ds.Categories, models.CategoryRow{
			Item:     toString(rec["item"]),
			Category: toString(rec["category"]),
		})
	}

	logging.Info().
		Int("sale_rows", len(ds.Sales)).
		Int("category_rows", len(ds.Categories)).
		Int("skipped", ds.Skipped).
		Msg("Loaded dataset from Neo4j")

	return ds, nil
}
