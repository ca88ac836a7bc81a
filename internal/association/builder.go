package association

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/models"
)

// Builder turns sales rows and the category reference sheet into a Model
type Builder struct {
	// Source is recorded on the built model, e.g. "files" or "neo4j"
	Source string
	// Now defaults to time.Now
	Now func() time.Time
}

// Build is shorthand for a Builder with no source label
func Build(sales []models.SaleRow, categories []models.CategoryRow) *Model {
	return Builder{}.Build(sales, categories)
}

// Build groups rows into baskets, counts every pair of distinct products per
// basket, averages prices and joins categories. Missing or empty input yields
// an empty model, never an error.
func (b Builder) Build(sales []models.SaleRow, categories []models.CategoryRow) *Model {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	reference := categoryTable(categories)

	tx := make([]models.TransactionRecord, 0, len(sales))
	baskets := make(map[string][]string)
	priceSum := make(map[string]float64)
	priceRows := make(map[string]int)
	productCategory := make(map[string]string)

	for _, row := range sales {
		product := Normalize(row.Product)
		if product == "" {
			continue
		}
		category := reference[product]

		tx = append(tx, models.TransactionRecord{Product: product, Category: category, Price: row.Price})
		// rows without a transaction id join no basket
		if id := strings.TrimSpace(row.TransactionID); id != "" {
			baskets[id] = append(baskets[id], product)
		}
		priceSum[product] += row.Price
		priceRows[product]++
		if category != "" {
			productCategory[product] = category
		}
	}

	prices := make(map[string]float64, len(priceSum))
	for p, sum := range priceSum {
		prices[p] = sum / float64(priceRows[p])
	}

	co := newCoOccurrence()
	for _, id := range sortedTransactionIDs(baskets) {
		basket := baskets[id]
		for i := 0; i < len(basket); i++ {
			for j := i + 1; j < len(basket); j++ {
				co.add(basket[i], basket[j], 1)
			}
		}
	}

	logging.Debug().
		Int("rows", len(tx)).
		Int("baskets", len(baskets)).
		Int("products", len(prices)).
		Int("pairs", co.Pairs()).
		Msg("Built association model")

	return newModel(co, prices, productCategory, tx, now(), b.Source)
}

// categoryTable keys the reference sheet by normalized item name. The first
// non-empty category for an item wins.
func categoryTable(rows []models.CategoryRow) map[string]string {
	table := make(map[string]string, len(rows))
	for _, r := range rows {
		item := Normalize(r.Item)
		category := strings.TrimSpace(r.Category)
		if item == "" || category == "" {
			continue
		}
		if _, ok := table[item]; !ok {
			table[item] = category
		}
	}
	return table
}

// sortedTransactionIDs puts integer ids first in numeric order, then the
// remaining ids lexicographically.
func sortedTransactionIDs(baskets map[string][]string) []string {
	type key struct {
		id      string
		n       int64
		numeric bool
	}
	keys := make([]key, 0, len(baskets))
	for id := range baskets {
		n, err := strconv.ParseInt(id, 10, 64)
		keys = append(keys, key{id: id, n: n, numeric: err == nil})
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.numeric != b.numeric {
			return a.numeric
		}
		if a.numeric && a.n != b.n {
			return a.n < b.n
		}
		return a.id < b.id
	})

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.id
	}
	return ids
}
