package association

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yishak-cs/basket-recommender/internal/models"
)

// ProductCount is a product and its raw purchase count within a category
type ProductCount struct {
	Product string
	Count   int
}

// Model bundles the co-occurrence, price and category indices with the
// transaction records they were built from. A Model is never modified after
// construction; a rebuild produces a new one.
type Model struct {
	cooccurrence *CoOccurrence
	prices       map[string]float64
	categories   map[string]string
	transactions []models.TransactionRecord

	// category -> products ranked by purchase count
	popularity map[string][]ProductCount

	builtAt time.Time
	source  string
}

// Snapshot is the exported form of a Model used for persistence
type Snapshot struct {
	CoOccurrence map[string][]Partner       `json:"coOccurrence"`
	Prices       map[string]float64         `json:"prices"`
	Categories   map[string]string          `json:"categories"`
	Transactions []models.TransactionRecord `json:"transactions"`
	BuiltAt      time.Time                  `json:"builtAt"`
	Source       string                     `json:"source"`
}

func newModel(co *CoOccurrence, prices map[string]float64, categories map[string]string, tx []models.TransactionRecord, builtAt time.Time, source string) *Model {
	return &Model{
		cooccurrence: co,
		prices:       prices,
		categories:   categories,
		transactions: tx,
		popularity:   rankPopularity(tx),
		builtAt:      builtAt,
		source:       source,
	}
}

// FromSnapshot validates a persisted snapshot and turns it back into a Model
func FromSnapshot(s Snapshot) (*Model, error) {
	co, err := coOccurrenceFromPartners(s.CoOccurrence)
	if err != nil {
		return nil, fmt.Errorf("invalid co-occurrence index: %w", err)
	}

	prices := make(map[string]float64, len(s.Prices))
	for p, v := range s.Prices {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid average price %v for %q", v, p)
		}
		prices[p] = v
	}

	categories := make(map[string]string, len(s.Categories))
	for p, c := range s.Categories {
		if c == "" {
			return nil, fmt.Errorf("empty category for %q", p)
		}
		categories[p] = c
	}

	tx := make([]models.TransactionRecord, len(s.Transactions))
	copy(tx, s.Transactions)

	return newModel(co, prices, categories, tx, s.BuiltAt, s.Source), nil
}

// Snapshot exports the model. The returned maps and slices are copies.
func (m *Model) Snapshot() Snapshot {
	prices := make(map[string]float64, len(m.prices))
	for k, v := range m.prices {
		prices[k] = v
	}
	categories := make(map[string]string, len(m.categories))
	for k, v := range m.categories {
		categories[k] = v
	}
	tx := make([]models.TransactionRecord, len(m.transactions))
	copy(tx, m.transactions)

	return Snapshot{
		CoOccurrence: m.cooccurrence.Export(),
		Prices:       prices,
		Categories:   categories,
		Transactions: tx,
		BuiltAt:      m.builtAt,
		Source:       m.source,
	}
}

// CoOccurrence returns the read-only co-occurrence index
func (m *Model) CoOccurrence() *CoOccurrence { return m.cooccurrence }

// Category returns the product's category, if the reference sheet had one
func (m *Model) Category(product string) (string, bool) {
	c, ok := m.categories[product]
	return c, ok
}

// AvgPrice returns the product's average transaction price
func (m *Model) AvgPrice(product string) (float64, bool) {
	p, ok := m.prices[product]
	return p, ok
}

// TopInCategory returns products of the category ranked by purchase count.
// The slice must not be modified.
func (m *Model) TopInCategory(category string) []ProductCount {
	return m.popularity[category]
}

// Transactions returns a copy of the transaction records
func (m *Model) Transactions() []models.TransactionRecord {
	out := make([]models.TransactionRecord, len(m.transactions))
	copy(out, m.transactions)
	return out
}

// BuiltAt is when the model was built
func (m *Model) BuiltAt() time.Time { return m.builtAt }

// Source names where the model came from
func (m *Model) Source() string { return m.source }

// Empty reports whether the model has no co-occurring products at all
func (m *Model) Empty() bool { return m.cooccurrence.Len() == 0 }

// Status summarizes the model for the status endpoint
func (m *Model) Status() models.ModelStatus {
	labels := make(map[string]struct{})
	for _, c := range m.categories {
		labels[c] = struct{}{}
	}
	return models.ModelStatus{
		Products:     m.cooccurrence.Len(),
		Pairs:        m.cooccurrence.Pairs(),
		Transactions: len(m.transactions),
		Categories:   len(labels),
		BuiltAt:      m.builtAt,
		Source:       m.source,
	}
}

func rankPopularity(tx []models.TransactionRecord) map[string][]ProductCount {
	counts := make(map[string]map[string]int)
	for _, r := range tx {
		if r.Category == "" {
			continue
		}
		byProduct, ok := counts[r.Category]
		if !ok {
			byProduct = make(map[string]int)
			counts[r.Category] = byProduct
		}
		byProduct[r.Product]++
	}

	out := make(map[string][]ProductCount, len(counts))
	for category, byProduct := range counts {
		ranked := make([]ProductCount, 0, len(byProduct))
		for p, n := range byProduct {
			ranked = append(ranked, ProductCount{Product: p, Count: n})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Count != ranked[j].Count {
				return ranked[i].Count > ranked[j].Count
			}
			return ranked[i].Product < ranked[j].Product
		})
		out[category] = ranked
	}
	return out
}
