package services

import (
	"errors"
	"slices"

	"github.com/yishak-cs/basket-recommender/internal/association"
	"github.com/yishak-cs/basket-recommender/internal/metrics"
	"github.com/yishak-cs/basket-recommender/internal/models"
)

// Defaults for Recommend when the caller does not tune the query
const (
	DefaultTopN       = 5
	DefaultPriceRange = 0.2
)

// Fallback tiers, in the order they are applied
const (
	TierStrict     = "strict"
	TierCategory   = "category"
	TierPrice      = "price"
	TierPopularity = "popularity"
)

// ErrNoModel is returned when no model has been loaded yet
var ErrNoModel = errors.New("no model loaded")

// RecommendationService answers "what is bought with X" from the served model
type RecommendationService struct {
	models  *ModelHolder
	metrics *metrics.Metrics
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(holder *ModelHolder, m *metrics.Metrics) *RecommendationService {
	return &RecommendationService{
		models:  holder,
		metrics: m,
	}
}

// Recommend returns up to topN products bought alongside the named product.
// An unknown product yields an empty, non-nil slice.
func (s *RecommendationService) Recommend(product string, topN int, priceRange float64) ([]models.Recommendation, error) {
	m := s.models.Current()
	if m == nil {
		s.metrics.ObserveRequest(metrics.OutcomeNoModel)
		return nil, ErrNoModel
	}

	recs, tiers := recommend(m, product, topN, priceRange)
	if len(recs) == 0 {
		s.metrics.ObserveRequest(metrics.OutcomeUnknown)
	} else {
		s.metrics.ObserveRequest(metrics.OutcomeHit)
	}
	for tier, n := range tiers {
		s.metrics.ObserveTier(tier, n)
	}
	return recs, nil
}

// candidate is a co-purchased product annotated for ranking
type candidate struct {
	product   string
	category  string
	avgPrice  float64
	frequency int
}

// priceBand is the inclusive interval [low, high]
type priceBand struct {
	low, high float64
}

func newPriceBand(avg, fraction float64) priceBand {
	if fraction < 0 {
		fraction = 0
	}
	return priceBand{low: avg * (1 - fraction), high: avg * (1 + fraction)}
}

func (b priceBand) contains(price float64) bool {
	return price >= b.low && price <= b.high
}

// recommend runs the four fallback tiers against one model. It also returns
// how many results each tier contributed.
func recommend(m *association.Model, input string, topN int, priceRange float64) ([]models.Recommendation, map[string]int) {
	out := []models.Recommendation{}
	if topN <= 0 {
		return out, nil
	}

	key := association.Normalize(input)
	category, ok := m.Category(key)
	if !ok || !m.CoOccurrence().Has(key) {
		return out, nil
	}
	avgPrice, _ := m.AvgPrice(key)
	band := newPriceBand(avgPrice, priceRange)

	candidates := collectCandidates(m, key)
	acc := newAccumulator(topN)

	acc.merge(TierStrict, rankByFrequency(filterCandidates(candidates, func(c candidate) bool {
		return c.category == category && band.contains(c.avgPrice)
	})))

	if !acc.full() {
		acc.merge(TierCategory, rankByFrequency(filterCandidates(candidates, func(c candidate) bool {
			return c.category == category
		})))
	}

	if !acc.full() {
		acc.merge(TierPrice, rankByFrequency(filterCandidates(candidates, func(c candidate) bool {
			return band.contains(c.avgPrice)
		})))
	}

	if !acc.full() {
		acc.merge(TierPopularity, categoryPopularity(m, category, key))
	}

	for _, c := range acc.take() {
		out = append(out, models.Recommendation{
			Product:   c.product,
			Category:  c.category,
			AvgPrice:  c.avgPrice,
			Frequency: c.frequency,
		})
	}
	return out, acc.tiers
}

// collectCandidates lists the product's partners in first-seen order, dropping
// any without both a category and an average price.
func collectCandidates(m *association.Model, key string) []candidate {
	partners := m.CoOccurrence().Partners(key)
	out := make([]candidate, 0, len(partners))
	for _, p := range partners {
		category, ok := m.Category(p.Product)
		if !ok {
			continue
		}
		price, ok := m.AvgPrice(p.Product)
		if !ok {
			continue
		}
		out = append(out, candidate{
			product:   p.Product,
			category:  category,
			avgPrice:  price,
			frequency: p.Count,
		})
	}
	return out
}

func filterCandidates(in []candidate, keep func(candidate) bool) []candidate {
	var out []candidate
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// rankByFrequency sorts by descending frequency, keeping input order on ties
func rankByFrequency(in []candidate) []candidate {
	slices.SortStableFunc(in, func(a, b candidate) int {
		return b.frequency - a.frequency
	})
	return in
}

// categoryPopularity ranks every purchased product of the category by its raw
// purchase count. Frequency here is a purchase count, not a co-occurrence count.
func categoryPopularity(m *association.Model, category, exclude string) []candidate {
	ranked := m.TopInCategory(category)
	out := make([]candidate, 0, len(ranked))
	for _, pc := range ranked {
		if pc.Product == exclude {
			continue
		}
		price, _ := m.AvgPrice(pc.Product)
		out = append(out, candidate{
			product:   pc.Product,
			category:  category,
			avgPrice:  price,
			frequency: pc.Count,
		})
	}
	return out
}

// accumulator collects ranked results across tiers without repeating a product
type accumulator struct {
	limit   int
	results []candidate
	seen    map[string]struct{}
	tiers   map[string]int
}

func newAccumulator(limit int) *accumulator {
	return &accumulator{
		limit: limit,
		seen:  make(map[string]struct{}),
		tiers: make(map[string]int),
	}
}

func (a *accumulator) full() bool { return len(a.results) >= a.limit }

func (a *accumulator) merge(tier string, ranked []candidate) {
	for _, c := range ranked {
		if _, dup := a.seen[c.product]; dup {
			continue
		}
		a.seen[c.product] = struct{}{}
		a.results = append(a.results, c)
		if len(a.results) <= a.limit {
			a.tiers[tier]++
		}
	}
}

func (a *accumulator) take() []candidate {
	if len(a.results) > a.limit {
		return a.results[:a.limit]
	}
	return a.results
}
