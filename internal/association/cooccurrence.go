package association

import (
	"fmt"
	"sort"
)

// Partner is a product co-purchased with another one and the number of
// baskets they shared
type Partner struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// CoOccurrence is a symmetric two-level count map: Count(a, b) == Count(b, a)
// and a product is never paired with itself. Missing pairs count as zero.
//
// Partners of a product are kept in the order they were first seen while
// building, which is what ranking uses to break frequency ties.
type CoOccurrence struct {
	counts   map[string]map[string]int
	partners map[string][]string
	pairs    int
}

func newCoOccurrence() *CoOccurrence {
	return &CoOccurrence{
		counts:   make(map[string]map[string]int),
		partners: make(map[string][]string),
	}
}

// add increments a->b and b->a by n. Self-pairs are ignored.
func (c *CoOccurrence) add(a, b string, n int) {
	if a == b || n <= 0 {
		return
	}
	if c.counts[a][b] == 0 {
		c.pairs++
	}
	c.bump(a, b, n)
	c.bump(b, a, n)
}

func (c *CoOccurrence) bump(from, to string, n int) {
	row, ok := c.counts[from]
	if !ok {
		row = make(map[string]int)
		c.counts[from] = row
	}
	if _, seen := row[to]; !seen {
		c.partners[from] = append(c.partners[from], to)
	}
	row[to] += n
}

// Count returns how many baskets contained both a and b
func (c *CoOccurrence) Count(a, b string) int {
	return c.counts[a][b]
}

// Has reports whether the product co-occurred with anything
func (c *CoOccurrence) Has(product string) bool {
	_, ok := c.counts[product]
	return ok
}

// Partners returns a copy of the product's partners in first-seen order
func (c *CoOccurrence) Partners(product string) []Partner {
	keys := c.partners[product]
	out := make([]Partner, 0, len(keys))
	for _, k := range keys {
		out = append(out, Partner{Product: k, Count: c.counts[product][k]})
	}
	return out
}

// Products returns every product with at least one partner, sorted
func (c *CoOccurrence) Products() []string {
	out := make([]string, 0, len(c.counts))
	for p := range c.counts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len is the number of products in the index
func (c *CoOccurrence) Len() int { return len(c.counts) }

// Pairs is the number of distinct unordered product pairs
func (c *CoOccurrence) Pairs() int { return c.pairs }

// Export returns the partner lists keyed by product, suitable for persistence
func (c *CoOccurrence) Export() map[string][]Partner {
	out := make(map[string][]Partner, len(c.counts))
	for p := range c.counts {
		out[p] = c.Partners(p)
	}
	return out
}

// coOccurrenceFromPartners rebuilds an index from exported partner lists,
// rejecting data that breaks symmetry, self-pairing or positive counts.
func coOccurrenceFromPartners(in map[string][]Partner) (*CoOccurrence, error) {
	c := newCoOccurrence()
	for product, partners := range in {
		if len(partners) == 0 {
			continue
		}
		row := make(map[string]int, len(partners))
		order := make([]string, 0, len(partners))
		for _, p := range partners {
			if p.Product == product {
				return nil, fmt.Errorf("product %q is paired with itself", product)
			}
			if p.Count <= 0 {
				return nil, fmt.Errorf("pair %q/%q has non-positive count %d", product, p.Product, p.Count)
			}
			if _, dup := row[p.Product]; dup {
				return nil, fmt.Errorf("pair %q/%q listed twice", product, p.Product)
			}
			row[p.Product] = p.Count
			order = append(order, p.Product)
		}
		c.counts[product] = row
		c.partners[product] = order
	}

	directed := 0
	for a, row := range c.counts {
		for b, n := range row {
			if c.counts[b][a] != n {
				return nil, fmt.Errorf("asymmetric pair %q/%q: %d vs %d", a, b, n, c.counts[b][a])
			}
			directed++
		}
	}
	c.pairs = directed / 2
	return c, nil
}
