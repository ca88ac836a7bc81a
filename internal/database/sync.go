package database

import (
	"context"
	"fmt"

	"github.com/yishak-cs/basket-recommender/internal/association"
	"github.com/yishak-cs/basket-recommender/internal/logging"
)

// DefaultSyncBatchSize is the number of pairs sent per UNWIND
const DefaultSyncBatchSize = 500

const clearCoOccurrenceQuery = `
	MATCH ()-[r:ORDERED_ALONG_WITH]->()
	DELETE r
`

// Items are matched on their normalized name since the model keys are
// normalized product names.
const mergeCoOccurrenceQuery = `
	UNWIND $pairs AS pair
	MATCH (a:Item) WHERE toLower(trim(a.name)) = pair.a
	MATCH (b:Item) WHERE toLower(trim(b.name)) = pair.b
	MERGE (a)-[r1:ORDERED_ALONG_WITH]->(b)
	SET r1.times = pair.times
	MERGE (b)-[r2:ORDERED_ALONG_WITH]->(a)
	SET r2.times = pair.times
`

const graphStatusQuery = `
	MATCH (o:Order) WITH count(o) AS orders
	MATCH (i:Item) WITH orders, count(i) AS items
	OPTIONAL MATCH ()-[r:ORDERED_ALONG_WITH]->()
	RETURN orders, items, count(r) AS ordered_along_with
`

// GraphStatus summarizes what the graph holds
type GraphStatus struct {
	Orders           int `json:"orders"`
	Items            int `json:"items"`
	OrderedAlongWith int `json:"orderedAlongWith"`
}

// CoOccurrenceSync replaces the ORDERED_ALONG_WITH edges of the graph with
// the counts of a built model
type CoOccurrenceSync struct {
	client    queryRunner
	BatchSize int
}

// NewCoOccurrenceSync creates a sync writing through client
func NewCoOccurrenceSync(client *Neo4jClient) *CoOccurrenceSync {
	return &CoOccurrenceSync{client: client, BatchSize: DefaultSyncBatchSize}
}

// Sync clears existing edges and writes one edge per direction for every
// co-occurring pair. It returns the number of unordered pairs written.
//
// The clear and every batch are separate auto-commit writes, so a failed
// batch leaves the graph holding only the pairs before it; the returned
// count is how many were written. Running Sync again rewrites all edges.
func (s *CoOccurrenceSync) Sync(ctx context.Context, m *association.Model) (int, error) {
	if err := s.client.ExecuteWrite(ctx, clearCoOccurrenceQuery, nil); err != nil {
		return 0, fmt.Errorf("failed to clear ORDERED_ALONG_WITH relationships: %w", err)
	}

	pairs := pairParams(m.CoOccurrence())
	size := s.BatchSize
	if size <= 0 {
		size = DefaultSyncBatchSize
	}

	for start := 0; start < len(pairs); start += size {
		end := min(start+size, len(pairs))
		params := map[string]interface{}{"pairs": pairs[start:end]}
		if err := s.client.ExecuteWrite(ctx, mergeCoOccurrenceQuery, params); err != nil {
			return start, fmt.Errorf("failed to write ORDERED_ALONG_WITH batch at %d: %w", start, err)
		}
		logging.Debug().Int("from", start).Int("to", end).Msg("Wrote co-occurrence batch")
	}

	logging.Info().Int("pairs", len(pairs)).Msg("Synced ORDERED_ALONG_WITH relationships")
	return len(pairs), nil
}

// Status returns node and edge counts
func (s *CoOccurrenceSync) Status(ctx context.Context) (GraphStatus, error) {
	results, err := s.client.ExecuteRead(ctx, graphStatusQuery, nil)
	if err != nil {
		return GraphStatus{}, err
	}
	if len(results) == 0 {
		return GraphStatus{}, nil
	}

	row := results[0]
	return GraphStatus{
		Orders:           toInt(row["orders"]),
		Items:            toInt(row["items"]),
		OrderedAlongWith: toInt(row["ordered_along_with"]),
	}, nil
}

// pairParams lists every unordered pair once, a < b, in sorted order
func pairParams(co *association.CoOccurrence) []map[string]interface{} {
	var pairs []map[string]interface{}
	for _, a := range co.Products() {
		for _, p := range co.Partners(a) {
			if a < p.Product {
				pairs = append(pairs, map[string]interface{}{
					"a":     a,
					"b":     p.Product,
					"times": p.Count,
				})
			}
		}
	}
	return pairs
}
