package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yishak-cs/basket-recommender/internal/association"
	"github.com/yishak-cs/basket-recommender/internal/logging"
	"github.com/yishak-cs/basket-recommender/internal/metrics"
)

// ModelHolder publishes the served model. Readers grab the current pointer
// once per query and keep using that model even if a swap happens meanwhile.
type ModelHolder struct {
	current atomic.Pointer[association.Model]
	// reloads run one at a time
	reloadMu sync.Mutex
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewModelHolder creates an empty holder
func NewModelHolder(m *metrics.Metrics) *ModelHolder {
	return &ModelHolder{
		metrics: m,
		log:     logging.With().Str("component", "models").Logger(),
	}
}

// Current returns the served model, or nil before the first load
func (h *ModelHolder) Current() *association.Model {
	return h.current.Load()
}

// Swap publishes m as the served model
func (h *ModelHolder) Swap(m *association.Model) {
	h.current.Store(m)
	h.metrics.ObserveSwap(m.CoOccurrence().Len())
	h.log.Info().
		Str("source", m.Source()).
		Int("products", m.CoOccurrence().Len()).
		Int("pairs", m.CoOccurrence().Pairs()).
		Msg("Serving new model")
}

// Reload obtains a model from src and swaps it in. On failure the served
// model is left untouched.
func (h *ModelHolder) Reload(ctx context.Context, src ModelSource) (*association.Model, error) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	start := time.Now()
	m, err := src.LoadModel(ctx)
	h.metrics.ObserveBuild(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", src.Name(), err)
	}

	h.Swap(m)
	return m, nil
}
