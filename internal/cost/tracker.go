package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Rates holds flat per-call pricing for the external collaborators.
type Rates struct {
	SearchPerQuery  float64 `yaml:"search_per_query" mapstructure:"search_per_query"`
	ClassifyPerCall float64 `yaml:"classify_per_call" mapstructure:"classify_per_call"`
	VerifyPerCall   float64 `yaml:"verify_per_call" mapstructure:"verify_per_call"`
}

// Tracker accumulates per-run external spend. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	rates   Rates
	total   float64
	warnAt  float64
	warned  bool
	byCat   map[string]float64
	byCalls map[string]int
}

// NewTracker creates a Tracker with the given rates. warnAt of zero
// disables the budget warning.
func NewTracker(rates Rates, warnAt float64) *Tracker {
	return &Tracker{
		rates:   rates,
		warnAt:  warnAt,
		byCat:   make(map[string]float64),
		byCalls: make(map[string]int),
	}
}

// Record adds a spend amount under a category.
func (t *Tracker) Record(category string, usd float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += usd
	t.byCat[category] += usd
	t.byCalls[category]++

	if t.warnAt > 0 && !t.warned && t.total > t.warnAt {
		t.warned = true
		zap.L().Warn("run budget threshold exceeded",
			zap.Float64("total_usd", t.total),
			zap.Float64("warn_at_usd", t.warnAt),
		)
	}
}

// Search records one search query's cost.
func (t *Tracker) Search() { t.Record("search", t.rates.SearchPerQuery) }

// ClassifyEstimate returns the flat per-call classification cost.
func (t *Tracker) ClassifyEstimate() float64 { return t.rates.ClassifyPerCall }

// VerifyEstimate returns the flat per-call verification cost.
func (t *Tracker) VerifyEstimate() float64 { return t.rates.VerifyPerCall }

// Total returns the accumulated spend in USD.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Calls returns the number of recorded calls for a category.
func (t *Tracker) Calls(category string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byCalls[category]
}
