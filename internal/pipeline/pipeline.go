// Package pipeline orchestrates the lead discovery run: query
// generation, search, deduplication, classification, verification,
// lead assembly, history filtering, and the minimum-yield escalation
// machine.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/cache"
	"github.com/sells-group/eventscout/internal/config"
	"github.com/sells-group/eventscout/internal/cost"
	"github.com/sells-group/eventscout/internal/dates"
	"github.com/sells-group/eventscout/internal/dedupe"
	"github.com/sells-group/eventscout/internal/history"
	"github.com/sells-group/eventscout/internal/model"
	"github.com/sells-group/eventscout/internal/queries"
	"github.com/sells-group/eventscout/internal/resilience"
	"github.com/sells-group/eventscout/internal/sink"
	"github.com/sells-group/eventscout/pkg/classifier"
	"github.com/sells-group/eventscout/pkg/registry"
	"github.com/sells-group/eventscout/pkg/search"
)

// Pipeline sequences the discovery stages for one run. Stages execute
// strictly in order on a single logical thread; external calls are
// paced through shared rate-limited callers rather than fanned out.
type Pipeline struct {
	cfg        *config.Config
	history    history.Store
	generator  queries.Generator
	search     search.Client
	classifier classifier.Client
	registry   registry.Client
	sink       sink.Sink

	dedup   *dedupe.Deduplicator
	tracker *cost.Tracker
	window  dates.Window

	searchCaller   *resilience.Caller
	classifyCaller *resilience.Caller
	verifyCaller   *resilience.Caller

	classifyMemo *cache.Memo[*model.ClassificationOutcome]
	verifyMemo   *cache.Memo[*model.VerificationOutcome]

	seeds          []Seed
	seedConfidence map[string]float64
	now            func() time.Time
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	hist history.Store,
	gen queries.Generator,
	searchClient search.Client,
	classifierClient classifier.Client,
	registryClient registry.Client,
	out sink.Sink,
) (*Pipeline, error) {
	tracker := cost.NewTracker(cost.Rates{
		SearchPerQuery:  cfg.Pricing.SearchPerQuery,
		ClassifyPerCall: cfg.Pricing.ClassifyPerCall,
		VerifyPerCall:   cfg.Pricing.VerifyPerCall,
	}, cfg.Pricing.RunBudgetWarnUSD)

	seeds, err := LoadSeeds(cfg.Pipeline.SeedFile)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load seeds")
	}

	window, err := eventWindow(cfg.Pipeline)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: event window")
	}

	p := &Pipeline{
		cfg:            cfg,
		history:        hist,
		generator:      gen,
		search:         searchClient,
		classifier:     classifierClient,
		registry:       registryClient,
		sink:           out,
		dedup:          dedupe.New(cfg.Pipeline.SimilarityThreshold),
		tracker:        tracker,
		window:         window,
		searchCaller: resilience.NewCaller("search", resilience.CallerConfig{
			RatePerSec: cfg.Search.RatePerSec,
			Timeout:    time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		}),
		classifyCaller: resilience.NewCaller("classifier", resilience.CallerConfig{
			RatePerSec: cfg.Classifier.RatePerSec,
			Timeout:    time.Duration(cfg.Classifier.TimeoutSecs) * time.Second,
		}),
		verifyCaller: resilience.NewCaller("registry", resilience.CallerConfig{
			RatePerSec: cfg.Registry.RatePerSec,
			Timeout:    time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
		}),
		seeds: seeds,
		now:   time.Now,
	}
	p.seedConfidence = make(map[string]float64, len(seeds))
	for _, s := range seeds {
		p.seedConfidence[s.URL] = s.Confidence
	}
	p.classifyMemo = cache.NewMemo[*model.ClassificationOutcome](func(usd float64) {
		tracker.Record("classify", usd)
	})
	p.verifyMemo = cache.NewMemo[*model.VerificationOutcome](func(usd float64) {
		tracker.Record("verify", usd)
	})
	return p, nil
}

// eventWindow parses the configured validity interval for candidate
// event dates. An unparsable bound is a configuration error.
func eventWindow(cfg config.PipelineConfig) (dates.Window, error) {
	var w dates.Window
	if cfg.ValidWindowStart != "" {
		t := dates.ParseEventDate(cfg.ValidWindowStart)
		if t == nil {
			return w, eris.Errorf("unparsable valid_window_start %q", cfg.ValidWindowStart)
		}
		w.Start = t
	}
	if cfg.ValidWindowEnd != "" {
		t := dates.ParseEventDate(cfg.ValidWindowEnd)
		if t == nil {
			return w, eris.Errorf("unparsable valid_window_end %q", cfg.ValidWindowEnd)
		}
		w.End = t
	}
	return w, nil
}

// Execute runs the full pipeline once and returns the run result. Only
// two conditions abort a run: query generation failing, and the output
// sink failing after all stages succeed. Everything in between degrades
// per item.
func (p *Pipeline) Execute(ctx context.Context) (*model.RunResult, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))
	started := p.now()

	result := &model.RunResult{RunID: runID}

	// Phase 1: query generation. Fatal on failure: no queries, no work.
	generated, err := p.generator.Generate(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate queries")
	}

	surviving := p.filterSeenQueries(ctx, generated, log)
	result.Queries = surviving
	log.Info("pipeline: queries generated",
		zap.Int("generated", len(generated)),
		zap.Int("surviving", len(surviving)),
		zap.Int("dropped_as_seen", len(generated)-len(surviving)),
	)

	// Phases 2-3: search and deduplicate.
	candidates := p.collect(ctx, surviving, log)
	deduped, removed := p.dedup.DeduplicateBatch(candidates)
	result.Candidates = deduped
	result.DuplicatesRemoved = removed
	log.Info("pipeline: candidates collected",
		zap.Int("raw", len(candidates)),
		zap.Int("unique", len(deduped)),
		zap.Int("duplicates_removed", removed),
	)

	// Phases 4-6: classify, verify, assemble, history-filter at the
	// base threshold.
	threshold := p.cfg.Pipeline.BaseThreshold
	outcomes := p.classifyBatch(ctx, deduped, threshold, log)
	result.Outcomes = appendOutcomes(result.Outcomes, outcomes)
	leads := p.assembleLeads(ctx, deduped, outcomes, threshold, log)
	unique := p.filterSeenLeads(ctx, leads, log)

	// Phase 7: minimum-yield escalation.
	unique = p.escalate(ctx, surviving, unique, result, log)

	result.Leads = unique
	if len(unique) < p.cfg.Pipeline.MinLeads {
		result.Shortfall = true
		log.Error("pipeline: yield below floor after all escalation attempts",
			zap.Int("leads", len(unique)),
			zap.Int("floor", p.cfg.Pipeline.MinLeads),
		)
	}

	// Phase 8: output sink.
	if len(unique) > 0 && !p.cfg.Pipeline.DryRun {
		if err := p.sink.Write(ctx, unique); err != nil {
			// History writes already committed stand; only the run
			// status fails.
			result.Stats = p.stats(result, started)
			return result, eris.Wrap(err, "pipeline: write output")
		}
	}

	// Phase 9: statistics.
	result.Stats = p.stats(result, started)
	log.Info("pipeline: run complete",
		zap.Int("queries", len(result.Queries)),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("leads", len(result.Leads)),
		zap.Bool("shortfall", result.Shortfall),
		zap.Float64("cost_usd", result.Stats.CostUSD),
	)
	return result, nil
}

// filterSeenQueries drops queries whose exact text is in history within
// the re-admission window. History errors degrade to keeping the query.
func (p *Pipeline) filterSeenQueries(ctx context.Context, qs []model.SearchQuery, log *zap.Logger) []model.SearchQuery {
	out := make([]model.SearchQuery, 0, len(qs))
	for _, q := range qs {
		dup, err := p.history.IsDuplicateQuery(ctx, q.Text)
		if err != nil {
			log.Warn("pipeline: query history check failed, keeping query",
				zap.String("query", q.Text), zap.Error(err))
			out = append(out, q)
			continue
		}
		if dup {
			continue
		}
		out = append(out, q)
	}
	return out
}

// filterSeenLeads keeps only leads novel to the identity history; novel
// leads are recorded by the check itself.
func (p *Pipeline) filterSeenLeads(ctx context.Context, leads []model.Lead, log *zap.Logger) []model.Lead {
	out := make([]model.Lead, 0, len(leads))
	for _, lead := range leads {
		dup, err := p.history.IsDuplicateLead(ctx, lead)
		if err != nil {
			log.Warn("pipeline: lead history check failed, dropping lead",
				zap.String("url", lead.URL), zap.Error(err))
			continue
		}
		if dup {
			log.Debug("pipeline: duplicate lead dropped",
				zap.String("org", lead.OrgName), zap.String("url", lead.URL))
			continue
		}
		out = append(out, lead)
	}
	return out
}

func appendOutcomes(dst []model.ClassificationOutcome, src map[string]*model.ClassificationOutcome) []model.ClassificationOutcome {
	for _, o := range src {
		if o != nil {
			dst = append(dst, *o)
		}
	}
	return dst
}
