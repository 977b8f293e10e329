package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/model"
)

// escalate enforces the minimum-yield guarantee. It is a small state
// machine over {NormalSearch, RelaxedSearch, SeedFallback} with a single
// termination condition: the floor is met or the attempts are exhausted.
// Each relaxed attempt lowers the acceptance threshold by a fixed
// decrement (bounded below by the floor value) and reprocesses a fresh
// batch from the same queries; once the configured attempt number is
// reached, hand-authored seed candidates are injected at the deeply
// relaxed seed threshold instead. Falling short after all attempts is
// reported, never fatal.
func (p *Pipeline) escalate(ctx context.Context, qs []model.SearchQuery, unique []model.Lead, result *model.RunResult, log *zap.Logger) []model.Lead {
	floor := p.cfg.Pipeline.MinLeads
	maxAttempts := p.cfg.Pipeline.MaxEscalations

	for attempt := 1; attempt <= maxAttempts && len(unique) < floor; attempt++ {
		state := model.StateRelaxedSearch
		if attempt >= p.cfg.Pipeline.SeedAttempt {
			state = model.StateSeedFallback
		}

		before := len(unique)
		var threshold float64
		var fresh []model.Lead

		switch state {
		case model.StateRelaxedSearch:
			threshold = p.relaxedThreshold(attempt)
			log.Info("pipeline: escalating with relaxed threshold",
				zap.Int("attempt", attempt),
				zap.Float64("threshold", threshold),
			)
			candidates := p.collect(ctx, qs, log)
			deduped, _ := p.dedup.DeduplicateBatch(candidates)
			outcomes := p.classifyBatch(ctx, deduped, threshold, log)
			result.Outcomes = appendOutcomes(result.Outcomes, outcomes)
			fresh = p.assembleLeads(ctx, deduped, outcomes, threshold, log)

		case model.StateSeedFallback:
			threshold = p.cfg.Pipeline.SeedThreshold
			log.Info("pipeline: escalating with seed fallback",
				zap.Int("attempt", attempt),
				zap.Float64("threshold", threshold),
				zap.Int("seeds", len(p.seeds)),
			)
			seeds := p.seedCandidates()
			outcomes := p.classifyBatch(ctx, seeds, threshold, log)
			result.Outcomes = appendOutcomes(result.Outcomes, outcomes)
			fresh = p.assembleLeads(ctx, seeds, outcomes, threshold, log)
		}

		unique = p.mergeNovel(ctx, unique, fresh, log)

		result.Escalations = append(result.Escalations, model.EscalationRecord{
			Attempt:     attempt,
			State:       state,
			Threshold:   threshold,
			LeadsBefore: before,
			LeadsAfter:  len(unique),
		})
	}

	return unique
}

// relaxedThreshold lowers the base threshold by the per-attempt
// decrement, never dropping below the configured floor value.
func (p *Pipeline) relaxedThreshold(attempt int) float64 {
	t := p.cfg.Pipeline.BaseThreshold - float64(attempt)*p.cfg.Pipeline.ThresholdDecrement
	if t < p.cfg.Pipeline.ThresholdFloor {
		t = p.cfg.Pipeline.ThresholdFloor
	}
	return t
}

// mergeNovel history-filters fresh leads and appends the keepers,
// respecting the per-run cap.
func (p *Pipeline) mergeNovel(ctx context.Context, unique, fresh []model.Lead, log *zap.Logger) []model.Lead {
	for _, lead := range p.filterSeenLeads(ctx, fresh, log) {
		if p.cfg.Pipeline.MaxLeads > 0 && len(unique) >= p.cfg.Pipeline.MaxLeads {
			break
		}
		if containsURL(unique, lead.URL) {
			continue
		}
		unique = append(unique, lead)
	}
	return unique
}

func containsURL(leads []model.Lead, url string) bool {
	for _, l := range leads {
		if l.URL == url {
			return true
		}
	}
	return false
}
