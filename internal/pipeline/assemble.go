package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/model"
	"github.com/sells-group/eventscout/internal/resilience"
)

// classifyBatch classifies every candidate through the cached external
// classifier. The cache key carries the threshold variant so a relaxed
// escalation pass is a distinct cache entry. Failures skip the single
// candidate. Seed candidates are pre-labeled and never reach the
// external classifier.
func (p *Pipeline) classifyBatch(ctx context.Context, cands []model.CandidateRecord, threshold float64, log *zap.Logger) map[string]*model.ClassificationOutcome {
	out := make(map[string]*model.ClassificationOutcome, len(cands))

	for _, cand := range cands {
		if cand.Seed {
			out[cand.ID] = p.seedOutcome(cand)
			continue
		}

		cand := cand
		key := fmt.Sprintf("%s|%s|%.2f", cand.URL, cand.Title, threshold)
		outcome, cached, err := p.classifyMemo.Do(ctx, key, p.tracker.ClassifyEstimate(), func(ctx context.Context) (*model.ClassificationOutcome, error) {
			return resilience.Do(ctx, p.classifyCaller, "classify", func(ctx context.Context) (*model.ClassificationOutcome, error) {
				return p.classifier.Classify(ctx, cand)
			})
		})
		if err != nil {
			log.Warn("pipeline: classification failed, skipping candidate",
				zap.String("url", cand.URL), zap.Error(err))
			continue
		}
		if cached {
			log.Debug("pipeline: classification served from cache", zap.String("key", key))
		}
		out[cand.ID] = outcome
	}

	return out
}

// verifyBatch verifies every candidate's organization through the cached
// external verifier, keyed by organization name.
func (p *Pipeline) verifyBatch(ctx context.Context, cands []model.CandidateRecord, log *zap.Logger) map[string]*model.VerificationOutcome {
	out := make(map[string]*model.VerificationOutcome)

	for _, cand := range cands {
		org := cand.OrgName
		if org == "" {
			continue
		}
		if _, done := out[org]; done {
			continue
		}

		if cand.Seed {
			// Seeds are hand-authored pairs; mark them manually
			// verified so provenance stays traceable.
			out[org] = &model.VerificationOutcome{
				Verified: true,
				Source:   model.VerificationManual,
			}
			continue
		}

		outcome, _, err := p.verifyMemo.Do(ctx, org, p.tracker.VerifyEstimate(), func(ctx context.Context) (*model.VerificationOutcome, error) {
			return resilience.Do(ctx, p.verifyCaller, "verify", func(ctx context.Context) (*model.VerificationOutcome, error) {
				return p.registry.VerifyByName(ctx, org)
			})
		})
		if err != nil {
			log.Warn("pipeline: verification failed, treating org as unverified",
				zap.String("org", org), zap.Error(err))
			outcome = &model.VerificationOutcome{Verified: false}
		}
		out[org] = outcome
	}

	return out
}

// assembleLeads turns candidates into leads. A candidate yields a lead
// iff its classification is relevant and its confidence meets the
// threshold in force. Discovery order is preserved; the list is capped
// at the per-run maximum.
func (p *Pipeline) assembleLeads(ctx context.Context, cands []model.CandidateRecord, outcomes map[string]*model.ClassificationOutcome, threshold float64, log *zap.Logger) []model.Lead {
	verifications := p.verifyBatch(ctx, cands, log)

	var leads []model.Lead
	for _, cand := range cands {
		if p.cfg.Pipeline.MaxLeads > 0 && len(leads) >= p.cfg.Pipeline.MaxLeads {
			break
		}

		outcome := outcomes[cand.ID]
		if outcome == nil || !outcome.IsRelevant || outcome.Confidence < threshold {
			continue
		}

		lead := p.buildLead(cand, outcome, verifications[cand.OrgName])
		leads = append(leads, lead)
	}

	log.Info("pipeline: leads assembled",
		zap.Int("candidates", len(cands)),
		zap.Int("leads", len(leads)),
		zap.Float64("threshold", threshold),
	)
	return leads
}

func (p *Pipeline) buildLead(cand model.CandidateRecord, outcome *model.ClassificationOutcome, verification *model.VerificationOutcome) model.Lead {
	now := p.now().UTC()
	lead := model.Lead{
		ID:         cand.ID,
		OrgName:    cand.OrgName,
		EventName:  cand.Event.Title,
		EventDate:  cand.Event.Date,
		URL:        cand.URL,
		Travel:     outcome.TravelKeyword,
		Auction:    outcome.AuctionKeyword,
		Confidence: outcome.Confidence,
		Seed:       cand.Seed,
		Status:     model.LeadStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(cand.Contact.Emails) > 0 {
		lead.ContactEmail = cand.Contact.Emails[0]
	}
	if len(cand.Contact.Phones) > 0 {
		lead.ContactPhone = cand.Contact.Phones[0]
	}
	if verification != nil {
		lead.Verified = verification.Verified
		lead.RegistryID = verification.RegistryID
	}
	return lead
}

// seedOutcome materializes the pre-labeled classification for a seed
// candidate.
func (p *Pipeline) seedOutcome(cand model.CandidateRecord) *model.ClassificationOutcome {
	conf := p.seedConfidence[cand.URL]
	return &model.ClassificationOutcome{
		IsRelevant:   true,
		Confidence:   conf,
		Reasoning:    "hand-authored seed candidate",
		Model:        "seed",
		ClassifiedAt: time.Now().UTC(),
	}
}
