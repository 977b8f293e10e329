package pipeline

import (
	"context"

	"github.com/sells-group/eventscout/internal/history"
	"github.com/sells-group/eventscout/internal/model"
	"github.com/sells-group/eventscout/pkg/search"
)

// mockGenerator implements queries.Generator for testing.
type mockGenerator struct {
	queries []model.SearchQuery
	err     error
}

func (m *mockGenerator) Generate(_ context.Context) ([]model.SearchQuery, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.queries, nil
}

// mockSearch implements search.Client for testing.
type mockSearch struct {
	responses map[string][]search.Result
	errors    map[string]error
	calls     map[string]int
}

func (m *mockSearch) Search(_ context.Context, query string) ([]search.Result, error) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[query]++
	if err, ok := m.errors[query]; ok {
		return nil, err
	}
	return m.responses[query], nil
}

// mockClassifier implements classifier.Client for testing, keyed by
// candidate URL.
type mockClassifier struct {
	outcomes map[string]*model.ClassificationOutcome
	errURLs  map[string]error
	calls    map[string]int
}

func (m *mockClassifier) Classify(_ context.Context, cand model.CandidateRecord) (*model.ClassificationOutcome, error) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[cand.URL]++
	if err, ok := m.errURLs[cand.URL]; ok {
		return nil, err
	}
	if out, ok := m.outcomes[cand.URL]; ok {
		c := *out
		return &c, nil
	}
	return &model.ClassificationOutcome{IsRelevant: false}, nil
}

// mockRegistry implements registry.Client for testing, keyed by org name.
type mockRegistry struct {
	outcomes map[string]*model.VerificationOutcome
	calls    map[string]int
}

func (m *mockRegistry) VerifyByName(_ context.Context, orgName string) (*model.VerificationOutcome, error) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[orgName]++
	if out, ok := m.outcomes[orgName]; ok {
		c := *out
		return &c, nil
	}
	return &model.VerificationOutcome{Verified: false}, nil
}

// mockSink implements sink.Sink for testing.
type mockSink struct {
	written [][]model.Lead
	err     error
}

func (m *mockSink) Write(_ context.Context, leads []model.Lead) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, leads)
	return nil
}

// mockHistory implements history.Store with the same record-on-miss
// behavior as the real stores: the first check for an identity admits
// and records it, repeats are duplicates.
type mockHistory struct {
	seenQueries map[string]bool
	seenURLs    map[string]bool
	queryErr    error
	leadErr     error
	recorded    []model.Lead
}

var _ history.Store = (*mockHistory)(nil)

func (m *mockHistory) IsDuplicateQuery(_ context.Context, text string) (bool, error) {
	if m.queryErr != nil {
		return false, m.queryErr
	}
	if m.seenQueries == nil {
		m.seenQueries = make(map[string]bool)
	}
	if m.seenQueries[text] {
		return true, nil
	}
	m.seenQueries[text] = true
	return false, nil
}

func (m *mockHistory) IsDuplicateLead(_ context.Context, lead model.Lead) (bool, error) {
	if m.leadErr != nil {
		return false, m.leadErr
	}
	if m.seenURLs == nil {
		m.seenURLs = make(map[string]bool)
	}
	if m.seenURLs[lead.URL] {
		return true, nil
	}
	m.seenURLs[lead.URL] = true
	m.recorded = append(m.recorded, lead)
	return false, nil
}

func (m *mockHistory) PruneExpired(_ context.Context) (int64, error) { return 0, nil }

func (m *mockHistory) Stats(_ context.Context) (history.Stats, error) {
	return history.Stats{Queries: len(m.seenQueries), Leads: len(m.seenURLs)}, nil
}

func (m *mockHistory) Close() error { return nil }
