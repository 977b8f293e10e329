package model

// EscalationState names a state of the minimum-yield escalation machine.
type EscalationState string

const (
	StateNormalSearch  EscalationState = "normal_search"
	StateRelaxedSearch EscalationState = "relaxed_search"
	StateSeedFallback  EscalationState = "seed_fallback"
)

// EscalationRecord captures one escalation attempt for run provenance.
type EscalationRecord struct {
	Attempt     int             `json:"attempt"`
	State       EscalationState `json:"state"`
	Threshold   float64         `json:"threshold"`
	LeadsBefore int             `json:"leads_before"`
	LeadsAfter  int             `json:"leads_after"`
}

// RunStats aggregates end-of-run metrics.
type RunStats struct {
	Processed int `json:"processed"`
	// SuccessRate is leads divided by processed candidates.
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs int64   `json:"avg_latency_ms"`
	// QualityScore is the mean confidence across emitted leads.
	QualityScore float64 `json:"quality_score"`
	CostUSD      float64 `json:"cost_usd"`
}

// RunResult is the full output of one pipeline execution.
type RunResult struct {
	RunID             string                  `json:"run_id"`
	Queries           []SearchQuery           `json:"queries"`
	Candidates        []CandidateRecord       `json:"candidates"`
	DuplicatesRemoved int                     `json:"duplicates_removed"`
	Outcomes          []ClassificationOutcome `json:"outcomes"`
	Leads             []Lead                  `json:"leads"`
	Escalations       []EscalationRecord      `json:"escalations,omitempty"`
	// Shortfall is set when the run completed below the minimum-yield
	// floor after exhausting all escalation attempts.
	Shortfall bool     `json:"shortfall"`
	Stats     RunStats `json:"stats"`
}
