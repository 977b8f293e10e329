package model

import (
	"time"

	"github.com/google/uuid"
)

// EventInfo holds event details extracted from a candidate's text.
type EventInfo struct {
	Title         string     `json:"title,omitempty"`
	DateText      string     `json:"date_text,omitempty"`
	Date          *time.Time `json:"date,omitempty"`
	HasFutureDate bool       `json:"has_future_date"`
}

// ContactInfo holds contact details scraped from a candidate's text.
type ContactInfo struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// CandidateRecord is a single discovered search result before
// classification. Candidates are created per result, consumed by
// deduplication and classification, and discarded after lead assembly.
type CandidateRecord struct {
	ID      string      `json:"id"`
	URL     string      `json:"url"`
	Title   string      `json:"title"`
	Snippet string      `json:"snippet,omitempty"`
	Event   EventInfo   `json:"event"`
	Contact ContactInfo `json:"contact"`
	OrgName string      `json:"org_name,omitempty"`

	// Seed marks a synthetic candidate injected by the escalation
	// fallback; the flag is carried through to any derived lead.
	Seed bool `json:"seed,omitempty"`
}

// NewCandidate creates a candidate with a fresh id.
func NewCandidate(url, title, snippet string) CandidateRecord {
	return CandidateRecord{
		ID:      uuid.New().String(),
		URL:     url,
		Title:   title,
		Snippet: snippet,
	}
}

// ClassificationOutcome is the classifier's verdict for one candidate.
// Immutable once produced; cached keyed by URL+title+threshold variant.
type ClassificationOutcome struct {
	IsRelevant     bool      `json:"is_relevant"`
	Confidence     float64   `json:"confidence"`
	TravelKeyword  bool      `json:"travel_keyword"`
	AuctionKeyword bool      `json:"auction_keyword"`
	Reasoning      string    `json:"reasoning,omitempty"`
	Model          string    `json:"model,omitempty"`
	ClassifiedAt   time.Time `json:"classified_at"`
}

// VerificationSource tags where a verification answer came from.
type VerificationSource string

const (
	VerificationRegistryPrimary  VerificationSource = "registry-primary"
	VerificationRegistryFallback VerificationSource = "registry-fallback"
	VerificationManual           VerificationSource = "manual"
)

// VerificationOutcome is the registry lookup result for one organization
// name. Cached keyed by organization name.
type VerificationOutcome struct {
	Verified   bool               `json:"verified"`
	RegistryID string             `json:"registry_id,omitempty"`
	Source     VerificationSource `json:"source"`
	Details    map[string]any     `json:"details,omitempty"`
}
