package model

import "github.com/google/uuid"

// QueryStatus tracks a search query through a run.
type QueryStatus string

const (
	QueryStatusPending    QueryStatus = "pending"
	QueryStatusProcessing QueryStatus = "processing"
	QueryStatusCompleted  QueryStatus = "completed"
	QueryStatusFailed     QueryStatus = "failed"
)

// SearchQuery is a single generated search query. Queries live only for
// the duration of a run; the raw text doubles as the identity-history key.
type SearchQuery struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	PeriodTag   string      `json:"period_tag,omitempty"`
	GeoTag      string      `json:"geo_tag,omitempty"`
	Status      QueryStatus `json:"status"`
	ResultCount int         `json:"result_count"`
}

// NewSearchQuery creates a pending query with a fresh id.
func NewSearchQuery(text, periodTag, geoTag string) SearchQuery {
	return SearchQuery{
		ID:        uuid.New().String(),
		Text:      text,
		PeriodTag: periodTag,
		GeoTag:    geoTag,
		Status:    QueryStatusPending,
	}
}
