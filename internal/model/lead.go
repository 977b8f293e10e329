package model

import "time"

// LeadStatus tracks a lead through the sales funnel.
type LeadStatus string

const (
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusRejected  LeadStatus = "rejected"
)

// Lead is a candidate that passed classification and verification and is
// emitted to the output sink. A lead exists only if its classification
// was relevant and its confidence met the threshold in force at creation
// time (base or escalated).
type Lead struct {
	ID           string     `json:"id"`
	OrgName      string     `json:"org_name"`
	RegistryID   string     `json:"registry_id,omitempty"`
	EventName    string     `json:"event_name,omitempty"`
	EventDate    *time.Time `json:"event_date,omitempty"`
	URL          string     `json:"url"`
	Travel       bool       `json:"travel"`
	Auction      bool       `json:"auction"`
	Verified     bool       `json:"verified"`
	Confidence   float64    `json:"confidence"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	Seed         bool       `json:"seed,omitempty"`
	Status       LeadStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
