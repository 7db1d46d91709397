package types

import "time"

// TimelineEvent represents one fact in a case's history. Events are owned by
// exactly one loved-one subject. EventType, Timestamp, and SubjectID are
// immutable after creation; Description, Location, and Metadata may be
// updated.
type TimelineEvent struct {
	// ID uniquely identifies the event (generated on creation).
	ID string `json:"id"`

	// SubjectID is the ID of the owning loved-one case.
	SubjectID string `json:"subjectId"`

	// EventType is one of ValidEventTypes.
	EventType string `json:"eventType"`

	// Description is free-text detail about the event.
	Description string `json:"description"`

	// Timestamp is when the event occurred (caller-supplied, or the
	// creation time when omitted).
	Timestamp time.Time `json:"timestamp"`

	// CreatedBy identifies the actor that recorded the event.
	CreatedBy string `json:"createdBy"`

	// Location is optional free-text location detail.
	Location string `json:"location,omitempty"`

	// Metadata carries optional source-specific key/value detail.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the record was written.
	CreatedAt time.Time `json:"createdAt"`

	// Subject is the owning case summary. Populated by joined feed queries,
	// nil on per-subject reads.
	Subject *SubjectSummary `json:"subject,omitempty"`
}

// SubjectSummary is a condensed view of a loved-one case, attached to feed
// results so callers don't need a second lookup per event.
type SubjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Community string `json:"community,omitempty"`
}

// SubjectEvents groups a subject's events for the grouped feed view.
// Events are ordered ascending by timestamp.
type SubjectEvents struct {
	Subject SubjectSummary  `json:"subject"`
	Events  []TimelineEvent `json:"events"`
}

// LovedOne is the case subject that owns a timeline.
type LovedOne struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Status is one of the loved-one status constants. New cases default
	// to StatusMissing.
	Status string `json:"status"`

	// Community is the community or region associated with the case.
	Community string `json:"community,omitempty"`

	// IncidentDate is when the person went missing, when known. Backfill
	// uses it as the timestamp for a synthesized CaseOpened event.
	IncidentDate *time.Time `json:"incidentDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the condensed view of the loved one.
func (l *LovedOne) Summary() SubjectSummary {
	return SubjectSummary{
		ID:        l.ID,
		Name:      l.Name,
		Status:    l.Status,
		Community: l.Community,
	}
}
