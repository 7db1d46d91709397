// Package types defines the core data structures for the Casetrail case
// tracking system: timeline events, reminders, loved-one case subjects,
// and the derived calendar projection used by dashboard views.
package types

// Timeline event type constants. This is the closed set of persistable
// event types; creation with any other value is rejected.
const (
	EventCaseOpened       = "CaseOpened"
	EventMissingReported  = "MissingReported"
	EventLastSeen         = "LastSeen"
	EventSighting         = "Sighting"
	EventStatusChanged    = "StatusChanged"
	EventSearchDispatched = "SearchDispatched"
	EventTipReceived      = "TipReceived"
	EventNoteAdded        = "NoteAdded"
	EventFound            = "Found"
	EventCaseClosed       = "CaseClosed"
)

// ValidEventTypes is a slice of all valid timeline event types for validation.
var ValidEventTypes = []string{
	EventCaseOpened,
	EventMissingReported,
	EventLastSeen,
	EventSighting,
	EventStatusChanged,
	EventSearchDispatched,
	EventTipReceived,
	EventNoteAdded,
	EventFound,
	EventCaseClosed,
}

// IsValidEventType checks if the given event type is valid. The match is
// case-sensitive.
func IsValidEventType(eventType string) bool {
	for _, validType := range ValidEventTypes {
		if validType == eventType {
			return true
		}
	}
	return false
}

// Calendar-visible event types. These are the types shown on calendar and
// dashboard views. CourtDate and Meeting are reserved for future appointment
// types and are not in the persistable set.
const (
	EventCourtDate = "CourtDate"
	EventMeeting   = "Meeting"
)

// DefaultImportantEventTypes is the default set of event types surfaced on
// the calendar. The aggregator takes this as injected configuration so tests
// and deployments can override it.
var DefaultImportantEventTypes = []string{
	EventSighting,
	EventTipReceived,
	EventStatusChanged,
	EventSearchDispatched,
	EventFound,
	EventCaseClosed,
	EventCourtDate,
	EventMeeting,
}

// Reminder priority constants.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriorities is a slice of all valid reminder priorities for validation.
var ValidPriorities = []string{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

// IsValidPriority checks if the given priority is valid.
func IsValidPriority(priority string) bool {
	for _, valid := range ValidPriorities {
		if valid == priority {
			return true
		}
	}
	return false
}

// Reminder type constants.
const (
	ReminderFollowup    = "followup"
	ReminderCourt       = "court"
	ReminderCheckin     = "checkin"
	ReminderAnniversary = "anniversary"
	ReminderOther       = "other"
)

// ValidReminderTypes is a slice of all valid reminder types for validation.
var ValidReminderTypes = []string{
	ReminderFollowup,
	ReminderCourt,
	ReminderCheckin,
	ReminderAnniversary,
	ReminderOther,
}

// IsValidReminderType checks if the given reminder type is valid.
func IsValidReminderType(reminderType string) bool {
	for _, valid := range ValidReminderTypes {
		if valid == reminderType {
			return true
		}
	}
	return false
}

// Related-entity kind constants for reminders.
const (
	RelatedToCase     = "case"
	RelatedToLovedOne = "lovedOne"
	RelatedToNone     = "none"
)

// IsValidRelatedToType checks if the given related-to kind is valid.
func IsValidRelatedToType(relatedToType string) bool {
	switch relatedToType {
	case RelatedToCase, RelatedToLovedOne, RelatedToNone:
		return true
	}
	return false
}

// Loved-one case status constants. StatusFound is set as a side effect of
// recording a Found timeline event.
const (
	StatusMissing = "Missing"
	StatusFound   = "Found"
	StatusClosed  = "Closed"
)
