package types

import "time"

// Reminder represents a scheduled, completable task, optionally linked to a
// case or loved one and optionally assigned to an actor.
type Reminder struct {
	// ID uniquely identifies the reminder (generated on creation).
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// DueDate is when the reminder is due.
	DueDate time.Time `json:"dueDate"`

	// CreatedBy identifies the actor that created the reminder.
	CreatedBy string `json:"createdBy"`

	// RelatedToType is one of the related-entity kind constants.
	RelatedToType string `json:"relatedToType,omitempty"`

	// RelatedToID is the ID of the linked case or loved one, when any.
	RelatedToID string `json:"relatedToId,omitempty"`

	// AssignedTo is the email of the assigned actor, when any.
	AssignedTo string `json:"assignedTo,omitempty"`

	// Priority is one of ValidPriorities. Defaults to PriorityMedium.
	Priority string `json:"priority"`

	// ReminderType is one of ValidReminderTypes. Defaults to ReminderOther.
	ReminderType string `json:"reminderType"`

	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`

	// Overdue is derived at read time from DueDate vs the current time.
	// It is never persisted.
	Overdue bool `json:"overdue"`
}

// IsOverdue reports whether the reminder is overdue relative to now:
// not completed and due strictly in the past.
func (r *Reminder) IsOverdue(now time.Time) bool {
	return !r.Completed && r.DueDate.Before(now)
}

// IsUpcoming reports whether the reminder falls in the upcoming window
// [now, now+window]: not completed and due within the window (inclusive).
func (r *Reminder) IsUpcoming(now time.Time, window time.Duration) bool {
	if r.Completed {
		return false
	}
	if r.DueDate.Before(now) {
		return false
	}
	return !r.DueDate.After(now.Add(window))
}
