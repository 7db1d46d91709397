package types

import "time"

// Calendar display event source kinds.
const (
	CalendarTypeReminder = "reminder"
	CalendarTypeTimeline = "timeline"
)

// CalendarDisplayEvent is a derived, read-only projection of a reminder or
// timeline event for calendar rendering. It is never persisted. Start and
// End are both set to the single instant for point events.
type CalendarDisplayEvent struct {
	// ID is prefixed by source: "reminder-<id>" or "timeline-<id>".
	ID string `json:"id"`

	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// AllDay is always false in the current scope.
	AllDay bool `json:"allDay"`

	// Type is CalendarTypeReminder or CalendarTypeTimeline.
	Type string `json:"type"`

	Color     string `json:"color"`
	TextColor string `json:"textColor"`

	// ExtendedProps carries source-specific detail for the presentation
	// layer (overdue flag, subject info, etc).
	ExtendedProps map[string]interface{} `json:"extendedProps,omitempty"`
}

// PriorityColors maps reminder priorities to calendar colors.
var PriorityColors = map[string]string{
	PriorityUrgent: "#d32f2f", // red
	PriorityHigh:   "#f57c00", // orange
	PriorityMedium: "#388e3c", // green
	PriorityLow:    "#9e9e9e", // gray
}

// EventTypeColors maps calendar-visible timeline event types to colors.
var EventTypeColors = map[string]string{
	EventSighting:         "#1976d2",
	EventTipReceived:      "#7b1fa2",
	EventStatusChanged:    "#0288d1",
	EventSearchDispatched: "#f57c00",
	EventFound:            "#2e7d32",
	EventCaseClosed:       "#455a64",
	EventCourtDate:        "#c2185b",
	EventMeeting:          "#00796b",
}

// DefaultCalendarColor is used for completed reminders and unrecognized
// event types.
const DefaultCalendarColor = "#9e9e9e"

// CalendarTextColor is the text color applied to all calendar events.
const CalendarTextColor = "#ffffff"

// ColorForPriority returns the calendar color for a reminder. Completed
// reminders are rendered gray regardless of priority.
func ColorForPriority(priority string, completed bool) string {
	if completed {
		return DefaultCalendarColor
	}
	if color, ok := PriorityColors[priority]; ok {
		return color
	}
	return DefaultCalendarColor
}

// ColorForEventType returns the calendar color for a timeline event type,
// defaulting to gray for unrecognized types.
func ColorForEventType(eventType string) string {
	if color, ok := EventTypeColors[eventType]; ok {
		return color
	}
	return DefaultCalendarColor
}
