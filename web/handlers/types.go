// Package handlers provides HTTP handlers and middleware for the Casetrail
// API.
package handlers

import (
	"github.com/scrypster/casetrail/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// EventsResponse wraps a timeline event list.
type EventsResponse struct {
	Events []types.TimelineEvent `json:"events"`
}

// EventResponse wraps a single timeline event.
type EventResponse struct {
	Event *types.TimelineEvent `json:"event"`
}

// GroupedEventsResponse wraps the per-subject grouped feed.
type GroupedEventsResponse struct {
	Grouped []types.SubjectEvents `json:"grouped"`
}

// RemindersResponse wraps a reminder list.
type RemindersResponse struct {
	Reminders []types.Reminder `json:"reminders"`
}

// ReminderResponse wraps a single reminder.
type ReminderResponse struct {
	Reminder *types.Reminder `json:"reminder"`
}

// CalendarEventsResponse wraps the merged calendar feed.
type CalendarEventsResponse struct {
	Events []types.CalendarDisplayEvent `json:"events"`
}

// SuccessResponse is returned by idempotent deletes.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// LovedOneResponse wraps a single loved-one case.
type LovedOneResponse struct {
	LovedOne *types.LovedOne `json:"lovedOne"`
}
