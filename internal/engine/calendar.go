package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/casetrail/pkg/types"
)

// ReminderSource is the reminder feed consumed by the calendar aggregator.
type ReminderSource interface {
	List(ctx context.Context, filters ReminderFilters) ([]types.Reminder, error)
}

// TimelineSource is the timeline feed consumed by the calendar aggregator.
type TimelineSource interface {
	AllEvents(ctx context.Context, filters EventFeedFilters) ([]types.TimelineEvent, error)
}

// CalendarAggregator merges reminders and calendar-important timeline events
// into one stable-sorted display-event sequence. Aggregation is
// all-or-nothing: any sub-fetch failure fails the whole request.
type CalendarAggregator struct {
	reminders ReminderSource
	timeline  TimelineSource
	important map[string]bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewCalendarAggregator creates an aggregator over the two sources.
// importantTypes is the set of timeline event types surfaced on the
// calendar; empty means types.DefaultImportantEventTypes.
func NewCalendarAggregator(reminders ReminderSource, timeline TimelineSource, importantTypes []string, logger *zap.Logger) *CalendarAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(importantTypes) == 0 {
		importantTypes = types.DefaultImportantEventTypes
	}
	important := make(map[string]bool, len(importantTypes))
	for _, t := range importantTypes {
		important[t] = true
	}
	return &CalendarAggregator{
		reminders: reminders,
		timeline:  timeline,
		important: important,
		logger:    logger,
		now:       time.Now,
	}
}

// CalendarQuery scopes a calendar aggregation.
type CalendarQuery struct {
	Start       time.Time
	End         time.Time
	AssignedTo  string
	RelatedToID string

	// IncludeReminders and IncludeTimeline select the source streams.
	IncludeReminders bool
	IncludeTimeline  bool
}

// CalendarEvents merges the selected source streams into one sequence
// ordered ascending by start time. The sort is stable: ties keep original
// discovery order, reminders before timeline events.
func (a *CalendarAggregator) CalendarEvents(ctx context.Context, q CalendarQuery) ([]types.CalendarDisplayEvent, error) {
	events := make([]types.CalendarDisplayEvent, 0)
	now := a.now().UTC()

	if q.IncludeReminders {
		reminders, err := a.reminders.List(ctx, ReminderFilters{
			StartDate:   &q.Start,
			EndDate:     &q.End,
			AssignedTo:  q.AssignedTo,
			RelatedToID: q.RelatedToID,
		})
		if err != nil {
			return nil, fmt.Errorf("calendar aggregation failed fetching reminders: %w", err)
		}
		for _, reminder := range reminders {
			events = append(events, reminderDisplayEvent(reminder, now))
		}
	}

	if q.IncludeTimeline {
		timelineEvents, err := a.timeline.AllEvents(ctx, EventFeedFilters{
			StartDate: &q.Start,
			EndDate:   &q.End,
		})
		if err != nil {
			return nil, fmt.Errorf("calendar aggregation failed fetching timeline events: %w", err)
		}
		for _, event := range timelineEvents {
			if !a.important[event.EventType] {
				continue
			}
			events = append(events, timelineDisplayEvent(event))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// reminderDisplayEvent projects a reminder onto the calendar. Color follows
// the priority table, overridden to gray for completed reminders.
func reminderDisplayEvent(reminder types.Reminder, now time.Time) types.CalendarDisplayEvent {
	return types.CalendarDisplayEvent{
		ID:        "reminder-" + reminder.ID,
		Title:     reminder.Title,
		Start:     reminder.DueDate,
		End:       reminder.DueDate,
		AllDay:    false,
		Type:      types.CalendarTypeReminder,
		Color:     types.ColorForPriority(reminder.Priority, reminder.Completed),
		TextColor: types.CalendarTextColor,
		ExtendedProps: map[string]interface{}{
			"reminderId":    reminder.ID,
			"description":   reminder.Description,
			"priority":      reminder.Priority,
			"reminderType":  reminder.ReminderType,
			"completed":     reminder.Completed,
			"overdue":       reminder.IsOverdue(now),
			"assignedTo":    reminder.AssignedTo,
			"relatedToType": reminder.RelatedToType,
			"relatedToId":   reminder.RelatedToID,
		},
	}
}

// timelineDisplayEvent projects a timeline event onto the calendar with a
// "<subject name>: <eventType>" title and the per-type palette color.
func timelineDisplayEvent(event types.TimelineEvent) types.CalendarDisplayEvent {
	subjectName := "Unknown"
	subjectID := event.SubjectID
	if event.Subject != nil {
		subjectName = event.Subject.Name
	}
	return types.CalendarDisplayEvent{
		ID:        "timeline-" + event.ID,
		Title:     fmt.Sprintf("%s: %s", subjectName, event.EventType),
		Start:     event.Timestamp,
		End:       event.Timestamp,
		AllDay:    false,
		Type:      types.CalendarTypeTimeline,
		Color:     types.ColorForEventType(event.EventType),
		TextColor: types.CalendarTextColor,
		ExtendedProps: map[string]interface{}{
			"eventId":     event.ID,
			"subjectId":   subjectID,
			"subjectName": subjectName,
			"eventType":   event.EventType,
			"description": event.Description,
			"location":    event.Location,
		},
	}
}
