package handlers

import (
	"net/http"
	"strings"

	"github.com/scrypster/casetrail/internal/engine"
	"github.com/scrypster/casetrail/pkg/types"
)

// CalendarHandlers contains HTTP handlers for the merged calendar feed.
type CalendarHandlers struct {
	aggregator *engine.CalendarAggregator
}

// NewCalendarHandlers creates a new CalendarHandlers instance.
func NewCalendarHandlers(aggregator *engine.CalendarAggregator) *CalendarHandlers {
	return &CalendarHandlers{aggregator: aggregator}
}

// GetCalendarEvents handles GET /calendar/events - the merged, sorted
// reminder and timeline feed. The eventTypes parameter is a comma-separated
// subset of {reminders, timeline}; both are included by default.
func (h *CalendarHandlers) GetCalendarEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := parseTime(query.Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start", err)
		return
	}
	end, err := parseTime(query.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end", err)
		return
	}
	if start == nil || end == nil {
		respondError(w, http.StatusBadRequest, "start and end are required", nil)
		return
	}

	calendarQuery := engine.CalendarQuery{
		Start:            *start,
		End:              *end,
		AssignedTo:       query.Get("assignedTo"),
		RelatedToID:      query.Get("relatedToId"),
		IncludeReminders: true,
		IncludeTimeline:  true,
	}

	if eventTypes := query.Get("eventTypes"); eventTypes != "" {
		calendarQuery.IncludeReminders = false
		calendarQuery.IncludeTimeline = false
		for _, t := range strings.Split(eventTypes, ",") {
			switch strings.TrimSpace(t) {
			case "reminders":
				calendarQuery.IncludeReminders = true
			case "timeline":
				calendarQuery.IncludeTimeline = true
			default:
				respondError(w, http.StatusBadRequest, "unknown calendar event type: "+t, nil)
				return
			}
		}
	}

	events, err := h.aggregator.CalendarEvents(r.Context(), calendarQuery)
	if err != nil {
		// Aggregation is all-or-nothing: any sub-fetch failure fails the
		// whole request rather than returning partial data.
		respondError(w, http.StatusInternalServerError, "failed to aggregate calendar events", err)
		return
	}
	if events == nil {
		events = []types.CalendarDisplayEvent{}
	}
	respondJSON(w, http.StatusOK, CalendarEventsResponse{Events: events})
}
