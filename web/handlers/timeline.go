package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scrypster/casetrail/internal/engine"
)

// TimelineHandlers contains HTTP handlers for the timeline API.
type TimelineHandlers struct {
	engine *engine.TimelineEngine
}

// NewTimelineHandlers creates a new TimelineHandlers instance.
func NewTimelineHandlers(timelineEngine *engine.TimelineEngine) *TimelineHandlers {
	return &TimelineHandlers{engine: timelineEngine}
}

// parseFeedFilters extracts the global feed filters from query parameters.
func parseFeedFilters(r *http.Request) (engine.EventFeedFilters, error) {
	query := r.URL.Query()

	filters := engine.EventFeedFilters{
		EventType: query.Get("eventType"),
		Community: query.Get("community"),
	}

	var err error
	if filters.StartDate, err = parseTime(query.Get("startDate")); err != nil {
		return filters, err
	}
	if filters.EndDate, err = parseTime(query.Get("endDate")); err != nil {
		return filters, err
	}
	if filters.Limit, err = parseInt(query.Get("limit"), 0); err != nil {
		return filters, err
	}
	return filters, nil
}

// ListEvents handles GET /timeline/events - global feed joined with subject
// summaries, ordered descending by timestamp.
func (h *TimelineHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFeedFilters(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid filters", err)
		return
	}

	events, err := h.engine.AllEvents(r.Context(), filters)
	if err != nil {
		respondEngineError(w, "failed to list events", err)
		return
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// GroupedEvents handles GET /timeline/events/grouped - feed grouped per
// subject, ordered by subject name.
func (h *TimelineHandlers) GroupedEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFeedFilters(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid filters", err)
		return
	}

	grouped, err := h.engine.EventsGroupedBySubject(r.Context(), filters)
	if err != nil {
		respondEngineError(w, "failed to group events", err)
		return
	}
	respondJSON(w, http.StatusOK, GroupedEventsResponse{Grouped: grouped})
}

// SubjectEvents handles GET /timeline/loved-ones/{id}/events - a subject's
// history, ordered ascending by timestamp.
func (h *TimelineHandlers) SubjectEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "loved one ID is required", nil)
		return
	}

	events, err := h.engine.EventsBySubject(r.Context(), id)
	if err != nil {
		respondEngineError(w, "failed to list subject events", err)
		return
	}
	respondJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// CreateEventRequest is the request body for recording a timeline event.
type CreateEventRequest struct {
	EventType   string                 `json:"eventType"`
	Description string                 `json:"description"`
	Timestamp   *time.Time             `json:"timestamp,omitempty"`
	Location    string                 `json:"location,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedBy   string                 `json:"createdBy,omitempty"`
}

// CreateEvent handles POST /timeline/loved-ones/{id}/events - record a new
// event for the subject.
func (h *TimelineHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "loved one ID is required", nil)
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = "api"
	}

	event, err := h.engine.AddEvent(r.Context(), id, engine.AddEventRequest{
		EventType:   req.EventType,
		Description: req.Description,
		Timestamp:   req.Timestamp,
		CreatedBy:   req.CreatedBy,
		Location:    req.Location,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondEngineError(w, "failed to create event", err)
		return
	}
	respondJSON(w, http.StatusCreated, EventResponse{Event: event})
}

// UpdateEventRequest is the request body for updating an event's mutable
// fields. All fields are optional for partial updates.
type UpdateEventRequest struct {
	Description *string                 `json:"description,omitempty"`
	Location    *string                 `json:"location,omitempty"`
	Metadata    *map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateEvent handles PUT /timeline/events/{id} - partial update.
func (h *TimelineHandlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "event ID is required", nil)
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	event, err := h.engine.UpdateEvent(r.Context(), id, engine.UpdateEventRequest{
		Description: req.Description,
		Location:    req.Location,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondEngineError(w, "failed to update event", err)
		return
	}
	respondJSON(w, http.StatusOK, EventResponse{Event: event})
}

// DeleteEvent handles DELETE /timeline/events/{id} - idempotent
// detach-delete.
func (h *TimelineHandlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "event ID is required", nil)
		return
	}

	if err := h.engine.DeleteEvent(r.Context(), id); err != nil {
		respondEngineError(w, "failed to delete event", err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Backfill handles POST /timeline/backfill - synthesize CaseOpened events
// for subjects with no history. Privileged operation.
func (h *TimelineHandlers) Backfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Backfill(r.Context(), "backfill")
	if err != nil {
		respondEngineError(w, "backfill failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
