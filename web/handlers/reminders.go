package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scrypster/casetrail/internal/engine"
)

// ReminderHandlers contains HTTP handlers for the reminder API.
type ReminderHandlers struct {
	engine *engine.ReminderEngine
}

// NewReminderHandlers creates a new ReminderHandlers instance.
func NewReminderHandlers(reminderEngine *engine.ReminderEngine) *ReminderHandlers {
	return &ReminderHandlers{engine: reminderEngine}
}

// ListReminders handles GET /reminders - list reminders with filtering,
// ordered ascending by due date.
func (h *ReminderHandlers) ListReminders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := engine.ReminderFilters{
		AssignedTo:    query.Get("assignedTo"),
		RelatedToType: query.Get("relatedToType"),
		RelatedToID:   query.Get("relatedToId"),
		Priority:      query.Get("priority"),
	}

	if v := query.Get("completed"); v != "" {
		completed := v == "true"
		filters.Completed = &completed
	}
	filters.Overdue = query.Get("overdue") == "true"

	var err error
	if filters.StartDate, err = parseTime(query.Get("startDate")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid startDate", err)
		return
	}
	if filters.EndDate, err = parseTime(query.Get("endDate")); err != nil {
		respondError(w, http.StatusBadRequest, "invalid endDate", err)
		return
	}

	reminders, err := h.engine.List(r.Context(), filters)
	if err != nil {
		respondEngineError(w, "failed to list reminders", err)
		return
	}
	respondJSON(w, http.StatusOK, RemindersResponse{Reminders: reminders})
}

// UpcomingReminders handles GET /reminders/upcoming - incomplete reminders
// due within the window.
func (h *ReminderHandlers) UpcomingReminders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	days, err := parseInt(query.Get("days"), 7)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid days", err)
		return
	}

	reminders, err := h.engine.Upcoming(r.Context(), days, query.Get("assignedTo"))
	if err != nil {
		respondEngineError(w, "failed to list upcoming reminders", err)
		return
	}
	respondJSON(w, http.StatusOK, RemindersResponse{Reminders: reminders})
}

// GetReminder handles GET /reminders/{id} - get a single reminder.
func (h *ReminderHandlers) GetReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "reminder ID is required", nil)
		return
	}

	reminder, err := h.engine.GetByID(r.Context(), id)
	if err != nil {
		respondEngineError(w, "failed to get reminder", err)
		return
	}
	respondJSON(w, http.StatusOK, ReminderResponse{Reminder: reminder})
}

// CreateReminderRequest is the request body for creating a reminder.
type CreateReminderRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	DueDate       *time.Time `json:"dueDate"`
	RelatedToType string     `json:"relatedToType,omitempty"`
	RelatedToID   string     `json:"relatedToId,omitempty"`
	AssignedTo    string     `json:"assignedTo,omitempty"`
	Priority      string     `json:"priority,omitempty"`
	ReminderType  string     `json:"reminderType,omitempty"`
	CreatedBy     string     `json:"createdBy,omitempty"`
}

// CreateReminder handles POST /reminders - create a new reminder.
func (h *ReminderHandlers) CreateReminder(w http.ResponseWriter, r *http.Request) {
	var req CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	createReq := engine.CreateReminderRequest{
		Title:         req.Title,
		Description:   req.Description,
		CreatedBy:     req.CreatedBy,
		RelatedToType: req.RelatedToType,
		RelatedToID:   req.RelatedToID,
		AssignedTo:    req.AssignedTo,
		Priority:      req.Priority,
		ReminderType:  req.ReminderType,
	}
	if req.DueDate != nil {
		createReq.DueDate = *req.DueDate
	}
	if createReq.CreatedBy == "" {
		createReq.CreatedBy = "api"
	}

	reminder, err := h.engine.Create(r.Context(), createReq)
	if err != nil {
		respondEngineError(w, "failed to create reminder", err)
		return
	}
	respondJSON(w, http.StatusCreated, ReminderResponse{Reminder: reminder})
}

// UpdateReminderRequest is the request body for updating a reminder.
// All fields are optional for partial updates.
type UpdateReminderRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	ReminderType *string    `json:"reminderType,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	AssignedTo   *string    `json:"assignedTo,omitempty"`
}

// UpdateReminder handles PUT /reminders/{id} - partial update.
func (h *ReminderHandlers) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "reminder ID is required", nil)
		return
	}

	var req UpdateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	reminder, err := h.engine.Update(r.Context(), id, engine.UpdateReminderRequest{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Priority:     req.Priority,
		ReminderType: req.ReminderType,
		Completed:    req.Completed,
		AssignedTo:   req.AssignedTo,
	})
	if err != nil {
		respondEngineError(w, "failed to update reminder", err)
		return
	}
	respondJSON(w, http.StatusOK, ReminderResponse{Reminder: reminder})
}

// DeleteReminder handles DELETE /reminders/{id} - idempotent detach-delete.
func (h *ReminderHandlers) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "reminder ID is required", nil)
		return
	}

	if err := h.engine.Delete(r.Context(), id); err != nil {
		respondEngineError(w, "failed to delete reminder", err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
