package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scrypster/casetrail/internal/engine"
)

// LovedOneHandlers contains HTTP handlers for the loved-one case surface.
type LovedOneHandlers struct {
	engine *engine.SubjectEngine
}

// NewLovedOneHandlers creates a new LovedOneHandlers instance.
func NewLovedOneHandlers(subjectEngine *engine.SubjectEngine) *LovedOneHandlers {
	return &LovedOneHandlers{engine: subjectEngine}
}

// CreateLovedOneRequest is the request body for opening a new case.
type CreateLovedOneRequest struct {
	Name         string     `json:"name"`
	Status       string     `json:"status,omitempty"`
	Community    string     `json:"community,omitempty"`
	IncidentDate *time.Time `json:"incidentDate,omitempty"`
}

// CreateLovedOne handles POST /loved-ones - open a new case.
func (h *LovedOneHandlers) CreateLovedOne(w http.ResponseWriter, r *http.Request) {
	var req CreateLovedOneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	lovedOne, err := h.engine.Create(r.Context(), engine.CreateSubjectRequest{
		Name:         req.Name,
		Status:       req.Status,
		Community:    req.Community,
		IncidentDate: req.IncidentDate,
	})
	if err != nil {
		respondEngineError(w, "failed to create loved one", err)
		return
	}
	respondJSON(w, http.StatusCreated, LovedOneResponse{LovedOne: lovedOne})
}

// GetLovedOne handles GET /loved-ones/{id} - get a single case.
func (h *LovedOneHandlers) GetLovedOne(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "loved one ID is required", nil)
		return
	}

	lovedOne, err := h.engine.GetByID(r.Context(), id)
	if err != nil {
		respondEngineError(w, "failed to get loved one", err)
		return
	}
	respondJSON(w, http.StatusOK, LovedOneResponse{LovedOne: lovedOne})
}
