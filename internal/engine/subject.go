package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/pkg/types"
)

// SubjectEngine manages loved-one case nodes. Subjects mostly arrive from
// upstream intake systems, but the API exposes a minimal create/read
// surface so cases can be opened directly and backfill has something to
// work against.
type SubjectEngine struct {
	store  storage.GraphStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSubjectEngine creates a subject engine backed by the given store.
func NewSubjectEngine(store storage.GraphStore, logger *zap.Logger) *SubjectEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectEngine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateSubjectRequest carries the fields for a new loved-one case.
type CreateSubjectRequest struct {
	Name         string
	Status       string
	Community    string
	IncidentDate *time.Time
}

// Create stores a new loved-one case. Name is required; status defaults to
// Missing.
func (e *SubjectEngine) Create(ctx context.Context, req CreateSubjectRequest) (*types.LovedOne, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", storage.ErrInvalidInput)
	}

	status := req.Status
	if status == "" {
		status = types.StatusMissing
	}

	fields := map[string]interface{}{
		"id":         generateID("lo"),
		"name":       req.Name,
		"status":     status,
		"community":  req.Community,
		"created_at": e.now().UTC(),
	}
	if req.IncidentDate != nil && !req.IncidentDate.IsZero() {
		fields["incident_date"] = req.IncidentDate.UTC()
	}

	rec, err := e.store.Create(ctx, LabelLovedOne, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create loved one: %w", err)
	}
	return lovedOneFromRecord(rec), nil
}

// GetByID returns a single loved-one case.
func (e *SubjectEngine) GetByID(ctx context.Context, id string) (*types.LovedOne, error) {
	rec, err := e.store.FindOne(ctx, LabelLovedOne, "id", id)
	if err != nil {
		return nil, err
	}
	return lovedOneFromRecord(rec), nil
}

func lovedOneFromRecord(rec storage.Record) *types.LovedOne {
	lovedOne := &types.LovedOne{
		ID:        rec.Str("id"),
		Name:      rec.Str("name"),
		Status:    rec.Str("status"),
		Community: rec.Str("community"),
		CreatedAt: rec.Time("created_at"),
	}
	if incident := rec.Time("incident_date"); !incident.IsZero() {
		lovedOne.IncidentDate = &incident
	}
	return lovedOne
}
