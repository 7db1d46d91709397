package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/pkg/types"
)

// ReminderEngine owns the reminder lifecycle: creation with best-effort
// relationship linking, filtered listing, partial updates with assignment
// edge replacement, deletion, and the upcoming/overdue derivations.
type ReminderEngine struct {
	store  storage.GraphStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReminderEngine creates a reminder engine backed by the given store.
func NewReminderEngine(store storage.GraphStore, logger *zap.Logger) *ReminderEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderEngine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateReminderRequest carries the caller-supplied fields for a new reminder.
type CreateReminderRequest struct {
	Title         string
	Description   string
	DueDate       time.Time
	CreatedBy     string
	RelatedToType string
	RelatedToID   string
	AssignedTo    string
	Priority      string
	ReminderType  string
}

// Create stores a new reminder. Title and due date are required. Links to
// the related entity and assignee are best-effort: the scalar fields are
// stored even when the referenced node does not resolve, and the missing
// edge is logged rather than failing the create.
func (e *ReminderEngine) Create(ctx context.Context, req CreateReminderRequest) (*types.Reminder, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", storage.ErrInvalidInput)
	}
	if req.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: dueDate is required", storage.ErrInvalidInput)
	}

	priority := req.Priority
	if priority == "" {
		priority = types.PriorityMedium
	} else if !types.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", storage.ErrInvalidInput, priority)
	}

	reminderType := req.ReminderType
	if reminderType == "" {
		reminderType = types.ReminderOther
	} else if !types.IsValidReminderType(reminderType) {
		return nil, fmt.Errorf("%w: unknown reminder type %q", storage.ErrInvalidInput, reminderType)
	}

	relatedToType := req.RelatedToType
	if relatedToType == "" {
		relatedToType = types.RelatedToNone
	} else if !types.IsValidRelatedToType(relatedToType) {
		return nil, fmt.Errorf("%w: unknown relatedToType %q", storage.ErrInvalidInput, relatedToType)
	}

	now := e.now().UTC()
	fields := map[string]interface{}{
		"id":              generateID("rem"),
		"title":           req.Title,
		"description":     req.Description,
		"due_date":        req.DueDate.UTC(),
		"created_by":      req.CreatedBy,
		"related_to_type": relatedToType,
		"related_to_id":   req.RelatedToID,
		"assigned_to":     req.AssignedTo,
		"priority":        priority,
		"reminder_type":   reminderType,
		"completed":       false,
		"created_at":      now,
	}

	rec, err := e.store.Create(ctx, LabelReminder, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	reminder := e.reminderFromRecord(rec)

	reminderRef := storage.NodeRef{Label: LabelReminder, Key: "id", Value: reminder.ID}
	if relatedToType != types.RelatedToNone && req.RelatedToID != "" {
		e.linkRelated(ctx, reminderRef, relatedToType, req.RelatedToID)
	}
	if req.AssignedTo != "" {
		e.linkAssignee(ctx, reminderRef, req.AssignedTo)
	}

	return reminder, nil
}

// linkRelated creates the RELATED_TO edge when the related node resolves.
// A dangling reference is tolerated; the scalar field remains the record.
func (e *ReminderEngine) linkRelated(ctx context.Context, reminder storage.NodeRef, relatedToType, relatedToID string) {
	label := LabelCase
	if relatedToType == types.RelatedToLovedOne {
		label = LabelLovedOne
	}

	target := storage.NodeRef{Label: label, Key: "id", Value: relatedToID}
	if _, err := e.store.FindOne(ctx, label, "id", relatedToID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("related entity not found, storing scalar reference only",
				zap.String("reminder_id", reminder.Value),
				zap.String("related_to_id", relatedToID))
		} else {
			e.logger.Warn("failed to resolve related entity",
				zap.String("reminder_id", reminder.Value), zap.Error(err))
		}
		return
	}
	if err := e.store.CreateEdge(ctx, reminder, EdgeRelatedTo, target); err != nil {
		e.logger.Warn("failed to link reminder to related entity",
			zap.String("reminder_id", reminder.Value), zap.Error(err))
	}
}

// linkAssignee creates the ASSIGNED_TO edge when the user resolves.
func (e *ReminderEngine) linkAssignee(ctx context.Context, reminder storage.NodeRef, email string) {
	if _, err := e.store.FindOne(ctx, LabelUser, "email", email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			e.logger.Debug("assignee not found, storing scalar reference only",
				zap.String("reminder_id", reminder.Value),
				zap.String("assigned_to", email))
		} else {
			e.logger.Warn("failed to resolve assignee",
				zap.String("reminder_id", reminder.Value), zap.Error(err))
		}
		return
	}
	if err := e.store.CreateEdge(ctx, reminder, EdgeAssignedTo,
		storage.NodeRef{Label: LabelUser, Key: "email", Value: email},
	); err != nil {
		e.logger.Warn("failed to link reminder to assignee",
			zap.String("reminder_id", reminder.Value), zap.Error(err))
	}
}

// ReminderFilters narrows reminder listings. Overdue composes with the
// other filters as completed=false plus dueDate before now.
type ReminderFilters struct {
	AssignedTo    string
	RelatedToType string
	RelatedToID   string
	Completed     *bool
	Priority      string
	StartDate     *time.Time
	EndDate       *time.Time
	Overdue       bool
}

// List returns reminders matching the filters, ordered ascending by due date.
func (e *ReminderEngine) List(ctx context.Context, filters ReminderFilters) ([]types.Reminder, error) {
	now := e.now().UTC()

	spec := storage.QuerySpec{
		Label:   LabelReminder,
		OrderBy: "due_date",
	}
	if filters.AssignedTo != "" {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "assigned_to", Value: filters.AssignedTo})
	}
	if filters.RelatedToType != "" {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "related_to_type", Value: filters.RelatedToType})
	}
	if filters.RelatedToID != "" {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "related_to_id", Value: filters.RelatedToID})
	}
	if filters.Priority != "" {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "priority", Value: filters.Priority})
	}

	completed := filters.Completed
	startDate := filters.StartDate
	endDate := filters.EndDate
	if filters.Overdue {
		// overdue = not completed and due strictly before now, composed
		// with any other filters given.
		f := false
		completed = &f
		if endDate == nil || endDate.After(now) {
			endDate = &now
		}
	}
	if completed != nil {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "completed", Value: *completed})
	}
	if startDate != nil || endDate != nil {
		spec.Range = &storage.TimeRange{Field: "due_date", After: startDate, Before: endDate}
	}

	recs, err := e.store.Query(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}

	reminders := make([]types.Reminder, 0, len(recs))
	for _, rec := range recs {
		reminder := e.reminderFromRecord(rec)
		if filters.Overdue && !reminder.IsOverdue(now) {
			continue
		}
		reminders = append(reminders, *reminder)
	}
	return reminders, nil
}

// GetByID returns a single reminder.
func (e *ReminderEngine) GetByID(ctx context.Context, id string) (*types.Reminder, error) {
	rec, err := e.store.FindOne(ctx, LabelReminder, "id", id)
	if err != nil {
		return nil, err
	}
	return e.reminderFromRecord(rec), nil
}

// UpdateReminderRequest carries a partial reminder update. Nil fields are
// left unchanged.
type UpdateReminderRequest struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Priority     *string
	ReminderType *string
	Completed    *bool
	AssignedTo   *string
}

// Update applies a partial update. Updating AssignedTo replaces the
// assignment edge: existing assignment edges are removed, and a new edge is
// created only when the new value is non-empty and resolves to a user.
func (e *ReminderEngine) Update(ctx context.Context, id string, req UpdateReminderRequest) (*types.Reminder, error) {
	fields := make(map[string]interface{})
	if req.Title != nil {
		if *req.Title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", storage.ErrInvalidInput)
		}
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.DueDate != nil {
		if req.DueDate.IsZero() {
			return nil, fmt.Errorf("%w: dueDate cannot be empty", storage.ErrInvalidInput)
		}
		fields["due_date"] = req.DueDate.UTC()
	}
	if req.Priority != nil {
		if !types.IsValidPriority(*req.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", storage.ErrInvalidInput, *req.Priority)
		}
		fields["priority"] = *req.Priority
	}
	if req.ReminderType != nil {
		if !types.IsValidReminderType(*req.ReminderType) {
			return nil, fmt.Errorf("%w: unknown reminder type %q", storage.ErrInvalidInput, *req.ReminderType)
		}
		fields["reminder_type"] = *req.ReminderType
	}
	if req.Completed != nil {
		fields["completed"] = *req.Completed
	}
	if req.AssignedTo != nil {
		fields["assigned_to"] = *req.AssignedTo
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", storage.ErrInvalidInput)
	}

	// Existence check before any write so validation failures and missing
	// reminders never leave partial edge changes behind.
	if _, err := e.store.FindOne(ctx, LabelReminder, "id", id); err != nil {
		return nil, err
	}

	reminderRef := storage.NodeRef{Label: LabelReminder, Key: "id", Value: id}
	if req.AssignedTo != nil {
		if err := e.store.DeleteEdges(ctx, reminderRef, EdgeAssignedTo); err != nil {
			return nil, fmt.Errorf("failed to clear assignment: %w", err)
		}
		if *req.AssignedTo != "" {
			e.linkAssignee(ctx, reminderRef, *req.AssignedTo)
		}
	}

	rec, err := e.store.UpdateFields(ctx, LabelReminder, "id", id, fields)
	if err != nil {
		return nil, err
	}
	return e.reminderFromRecord(rec), nil
}

// Delete detaches and deletes a reminder. Deleting a non-existent reminder
// is not an error.
func (e *ReminderEngine) Delete(ctx context.Context, id string) error {
	return e.store.DeleteNode(ctx, LabelReminder, "id", id)
}

// Upcoming returns incomplete reminders due between now and now plus the
// given number of days (inclusive), ordered ascending by due date. Days
// defaults to 7 when non-positive.
func (e *ReminderEngine) Upcoming(ctx context.Context, days int, assignedTo string) ([]types.Reminder, error) {
	if days <= 0 {
		days = 7
	}
	now := e.now().UTC()
	end := now.Add(time.Duration(days) * 24 * time.Hour)
	completed := false

	return e.List(ctx, ReminderFilters{
		AssignedTo: assignedTo,
		Completed:  &completed,
		StartDate:  &now,
		EndDate:    &end,
	})
}

// reminderFromRecord maps a store record onto a Reminder, deriving the
// overdue flag from the current time.
func (e *ReminderEngine) reminderFromRecord(rec storage.Record) *types.Reminder {
	reminder := &types.Reminder{
		ID:            rec.Str("id"),
		Title:         rec.Str("title"),
		Description:   rec.Str("description"),
		DueDate:       rec.Time("due_date"),
		CreatedBy:     rec.Str("created_by"),
		RelatedToType: rec.Str("related_to_type"),
		RelatedToID:   rec.Str("related_to_id"),
		AssignedTo:    rec.Str("assigned_to"),
		Priority:      rec.Str("priority"),
		ReminderType:  rec.Str("reminder_type"),
		Completed:     rec.Bool("completed"),
		CreatedAt:     rec.Time("created_at"),
	}
	reminder.Overdue = reminder.IsOverdue(e.now().UTC())
	return reminder
}
