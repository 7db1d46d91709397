package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/pkg/types"
)

// TimelineEngine owns the timeline-event lifecycle: creation with the Found
// status side effect, updates to mutable fields, deletion, per-subject and
// global feeds, and the backfill batch.
type TimelineEngine struct {
	store  storage.GraphStore
	logger *zap.Logger
	now    func() time.Time
}

// NewTimelineEngine creates a timeline engine backed by the given store.
func NewTimelineEngine(store storage.GraphStore, logger *zap.Logger) *TimelineEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineEngine{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AddEventRequest carries the caller-supplied fields for a new event.
type AddEventRequest struct {
	EventType   string
	Description string
	Timestamp   *time.Time
	CreatedBy   string
	Location    string
	Metadata    map[string]interface{}
}

// AddEvent records a new timeline event for the subject. The subject must
// exist. If the event type is Found, the subject's status is updated to
// Found as a best-effort side effect: a failed status update is logged but
// does not fail the event creation.
func (e *TimelineEngine) AddEvent(ctx context.Context, subjectID string, req AddEventRequest) (*types.TimelineEvent, error) {
	if !types.IsValidEventType(req.EventType) {
		return nil, fmt.Errorf("%w: unknown event type %q", storage.ErrInvalidInput, req.EventType)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is required", storage.ErrInvalidInput)
	}

	if _, err := e.store.FindOne(ctx, LabelLovedOne, "id", subjectID); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	timestamp := now
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		timestamp = req.Timestamp.UTC()
	}

	fields := map[string]interface{}{
		"id":          generateID("evt"),
		"subject_id":  subjectID,
		"event_type":  req.EventType,
		"description": req.Description,
		"timestamp":   timestamp,
		"created_by":  req.CreatedBy,
		"location":    req.Location,
		"created_at":  now,
	}
	if req.Metadata != nil {
		fields["metadata"] = req.Metadata
	}

	rec, err := e.store.Create(ctx, LabelTimelineEvent, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create timeline event: %w", err)
	}

	event := eventFromRecord(rec)

	if err := e.store.CreateEdge(ctx,
		storage.NodeRef{Label: LabelLovedOne, Key: "id", Value: subjectID},
		EdgeHasEvent,
		storage.NodeRef{Label: LabelTimelineEvent, Key: "id", Value: event.ID},
	); err != nil {
		return nil, fmt.Errorf("failed to link event to subject: %w", err)
	}

	// Best-effort side effect: a Found event forces the subject status to
	// Found. The status update is not transactional with the event write;
	// failures are logged and the event creation still succeeds.
	if req.EventType == types.EventFound {
		if _, err := e.store.UpdateFields(ctx, LabelLovedOne, "id", subjectID,
			map[string]interface{}{"status": types.StatusFound},
		); err != nil {
			e.logger.Warn("failed to update subject status after Found event",
				zap.String("subject_id", subjectID),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return event, nil
}

// UpdateEventRequest carries the mutable fields of an event. Nil fields are
// left unchanged.
type UpdateEventRequest struct {
	Description *string
	Location    *string
	Metadata    *map[string]interface{}
}

// UpdateEvent applies a partial update to an event's mutable fields.
func (e *TimelineEngine) UpdateEvent(ctx context.Context, eventID string, req UpdateEventRequest) (*types.TimelineEvent, error) {
	fields := make(map[string]interface{})
	if req.Description != nil {
		if *req.Description == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", storage.ErrInvalidInput)
		}
		fields["description"] = *req.Description
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.Metadata != nil {
		fields["metadata"] = *req.Metadata
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", storage.ErrInvalidInput)
	}

	rec, err := e.store.UpdateFields(ctx, LabelTimelineEvent, "id", eventID, fields)
	if err != nil {
		return nil, err
	}
	return eventFromRecord(rec), nil
}

// DeleteEvent detaches and deletes an event. Deleting a non-existent event
// is not an error.
func (e *TimelineEngine) DeleteEvent(ctx context.Context, eventID string) error {
	return e.store.DeleteNode(ctx, LabelTimelineEvent, "id", eventID)
}

// EventsBySubject returns a subject's events ordered ascending by timestamp.
func (e *TimelineEngine) EventsBySubject(ctx context.Context, subjectID string) ([]types.TimelineEvent, error) {
	recs, err := e.store.Query(ctx, storage.QuerySpec{
		Label:   LabelTimelineEvent,
		Equals:  []storage.Equals{{Field: "subject_id", Value: subjectID}},
		OrderBy: "timestamp",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query subject events: %w", err)
	}

	events := make([]types.TimelineEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, *eventFromRecord(rec))
	}
	return events, nil
}

// EventFeedFilters narrows the global event feed.
type EventFeedFilters struct {
	EventType string
	StartDate *time.Time
	EndDate   *time.Time
	Community string
	Limit     int
}

// AllEvents returns the global event feed joined with subject summaries,
// ordered descending by timestamp and truncated to Limit when positive.
func (e *TimelineEngine) AllEvents(ctx context.Context, filters EventFeedFilters) ([]types.TimelineEvent, error) {
	if filters.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be a non-negative integer", storage.ErrInvalidInput)
	}

	spec := storage.QuerySpec{
		Label: LabelTimelineEvent,
		Join: &storage.EdgeJoin{
			EdgeType: EdgeHasEvent,
			Label:    LabelLovedOne,
		},
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      filters.Limit,
	}
	if filters.EventType != "" {
		spec.Equals = append(spec.Equals, storage.Equals{Field: "event_type", Value: filters.EventType})
	}
	if filters.Community != "" {
		spec.Join.Equals = append(spec.Join.Equals, storage.Equals{Field: "community", Value: filters.Community})
	}
	if filters.StartDate != nil || filters.EndDate != nil {
		spec.Range = &storage.TimeRange{Field: "timestamp", After: filters.StartDate, Before: filters.EndDate}
	}

	recs, err := e.store.Query(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to query event feed: %w", err)
	}

	events := make([]types.TimelineEvent, 0, len(recs))
	for _, rec := range recs {
		events = append(events, *eventFromRecord(rec))
	}
	return events, nil
}

// EventsGroupedBySubject returns events grouped per subject, groups ordered
// by subject name, events within each group ascending by timestamp.
func (e *TimelineEngine) EventsGroupedBySubject(ctx context.Context, filters EventFeedFilters) ([]types.SubjectEvents, error) {
	events, err := e.AllEvents(ctx, filters)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*types.SubjectEvents)
	for _, event := range events {
		if event.Subject == nil {
			continue
		}
		group, ok := groups[event.Subject.ID]
		if !ok {
			group = &types.SubjectEvents{Subject: *event.Subject}
			groups[event.Subject.ID] = group
		}
		event.Subject = nil // subject is carried at the group level
		group.Events = append(group.Events, event)
	}

	result := make([]types.SubjectEvents, 0, len(groups))
	for _, group := range groups {
		sort.SliceStable(group.Events, func(i, j int) bool {
			return group.Events[i].Timestamp.Before(group.Events[j].Timestamp)
		})
		result = append(result, *group)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Subject.Name < result[j].Subject.Name
	})
	return result, nil
}

// BackfillResult reports the outcome of a backfill run.
type BackfillResult struct {
	Created int `json:"created"`
	Total   int `json:"total"`
}

// Backfill synthesizes one CaseOpened event for every subject with no
// timeline history, using the subject's incident date when known and the
// current time otherwise. Existing history is never touched. Individual
// failures are logged and counted but do not abort the batch.
func (e *TimelineEngine) Backfill(ctx context.Context, createdBy string) (BackfillResult, error) {
	subjects, err := e.store.Query(ctx, storage.QuerySpec{Label: LabelLovedOne, OrderBy: "created_at"})
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to list subjects for backfill: %w", err)
	}

	result := BackfillResult{Total: len(subjects)}
	for _, subject := range subjects {
		subjectID := subject.Str("id")
		existing, err := e.store.Query(ctx, storage.QuerySpec{
			Label:  LabelTimelineEvent,
			Equals: []storage.Equals{{Field: "subject_id", Value: subjectID}},
			Limit:  1,
		})
		if err != nil {
			e.logger.Warn("backfill: failed to check subject history",
				zap.String("subject_id", subjectID), zap.Error(err))
			continue
		}
		if len(existing) > 0 {
			continue
		}

		timestamp := subject.Time("incident_date")
		if timestamp.IsZero() {
			timestamp = e.now().UTC()
		}

		if _, err := e.AddEvent(ctx, subjectID, AddEventRequest{
			EventType:   types.EventCaseOpened,
			Description: fmt.Sprintf("Case opened for %s", subject.Str("name")),
			Timestamp:   &timestamp,
			CreatedBy:   createdBy,
		}); err != nil {
			e.logger.Warn("backfill: failed to create CaseOpened event",
				zap.String("subject_id", subjectID), zap.Error(err))
			continue
		}
		result.Created++
	}

	return result, nil
}

// eventFromRecord maps a store record onto a TimelineEvent. The joined
// subject summary is attached when present.
func eventFromRecord(rec storage.Record) *types.TimelineEvent {
	event := &types.TimelineEvent{
		ID:          rec.Str("id"),
		SubjectID:   rec.Str("subject_id"),
		EventType:   rec.Str("event_type"),
		Description: rec.Str("description"),
		Timestamp:   rec.Time("timestamp"),
		CreatedBy:   rec.Str("created_by"),
		Location:    rec.Str("location"),
		Metadata:    rec.Map("metadata"),
		CreatedAt:   rec.Time("created_at"),
	}
	if rec.Joined != nil {
		subject := storage.Record{Fields: rec.Joined}
		event.Subject = &types.SubjectSummary{
			ID:        subject.Str("id"),
			Name:      subject.Str("name"),
			Status:    subject.Str("status"),
			Community: subject.Str("community"),
		}
	}
	return event
}
