package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scrypster/casetrail/internal/storage"
)

// newTestStore creates an in-memory store for testing.
func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	store, err := NewGraphStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createNode(t *testing.T, store *GraphStore, label string, fields map[string]interface{}) {
	t.Helper()
	if _, err := store.Create(context.Background(), label, fields); err != nil {
		t.Fatalf("failed to create %s node: %v", label, err)
	}
}

// TestCreateAndFindOne verifies a created node can be read back by property
// and that time-valued fields round-trip through the canonical format
func TestCreateAndFindOne(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	due := time.Date(2025, 3, 10, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	created, err := store.Create(ctx, "Reminder", map[string]interface{}{
		"id":        "rem-11111111",
		"title":     "Call family liaison",
		"due_date":  due,
		"completed": false,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Str("title") != "Call family liaison" {
		t.Errorf("created title = %q, want %q", created.Str("title"), "Call family liaison")
	}

	found, err := store.FindOne(ctx, "Reminder", "id", "rem-11111111")
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if found.Str("title") != "Call family liaison" {
		t.Errorf("found title = %q, want %q", found.Str("title"), "Call family liaison")
	}
	if !found.Time("due_date").Equal(due.Truncate(time.Second)) {
		t.Errorf("due_date = %v, want %v", found.Time("due_date"), due.Truncate(time.Second))
	}
	if found.Bool("completed") {
		t.Error("completed = true, want false")
	}
}

// TestFindOne_NotFound verifies a missing node returns ErrNotFound
func TestFindOne_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindOne(context.Background(), "Reminder", "id", "rem-missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestUpdateFields verifies partial update merges fields and preserves the rest
func TestUpdateFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "LovedOne", map[string]interface{}{
		"id":        "lo-22222222",
		"name":      "Jordan Bear",
		"status":    "Missing",
		"community": "Sioux Lookout",
	})

	updated, err := store.UpdateFields(ctx, "LovedOne", "id", "lo-22222222",
		map[string]interface{}{"status": "Found"})
	if err != nil {
		t.Fatalf("UpdateFields failed: %v", err)
	}
	if updated.Str("status") != "Found" {
		t.Errorf("status = %q, want Found", updated.Str("status"))
	}
	if updated.Str("name") != "Jordan Bear" {
		t.Errorf("name = %q, want untouched value", updated.Str("name"))
	}

	// The merge is persisted, not just echoed.
	found, err := store.FindOne(ctx, "LovedOne", "id", "lo-22222222")
	if err != nil {
		t.Fatalf("FindOne after update failed: %v", err)
	}
	if found.Str("status") != "Found" {
		t.Errorf("persisted status = %q, want Found", found.Str("status"))
	}
}

// TestUpdateFields_Invalid verifies the not-found and empty-fields error paths
func TestUpdateFields_Invalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpdateFields(ctx, "LovedOne", "id", "lo-missing",
		map[string]interface{}{"status": "Found"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	createNode(t, store, "LovedOne", map[string]interface{}{"id": "lo-33333333"})
	_, err = store.UpdateFields(ctx, "LovedOne", "id", "lo-33333333", nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty fields, got %v", err)
	}
}

// TestDeleteNode_Idempotent verifies delete succeeds whether or not the node
// exists
func TestDeleteNode_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "Reminder", map[string]interface{}{"id": "rem-44444444"})

	if err := store.DeleteNode(ctx, "Reminder", "id", "rem-44444444"); err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}
	if _, err := store.FindOne(ctx, "Reminder", "id", "rem-44444444"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("node still found after delete: %v", err)
	}
	if err := store.DeleteNode(ctx, "Reminder", "id", "rem-44444444"); err != nil {
		t.Errorf("second DeleteNode failed: %v", err)
	}
}

// TestEdges verifies edge creation, duplicate tolerance, deletion, and
// cascade on node delete
func TestEdges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "LovedOne", map[string]interface{}{"id": "lo-55555555", "name": "Sam Cardinal"})
	createNode(t, store, "TimelineEvent", map[string]interface{}{"id": "te-55555555", "event_type": "Sighting"})

	subject := storage.NodeRef{Label: "LovedOne", Key: "id", Value: "lo-55555555"}
	event := storage.NodeRef{Label: "TimelineEvent", Key: "id", Value: "te-55555555"}

	if err := store.CreateEdge(ctx, subject, "HAS_EVENT", event); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	// Duplicate edge creation is a no-op.
	if err := store.CreateEdge(ctx, subject, "HAS_EVENT", event); err != nil {
		t.Fatalf("duplicate CreateEdge failed: %v", err)
	}

	// The edge is visible through a join query.
	records, err := store.Query(ctx, storage.QuerySpec{
		Label: "TimelineEvent",
		Join:  &storage.EdgeJoin{EdgeType: "HAS_EVENT", Label: "LovedOne"},
	})
	if err != nil {
		t.Fatalf("join query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("join query returned %d records, want 1", len(records))
	}
	if name, _ := records[0].Joined["name"].(string); name != "Sam Cardinal" {
		t.Errorf("joined name = %q, want Sam Cardinal", name)
	}

	// Deleting the subject cascades the edge away.
	if err := store.DeleteNode(ctx, "LovedOne", "id", "lo-55555555"); err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}
	records, err = store.Query(ctx, storage.QuerySpec{
		Label: "TimelineEvent",
		Join:  &storage.EdgeJoin{EdgeType: "HAS_EVENT", Label: "LovedOne"},
	})
	if err != nil {
		t.Fatalf("join query after delete failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("join query after delete returned %d records, want 0", len(records))
	}
}

// TestCreateEdge_MissingEndpoint verifies edge creation fails for unknown nodes
func TestCreateEdge_MissingEndpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "Reminder", map[string]interface{}{"id": "rem-66666666"})

	err := store.CreateEdge(ctx,
		storage.NodeRef{Label: "Reminder", Key: "id", Value: "rem-66666666"},
		"RELATED_TO",
		storage.NodeRef{Label: "LovedOne", Key: "id", Value: "lo-missing"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestDeleteEdge_MissingEndpoint verifies edge deletion tolerates missing nodes
func TestDeleteEdge_MissingEndpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.DeleteEdge(ctx,
		storage.NodeRef{Label: "Reminder", Key: "id", Value: "rem-missing"},
		"RELATED_TO",
		storage.NodeRef{Label: "LovedOne", Key: "id", Value: "lo-missing"})
	if err != nil {
		t.Errorf("DeleteEdge with missing endpoints failed: %v", err)
	}

	err = store.DeleteEdges(ctx,
		storage.NodeRef{Label: "Reminder", Key: "id", Value: "rem-missing"},
		"ASSIGNED_TO")
	if err != nil {
		t.Errorf("DeleteEdges with missing endpoint failed: %v", err)
	}
}

// TestDeleteEdges verifies all edges of one type are removed while other
// types survive
func TestDeleteEdges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "Reminder", map[string]interface{}{"id": "rem-77777777"})
	createNode(t, store, "User", map[string]interface{}{"id": "worker@example.org"})
	createNode(t, store, "LovedOne", map[string]interface{}{"id": "lo-77777777"})

	reminder := storage.NodeRef{Label: "Reminder", Key: "id", Value: "rem-77777777"}
	user := storage.NodeRef{Label: "User", Key: "id", Value: "worker@example.org"}
	subject := storage.NodeRef{Label: "LovedOne", Key: "id", Value: "lo-77777777"}

	if err := store.CreateEdge(ctx, reminder, "ASSIGNED_TO", user); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}
	if err := store.CreateEdge(ctx, reminder, "RELATED_TO", subject); err != nil {
		t.Fatalf("CreateEdge failed: %v", err)
	}

	if err := store.DeleteEdges(ctx, reminder, "ASSIGNED_TO"); err != nil {
		t.Fatalf("DeleteEdges failed: %v", err)
	}

	users, err := store.Query(ctx, storage.QuerySpec{
		Label: "User",
		Join:  &storage.EdgeJoin{EdgeType: "ASSIGNED_TO", Label: "Reminder"},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ASSIGNED_TO edge survived DeleteEdges")
	}

	subjects, err := store.Query(ctx, storage.QuerySpec{
		Label: "LovedOne",
		Join:  &storage.EdgeJoin{EdgeType: "RELATED_TO", Label: "Reminder"},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(subjects) != 1 {
		t.Errorf("RELATED_TO edge was removed, want it kept")
	}
}

// TestQuery_FiltersAndOrder verifies equality filters, boolean filters,
// inclusive time ranges, ordering, and limits
func TestQuery_FiltersAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, reminder := range []map[string]interface{}{
		{"id": "rem-a", "priority": "high", "completed": false, "due_date": base.Add(48 * time.Hour)},
		{"id": "rem-b", "priority": "low", "completed": true, "due_date": base.Add(24 * time.Hour)},
		{"id": "rem-c", "priority": "high", "completed": false, "due_date": base},
	} {
		if _, err := store.Create(ctx, "Reminder", reminder); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	// Equality on a string property.
	records, err := store.Query(ctx, storage.QuerySpec{
		Label:   "Reminder",
		Equals:  []storage.Equals{{Field: "priority", Value: "high"}},
		OrderBy: "due_date",
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("priority filter returned %d records, want 2", len(records))
	}
	if records[0].Str("id") != "rem-c" || records[1].Str("id") != "rem-a" {
		t.Errorf("ascending order = [%s %s], want [rem-c rem-a]",
			records[0].Str("id"), records[1].Str("id"))
	}

	// Equality on a boolean property.
	records, err = store.Query(ctx, storage.QuerySpec{
		Label:  "Reminder",
		Equals: []storage.Equals{{Field: "completed", Value: true}},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].Str("id") != "rem-b" {
		t.Errorf("completed filter returned %v, want [rem-b]", recordIDs(records))
	}

	// Inclusive time range: both bounds match their exact instants.
	after := base
	before := base.Add(24 * time.Hour)
	records, err = store.Query(ctx, storage.QuerySpec{
		Label:   "Reminder",
		Range:   &storage.TimeRange{Field: "due_date", After: &after, Before: &before},
		OrderBy: "due_date",
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("time range returned %v, want [rem-c rem-b]", recordIDs(records))
	}

	// Descending order with limit.
	records, err = store.Query(ctx, storage.QuerySpec{
		Label:      "Reminder",
		OrderBy:    "due_date",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].Str("id") != "rem-a" {
		t.Errorf("descending limit 1 returned %v, want [rem-a]", recordIDs(records))
	}
}

// TestQuery_InvalidSpec verifies label and limit validation
func TestQuery_InvalidSpec(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Query(ctx, storage.QuerySpec{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty label: expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Query(ctx, storage.QuerySpec{Label: "Reminder", Limit: -1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("negative limit: expected ErrInvalidInput, got %v", err)
	}
}

// TestQuery_JoinedEquals verifies filters on the joined node's properties
func TestQuery_JoinedEquals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createNode(t, store, "LovedOne", map[string]interface{}{"id": "lo-a", "name": "A", "community": "Winnipeg"})
	createNode(t, store, "LovedOne", map[string]interface{}{"id": "lo-b", "name": "B", "community": "Regina"})
	createNode(t, store, "TimelineEvent", map[string]interface{}{"id": "te-a", "subject_id": "lo-a"})
	createNode(t, store, "TimelineEvent", map[string]interface{}{"id": "te-b", "subject_id": "lo-b"})

	for _, pair := range [][2]string{{"lo-a", "te-a"}, {"lo-b", "te-b"}} {
		err := store.CreateEdge(ctx,
			storage.NodeRef{Label: "LovedOne", Key: "id", Value: pair[0]},
			"HAS_EVENT",
			storage.NodeRef{Label: "TimelineEvent", Key: "id", Value: pair[1]})
		if err != nil {
			t.Fatalf("CreateEdge failed: %v", err)
		}
	}

	records, err := store.Query(ctx, storage.QuerySpec{
		Label: "TimelineEvent",
		Join: &storage.EdgeJoin{
			EdgeType: "HAS_EVENT",
			Label:    "LovedOne",
			Equals:   []storage.Equals{{Field: "community", Value: "Winnipeg"}},
		},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].Str("id") != "te-a" {
		t.Errorf("joined filter returned %v, want [te-a]", recordIDs(records))
	}
}

func recordIDs(records []storage.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Str("id")
	}
	return ids
}
