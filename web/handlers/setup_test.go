package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scrypster/casetrail/internal/engine"
	"github.com/scrypster/casetrail/internal/storage"
	"github.com/scrypster/casetrail/internal/storage/sqlite"
	"github.com/scrypster/casetrail/pkg/types"
)

// testEnv wires engines over an in-memory store for handler tests.
type testEnv struct {
	store    storage.GraphStore
	timeline *engine.TimelineEngine
	reminder *engine.ReminderEngine
	subject  *engine.SubjectEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.NewGraphStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		store:    store,
		timeline: engine.NewTimelineEngine(store, nil),
		reminder: engine.NewReminderEngine(store, nil),
		subject:  engine.NewSubjectEngine(store, nil),
	}
}

func (env *testEnv) createSubject(t *testing.T, name string) *types.LovedOne {
	t.Helper()
	subject, err := env.subject.Create(context.Background(), engine.CreateSubjectRequest{Name: name})
	if err != nil {
		t.Fatalf("failed to create test subject: %v", err)
	}
	return subject
}

func (env *testEnv) createReminder(t *testing.T, title string, due time.Time, priority string) *types.Reminder {
	t.Helper()
	reminder, err := env.reminder.Create(context.Background(), engine.CreateReminderRequest{
		Title:     title,
		DueDate:   due,
		CreatedBy: "test",
		Priority:  priority,
	})
	if err != nil {
		t.Fatalf("failed to create test reminder: %v", err)
	}
	return reminder
}

// jsonRequest builds a request with a JSON body and optional path values.
func jsonRequest(method, target string, body interface{}, pathValues map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	for key, value := range pathValues {
		req.SetPathValue(key, value)
	}
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dest); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
