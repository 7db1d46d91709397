package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/casetrail/pkg/types"
	"github.com/scrypster/casetrail/web/handlers"
)

func TestCreateReminder_Success(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	req := jsonRequest("POST", "/reminders", map[string]interface{}{
		"title":   "Call the liaison officer",
		"dueDate": due,
	}, nil)
	w := httptest.NewRecorder()

	h.CreateReminder(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp handlers.ReminderResponse
	decodeBody(t, w, &resp)
	require.NotNil(t, resp.Reminder)
	assert.NotEmpty(t, resp.Reminder.ID)
	assert.Equal(t, "Call the liaison officer", resp.Reminder.Title)
	assert.Equal(t, types.PriorityMedium, resp.Reminder.Priority)
	assert.Equal(t, "api", resp.Reminder.CreatedBy)
	assert.True(t, resp.Reminder.DueDate.Equal(due))
}

func TestCreateReminder_MissingTitle(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	req := jsonRequest("POST", "/reminders", map[string]interface{}{
		"dueDate": time.Now().Add(time.Hour),
	}, nil)
	w := httptest.NewRecorder()

	h.CreateReminder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title")
}

func TestCreateReminder_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	req := httptest.NewRequest("POST", "/reminders", nil)
	w := httptest.NewRecorder()

	h.CreateReminder(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReminder_Success(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	created := env.createReminder(t, "Lookup", time.Now().Add(time.Hour), "")

	req := jsonRequest("GET", "/reminders/"+created.ID, nil, map[string]string{"id": created.ID})
	w := httptest.NewRecorder()

	h.GetReminder(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.ReminderResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, created.ID, resp.Reminder.ID)
}

func TestGetReminder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	req := jsonRequest("GET", "/reminders/rem-missing", nil, map[string]string{"id": "rem-missing"})
	w := httptest.NewRecorder()

	h.GetReminder(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReminders_Filters(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	env.createReminder(t, "high prio", time.Now().Add(time.Hour), types.PriorityHigh)
	env.createReminder(t, "low prio", time.Now().Add(2*time.Hour), types.PriorityLow)

	req := jsonRequest("GET", "/reminders?priority=high", nil, nil)
	w := httptest.NewRecorder()

	h.ListReminders(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RemindersResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, "high prio", resp.Reminders[0].Title)
}

func TestListReminders_Overdue(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	env.createReminder(t, "overdue", time.Now().Add(-time.Hour), "")
	env.createReminder(t, "future", time.Now().Add(time.Hour), "")

	req := jsonRequest("GET", "/reminders?overdue=true", nil, nil)
	w := httptest.NewRecorder()

	h.ListReminders(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RemindersResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, "overdue", resp.Reminders[0].Title)
	assert.True(t, resp.Reminders[0].Overdue)
}

func TestListReminders_InvalidDate(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	req := jsonRequest("GET", "/reminders?startDate=not-a-date", nil, nil)
	w := httptest.NewRecorder()

	h.ListReminders(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpcomingReminders(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	env.createReminder(t, "soon", time.Now().Add(24*time.Hour), "")
	env.createReminder(t, "far", time.Now().Add(30*24*time.Hour), "")

	req := jsonRequest("GET", "/reminders/upcoming", nil, nil)
	w := httptest.NewRecorder()

	h.UpcomingReminders(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.RemindersResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, "soon", resp.Reminders[0].Title)
}

func TestUpdateReminder_Success(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	created := env.createReminder(t, "Original", time.Now().Add(time.Hour), "")

	req := jsonRequest("PUT", "/reminders/"+created.ID, map[string]interface{}{
		"title":     "Renamed",
		"completed": true,
	}, map[string]string{"id": created.ID})
	w := httptest.NewRecorder()

	h.UpdateReminder(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.ReminderResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "Renamed", resp.Reminder.Title)
	assert.True(t, resp.Reminder.Completed)
}

func TestUpdateReminder_NotFound(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)

	req := jsonRequest("PUT", "/reminders/rem-missing", map[string]interface{}{
		"title": "Renamed",
	}, map[string]string{"id": "rem-missing"})
	w := httptest.NewRecorder()

	h.UpdateReminder(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReminder_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	h := handlers.NewReminderHandlers(env.reminder)
	created := env.createReminder(t, "Delete me", time.Now().Add(time.Hour), "")

	for i := 0; i < 2; i++ {
		req := jsonRequest("DELETE", "/reminders/"+created.ID, nil, map[string]string{"id": created.ID})
		w := httptest.NewRecorder()

		h.DeleteReminder(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp handlers.SuccessResponse
		decodeBody(t, w, &resp)
		assert.True(t, resp.Success)
	}
}
