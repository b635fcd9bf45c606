package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-planner/internal/model"
	"calendar-planner/internal/wire"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", 2*time.Second)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestListTasks_DecodesAndTranslates(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("user_id")
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(RequestIDHeader)
		_, _ = io.WriteString(w, `[
			{"id": 7, "user_id": 3, "title": "Groceries", "priority_id": 1, "status_id": 1, "due_date": "2025-03-15"},
			{"id": 8, "user_id": 3, "title": "Gym", "priority_id": 3, "status_id": 2, "recurrence_type_id": 3}
		]`)
	}).WithToken("secret")

	tasks, err := client.ListTasks(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "/api/tasks/", gotPath)
	assert.Equal(t, "3", gotQuery)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.NotEmpty(t, gotRequestID)

	assert.Equal(t, int64(7), tasks[0].ID)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, model.StatusPending, tasks[0].Status)
	assert.Equal(t, model.StatusCompleted, tasks[1].Status)
	assert.Equal(t, model.RecurrenceWeekly, tasks[1].RecurrenceType)
}

func TestListTasks_NoTokenNoAuthHeader(t *testing.T) {
	var hadAuth bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		_, _ = io.WriteString(w, `[]`)
	})

	tasks, err := client.ListTasks(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.False(t, hadAuth)
}

func TestListTasks_NonArrayBodyIsValidationError(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"id": 1, "title": "not a list"}`))

	tasks, err := client.ListTasks(context.Background(), 1)

	assert.Nil(t, tasks)
	assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
}

func TestListTasks_BadElementFailsWholeList(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `[
		{"id": 1, "title": "ok", "priority_id": 2, "status_id": 1},
		{"id": 2, "title": "", "priority_id": 2, "status_id": 1}
	]`))

	tasks, err := client.ListTasks(context.Background(), 1)

	assert.Nil(t, tasks)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "item 1")
}

func TestListTasks_ShapeViolations(t *testing.T) {
	cases := map[string]string{
		"missing id":       `[{"title": "x", "priority_id": 1}]`,
		"string id":        `[{"id": "7", "title": "x"}]`,
		"unknown priority": `[{"id": 7, "title": "x", "priority_id": 9}]`,
		"unknown status":   `[{"id": 7, "title": "x", "status_id": 4}]`,
		"bad recurrence":   `[{"id": 7, "title": "x", "recurrence_type_id": 12}]`,
		"bad subtask":      `[{"id": 7, "title": "x", "subtasks": [{"id": 0, "title": "s"}]}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, respond(http.StatusOK, body))
			_, err := client.ListTasks(context.Background(), 1)
			assert.Equal(t, KindValidationError, KindOf(err), "got %v", err)
		})
	}
}

func TestListTasks_InvalidJSONIsMalformed(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `[{"id": 1,`))

	_, err := client.ListTasks(context.Background(), 1)

	assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   *Error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusBadGateway, ErrServerError},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusTeapot, ErrMalformedResponse},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, respond(tc.status, `{"detail": "nope"}`))

			_, err := client.ListEvents(context.Background(), 1)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "status %d gave %v", tc.status, err)
			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tc.status, gwErr.Status)
		})
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := New(srv.URL, 50*time.Millisecond)
	_, err := client.ListNotes(context.Background(), 1)

	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).ListCategories(context.Background(), 1)

	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
}

func TestCreateTask_PreconditionsSkipRequest(t *testing.T) {
	var hits int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.WriteString(w, `{}`)
	})

	empty := "  "
	title := "Write report"
	bad := 8

	_, err := client.CreateTask(context.Background(), 1, wire.TaskPayload{Title: &empty})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = client.CreateTask(context.Background(), 1, wire.TaskPayload{Title: &title})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = client.CreateTask(context.Background(), 1, wire.TaskPayload{Title: &title, PriorityID: &bad})
	assert.True(t, errors.Is(err, ErrValidation))

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestCreateTask_SendsCodes(t *testing.T) {
	var sent map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = io.WriteString(w, `{"id": 11, "user_id": 1, "title": "Write report", "priority_id": 1, "status_id": 1}`)
	})

	payload := wire.TaskPayloadFrom(model.Task{Title: "Write report", Priority: model.PriorityHigh, Status: model.StatusPending})
	task, err := client.CreateTask(context.Background(), 1, payload)
	require.NoError(t, err)

	assert.Equal(t, int64(11), task.ID)
	assert.EqualValues(t, 1, sent["priority_id"])
	assert.EqualValues(t, 1, sent["status_id"])
	assert.NotContains(t, sent, "priority")
}

func TestUpdateTaskStatus_SendsOnlyStatus(t *testing.T) {
	var sent map[string]any
	var method, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		_, _ = io.WriteString(w, `{"id": 7, "title": "x", "priority_id": 2, "status_id": 2}`)
	})

	task, err := client.UpdateTaskStatus(context.Background(), 7, 1, model.StatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/tasks/7", path)
	assert.Equal(t, map[string]any{"status_id": float64(2)}, sent)
	assert.Equal(t, model.StatusCompleted, task.Status)
}

func TestDeleteTask_NotFound(t *testing.T) {
	client := newTestClient(t, respond(http.StatusNotFound, `{"detail": "Task not found"}`))

	err := client.DeleteTask(context.Background(), 99, 1)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Task not found")
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		_, _ = io.WriteString(w, `{"user_id": 3, "username": "ada", "email": "ada@example.com", "access_token": "tok"}`)
	})

	resp, err := client.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.UserID)
	assert.Equal(t, "tok", resp.AccessToken)
}

func TestLogin_MissingTokenIsValidationError(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"message": "Login successful.", "user_id": 3}`))

	_, err := client.Login(context.Background(), "ada@example.com", "pw")

	assert.True(t, errors.Is(err, ErrValidation))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Contains(t, UserMessage(&Error{Kind: KindTimeout}), "timed out")
	assert.Contains(t, UserMessage(&Error{Kind: KindValidationError, Message: "title is required"}), "title is required")
	assert.Contains(t, UserMessage(errors.New("boom")), "boom")
}
