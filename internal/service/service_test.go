package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/model"
	"calendar-planner/internal/reconcile"
	"calendar-planner/internal/repository"
)

// fakeBackend answers the planner REST routes the services use.
type fakeBackend struct {
	mu     sync.Mutex
	hits   int32
	tasks  string
	events string

	// delay holds every response back; set before the first request.
	delay time.Duration

	// onUpdate handles PUT tasks/{id}; nil echoes the status back.
	onUpdate func(w http.ResponseWriter, id int64, body map[string]any)
	created  map[string]any
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&b.hits, 1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && path == "tasks/":
		_, _ = io.WriteString(w, b.tasks)
	case r.Method == http.MethodGet && path == "events/":
		_, _ = io.WriteString(w, b.events)
	case r.Method == http.MethodPost && path == "tasks/":
		_ = json.NewDecoder(r.Body).Decode(&b.created)
		_, _ = fmt.Fprintf(w, `{"id": 50, "title": %q, "priority_id": %v, "status_id": 1, "due_date": %q}`,
			b.created["title"], b.created["priority_id"], b.created["due_date"])
	case r.Method == http.MethodPut && strings.HasPrefix(path, "tasks/"):
		var id int64
		_, _ = fmt.Sscanf(path, "tasks/%d", &id)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if b.onUpdate != nil {
			b.onUpdate(w, id, body)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id": %d, "title": "t", "priority_id": 2, "status_id": %v}`, id, body["status_id"])
	case r.Method == http.MethodPost && path == "events/":
		_, _ = io.WriteString(w, `{"id": 9, "title": "Dentist", "start_time": "2025-03-15T10:00:00", "end_time": "2025-03-15T11:00:00"}`)
	case r.Method == http.MethodPost && path == "auth/login":
		_, _ = io.WriteString(w, `{"user_id": 3, "username": "ada", "email": "ada@example.com", "access_token": "opaque"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail": "Not Found"}`)
	}
}

func (b *fakeBackend) Hits() int32 { return atomic.LoadInt32(&b.hits) }

type testEnv struct {
	backend  *fakeBackend
	sess     model.Session
	overlays *Overlays
	tasks    *repository.TaskRepository
	sessions *repository.SessionRepository
	calendar *CalendarService
	taskSvc  *TaskService
	events   *EventService
	reminder *ReminderService
	auth     *AuthService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	b := &fakeBackend{tasks: `[]`, events: `[]`}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	db, err := repository.NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gw := gateway.New(srv.URL+"/api", 2*time.Second)
	overlays := NewOverlays(reconcile.WithCelebration(time.Second))
	taskRepo := repository.NewTaskRepository(db)
	eventRepo := repository.NewEventRepository(db)
	sessions := repository.NewSessionRepository(db)
	return &testEnv{
		backend:  b,
		sess:     model.Session{Key: "test", UserID: 3, Token: "tok"},
		overlays: overlays,
		tasks:    taskRepo,
		sessions: sessions,
		calendar: NewCalendarService(gw, taskRepo, eventRepo, overlays, time.UTC),
		taskSvc:  NewTaskService(gw, taskRepo, overlays, time.UTC),
		events:   NewEventService(gw, eventRepo, time.UTC),
		reminder: NewReminderService(taskRepo, eventRepo, repository.NewCategoryRepository(db), time.UTC),
		auth:     NewAuthService(gw, sessions, overlays),
	}
}

const march2025Tasks = `[{"id": 7, "title": "File taxes", "priority_id": 1, "status_id": 1, "due_date": "2025-03-15"}]`

func TestToggle_ScenarioSuccess(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = march2025Tasks

	release := make(chan struct{})
	inFlight := make(chan struct{})
	env.backend.onUpdate = func(w http.ResponseWriter, id int64, body map[string]any) {
		close(inFlight)
		<-release
		_, _ = fmt.Fprintf(w, `{"id": %d, "title": "File taxes", "priority_id": 1, "status_id": %v, "due_date": "2025-03-15"}`, id, body["status_id"])
	}
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	done := make(chan ToggleResult)
	go func() {
		res, err := env.taskSvc.Toggle(ctx, env.sess, 7)
		assert.NoError(t, err)
		done <- res
	}()

	// The backend lock is held while onUpdate blocks, so inspect the overlay directly.
	<-inFlight
	v, _ := env.overlays.For(3).Value(7)
	assert.True(t, v, "overlay flips before the backend answers")
	mirrored, err := env.tasks.FindByID(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, mirrored.Status)
	close(release)

	res := <-done
	assert.True(t, res.Completed)
	assert.True(t, res.Celebrating)

	mirrored, err = env.tasks.FindByID(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, mirrored.Status)

	view, err := env.calendar.Month(ctx, env.sess, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	cell := view.Cells[view.Offset+14]
	require.Len(t, cell.Tasks, 1)
	assert.Equal(t, int64(7), cell.Tasks[0].ID)
	assert.True(t, view.Completed[7])
}

func TestToggle_ScenarioFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = march2025Tasks
	env.backend.onUpdate = func(w http.ResponseWriter, _ int64, _ map[string]any) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail": "db down"}`)
	}
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	res, err := env.taskSvc.Toggle(ctx, env.sess, 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrServerError)
	assert.False(t, res.Completed)
	assert.False(t, res.Celebrating)
	assert.Equal(t, "Server error: please try again later.", Message(err))
	v, _ := env.overlays.For(3).Value(7)
	assert.False(t, v)

	mirrored, err := env.tasks.FindByID(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, mirrored.Status)
}

func TestToggle_SendsStatusOnly(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = `[{"id": 7, "title": "x", "priority_id": 2, "status_id": 2}]`
	var sent map[string]any
	env.backend.onUpdate = func(w http.ResponseWriter, id int64, body map[string]any) {
		sent = body
		_, _ = fmt.Fprintf(w, `{"id": %d, "title": "x", "priority_id": 2, "status_id": 1}`, id)
	}
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	res, err := env.taskSvc.Toggle(ctx, env.sess, 7)
	require.NoError(t, err)

	assert.False(t, res.Completed)
	assert.Equal(t, map[string]any{"status_id": float64(1)}, sent)
}

func TestToggle_UnknownTaskMakesNoCall(t *testing.T) {
	env := newEnv(t)

	_, err := env.taskSvc.Toggle(context.Background(), env.sess, 404)

	assert.ErrorIs(t, err, reconcile.ErrUnknownTask)
	assert.Zero(t, env.backend.Hits())
}

func TestRefresh_ValidationErrorKeepsMirror(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = march2025Tasks
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	env.backend.tasks = `{"tasks": []}`
	err := env.calendar.Refresh(ctx, env.sess)

	assert.ErrorIs(t, err, gateway.ErrValidation)
	tasks, err := env.taskSvc.ListTasks(ctx, env.sess)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestOnCompletionChange_SeesOptimisticFlipFirst(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = march2025Tasks
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	type change struct {
		userID, taskID int64
		entry          reconcile.Entry
	}
	var mu sync.Mutex
	var seen []change
	env.taskSvc.OnCompletionChange(func(userID, taskID int64, e reconcile.Entry) {
		mu.Lock()
		seen = append(seen, change{userID, taskID, e})
		mu.Unlock()
	})

	_, err := env.taskSvc.Toggle(ctx, env.sess, 7)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, change{3, 7, reconcile.Entry{Completed: true, Pending: true}}, seen[0])
	assert.Equal(t, change{3, 7, reconcile.Entry{Completed: true}}, seen[1])
}

func TestProgressOf_Rounding(t *testing.T) {
	assert.Equal(t, Progress{}, ProgressOf(nil))
	assert.Equal(t, Progress{Completed: 1, Total: 3, Percent: 33}, ProgressOf(map[int64]bool{1: true, 2: false, 3: false}))
	assert.Equal(t, Progress{Completed: 2, Total: 3, Percent: 67}, ProgressOf(map[int64]bool{1: true, 2: true, 3: false}))

	eighth := map[int64]bool{1: true}
	for id := int64(2); id <= 8; id++ {
		eighth[id] = false
	}
	assert.Equal(t, 13, ProgressOf(eighth).Percent, "12.5 rounds half up")
}

func TestMonth_CarriesProgress(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = `[
		{"id": 7, "title": "File taxes", "priority_id": 1, "status_id": 2, "due_date": "2025-03-15"},
		{"id": 8, "title": "Call mom", "priority_id": 2, "status_id": 1, "due_date": "2025-04-02"}
	]`
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	view, err := env.calendar.Month(ctx, env.sess, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, Progress{Completed: 1, Total: 2, Percent: 50}, view.Progress)

	_, err = env.taskSvc.Toggle(ctx, env.sess, 8)
	require.NoError(t, err)
	assert.Equal(t, Progress{Completed: 2, Total: 2, Percent: 100}, env.taskSvc.Progress(env.sess))
}

func TestRefresh_SharedRoundOutlivesFirstCaller(t *testing.T) {
	env := newEnv(t)
	env.backend.tasks = march2025Tasks
	env.backend.delay = 300 * time.Millisecond

	impatient, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	first := make(chan error, 1)
	go func() { first <- env.calendar.Refresh(impatient, env.sess) }()
	require.Eventually(t, func() bool { return env.backend.Hits() > 0 }, time.Second, time.Millisecond)

	err := env.calendar.Refresh(context.Background(), env.sess)
	require.NoError(t, err)

	firstErr := <-first
	assert.ErrorIs(t, firstErr, gateway.ErrTimeout)

	tasks, err := env.taskSvc.ListTasks(context.Background(), env.sess)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(7), tasks[0].ID)
}

func TestToggle_ForgottenTaskDropsOutOfProgress(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = march2025Tasks
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	ov := env.overlays.For(3)
	_, err := ov.Toggle(ctx, 7, func(context.Context, bool) error {
		ov.Forget(7)
		return nil
	})
	require.NoError(t, err)

	assert.NotContains(t, env.taskSvc.Completion(env.sess), int64(7))
	assert.Equal(t, Progress{}, env.taskSvc.Progress(env.sess))
}

func TestCreateEvent_StartNotBeforeEndMakesNoCall(t *testing.T) {
	env := newEnv(t)
	cases := []EventInput{
		{Title: "Backwards", StartTime: "2025-03-15T11:00:00", EndTime: "2025-03-15T10:00:00"},
		{Title: "Empty", StartTime: "2025-03-15T10:00:00", EndTime: "2025-03-15T10:00:00"},
		{Title: "Garbage", StartTime: "soon", EndTime: "2025-03-15T10:00:00"},
	}
	for _, in := range cases {
		_, err := env.events.CreateEvent(context.Background(), env.sess, in)
		assert.ErrorIs(t, err, ErrInvalidInput, in.Title)
	}
	assert.Zero(t, env.backend.Hits())
}

func TestCreateEvent_Mirrors(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	event, err := env.events.CreateEvent(ctx, env.sess, EventInput{
		Title: "Dentist", StartTime: "2025-03-15T10:00:00", EndTime: "2025-03-15T11:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), event.ID)

	events, err := env.events.ListEvents(ctx, env.sess)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Dentist", events[0].Title)
}

func TestCreateTask_ValidatesBeforeCall(t *testing.T) {
	env := newEnv(t)
	cases := []TaskInput{
		{Title: "   "},
		{Title: "x", Priority: "URGENT"},
		{Title: "x", DueDate: "someday"},
		{Title: "x", DueDate: "2025-03-15", RecurrenceEndDate: "2025-04-01"},
		{Title: "x", ColorCode: "red"},
	}
	for _, in := range cases {
		_, err := env.taskSvc.CreateTask(context.Background(), env.sess, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, env.backend.Hits())
}

func TestCreateTask_DefaultsPriorityAndSeedsOverlay(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	task, err := env.taskSvc.CreateTask(ctx, env.sess, TaskInput{Title: "Call mom", DueDate: "2025-03-20"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, env.backend.created["priority_id"])
	assert.Equal(t, model.PriorityMedium, task.Priority)
	v, ok := env.overlays.For(3).Value(task.ID)
	assert.True(t, ok)
	assert.False(t, v)

	mirrored, err := env.taskSvc.GetTask(ctx, env.sess, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Call mom", mirrored.Title)
}

func TestAuth_LoginCurrentLogout(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	_, err := env.auth.Login(ctx, "chat-1", "not-an-email", "pw")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, env.backend.Hits())

	sess, err := env.auth.Login(ctx, "chat-1", "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(3), sess.UserID)
	assert.Nil(t, sess.ExpiresAt)

	cur, err := env.auth.Current(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "opaque", cur.Token)

	require.NoError(t, env.auth.Logout(ctx, "chat-1"))
	_, err = env.auth.Current(ctx, "chat-1")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestAuth_ExpiredSessionIsCleared(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	past := time.Now().Add(-time.Minute)
	require.NoError(t, env.sessions.Save(ctx, model.Session{Key: "chat-2", UserID: 3, Token: "old", ExpiresAt: &past}))

	_, err := env.auth.Current(ctx, "chat-2")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = env.sessions.Load(ctx, "chat-2")
	assert.Error(t, err)
}

func TestReminder_Agenda(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	env.backend.tasks = `[
		{"id": 1, "title": "Today", "priority_id": 1, "status_id": 1, "due_date": "2025-03-15"},
		{"id": 2, "title": "Late", "priority_id": 2, "status_id": 1, "due_date": "2025-03-10"},
		{"id": 3, "title": "Done", "priority_id": 2, "status_id": 2, "due_date": "2025-03-15"},
		{"id": 4, "title": "Rent", "priority_id": 2, "status_id": 1, "due_date": "2025-01-15", "recurrence_type_id": 6},
		{"id": 5, "title": "Future", "priority_id": 3, "status_id": 1, "due_date": "2025-04-01"},
		{"id": 6, "title": "Gym", "priority_id": 3, "status_id": 1, "due_date": "2025-03-11", "recurrence_type_id": 3}
	]`
	env.backend.events = `[{"id": 9, "title": "Dentist", "start_time": "2025-03-15T10:00:00", "end_time": "2025-03-15T11:00:00"}]`
	require.NoError(t, env.calendar.Refresh(ctx, env.sess))

	now := time.Date(2025, time.March, 15, 8, 0, 0, 0, time.UTC)
	agenda, err := env.reminder.Agenda(ctx, 3, now)
	require.NoError(t, err)

	ids := func(tasks []model.Task) []int64 {
		out := make([]int64, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, t.ID)
		}
		return out
	}
	assert.Equal(t, []int64{1}, ids(agenda.DueToday))
	assert.Equal(t, []int64{2}, ids(agenda.Overdue))
	assert.Equal(t, []int64{4}, ids(agenda.Recurring))
	require.Len(t, agenda.Events, 1)

	text, err := env.reminder.Summary(ctx, 3, now)
	require.NoError(t, err)
	assert.Contains(t, text, "Today")
	assert.Contains(t, text, "Dentist 10:00–11:00")
	assert.NotContains(t, text, "Future")
	assert.NotContains(t, text, "Gym", "weekly task off its weekday is neither due nor overdue")
}
