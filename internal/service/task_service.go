package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/gateway"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/reconcile"
	"calendar-planner/internal/repository"
	"calendar-planner/internal/wire"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title             string
	Description       string
	CategoryID        *int64
	Priority          model.Priority
	DueDate           string
	Recurrence        model.Recurrence
	RecurrenceEndDate string
	ColorCode         string
}

// TaskPatch carries the fields of a partial update; nil means unchanged.
type TaskPatch struct {
	Title             *string
	Description       *string
	CategoryID        *int64
	Priority          *model.Priority
	DueDate           *string
	Recurrence        *model.Recurrence
	RecurrenceEndDate *string
	ColorCode         *string
}

// ToggleResult is the settled completion value of a toggled task.
type ToggleResult struct {
	TaskID      int64
	Completed   bool
	Celebrating bool
}

// Progress summarizes the completion overlay.
type Progress struct {
	Completed int
	Total     int
	Percent   int
}

// ProgressOf counts the completed values; Percent is rounded to the nearest
// whole number and is 0 when there is nothing to count.
func ProgressOf(completed map[int64]bool) Progress {
	p := Progress{Total: len(completed)}
	for _, done := range completed {
		if done {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) * 100 / float64(p.Total)))
	}
	return p
}

// TaskService wraps task-related business logic.
type TaskService struct {
	gw       *gateway.Client
	taskRepo *repository.TaskRepository
	overlays *Overlays
	loc      *time.Location
}

func NewTaskService(gw *gateway.Client, taskRepo *repository.TaskRepository, overlays *Overlays, loc *time.Location) *TaskService {
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{gw: gw, taskRepo: taskRepo, overlays: overlays, loc: loc}
}

func (s *TaskService) CreateTask(ctx context.Context, sess model.Session, input TaskInput) (model.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return model.Task{}, invalid("title is required")
	}
	if input.Priority == "" {
		input.Priority = model.PriorityMedium
	}
	if !input.Priority.Valid() {
		return model.Task{}, invalid("unknown priority %q", input.Priority)
	}
	if input.Recurrence != "" && !input.Recurrence.Valid() {
		return model.Task{}, invalid("unknown recurrence %q", input.Recurrence)
	}
	if err := s.checkDates(input.DueDate, input.Recurrence, input.RecurrenceEndDate); err != nil {
		return model.Task{}, err
	}
	if !validColor(input.ColorCode) {
		return model.Task{}, invalid("color must be a hex code like #FF8800")
	}

	payload := wire.TaskPayloadFrom(model.Task{
		CategoryID:        input.CategoryID,
		Title:             input.Title,
		Description:       input.Description,
		Priority:          input.Priority,
		Status:            model.StatusPending,
		DueDate:           input.DueDate,
		RecurrenceType:    input.Recurrence,
		RecurrenceEndDate: input.RecurrenceEndDate,
		ColorCode:         input.ColorCode,
	})
	task, err := client(s.gw, sess).CreateTask(ctx, sess.UserID, payload)
	if err != nil {
		return model.Task{}, err
	}
	task.UserID = sess.UserID
	if err := s.taskRepo.Upsert(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("mirror task: %w", err)
	}
	s.overlays.For(sess.UserID).Set(task.ID, task.Completed())
	return task, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, sess model.Session, taskID int64, patch TaskPatch) (model.Task, error) {
	payload := wire.TaskPayload{
		Description: patch.Description,
		CategoryID:  patch.CategoryID,
		DueDate:     patch.DueDate,
		ColorCode:   patch.ColorCode,
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, invalid("title cannot be empty")
		}
		payload.Title = &title
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return model.Task{}, invalid("unknown priority %q", *patch.Priority)
		}
		code := wire.PriorityCode(*patch.Priority)
		payload.PriorityID = &code
	}
	if patch.Recurrence != nil {
		if !patch.Recurrence.Valid() {
			return model.Task{}, invalid("unknown recurrence %q", *patch.Recurrence)
		}
		code := wire.RecurrenceCode(*patch.Recurrence)
		payload.RecurrenceTypeID = &code
	}
	if patch.DueDate != nil && *patch.DueDate != "" {
		if _, ok := calendar.ParseLocalDate(*patch.DueDate, s.loc); !ok {
			return model.Task{}, invalid("due date %q is not a date", *patch.DueDate)
		}
	}
	if patch.RecurrenceEndDate != nil {
		if _, ok := calendar.ParseLocalDate(*patch.RecurrenceEndDate, s.loc); !ok {
			return model.Task{}, invalid("recurrence end date %q is not a date", *patch.RecurrenceEndDate)
		}
		payload.RecurrenceEndDate = patch.RecurrenceEndDate
	}
	if patch.ColorCode != nil && !validColor(*patch.ColorCode) {
		return model.Task{}, invalid("color must be a hex code like #FF8800")
	}

	task, err := client(s.gw, sess).UpdateTask(ctx, taskID, sess.UserID, payload)
	if err != nil {
		return model.Task{}, err
	}
	task.UserID = sess.UserID
	if err := s.taskRepo.Upsert(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("mirror task: %w", err)
	}
	if e, ok := s.overlays.For(sess.UserID).Entry(task.ID); !ok || !e.Pending {
		s.overlays.For(sess.UserID).Set(task.ID, task.Completed())
	}
	return task, nil
}

// DeleteTask removes a task from the backend, then from the mirror and overlay.
func (s *TaskService) DeleteTask(ctx context.Context, sess model.Session, taskID int64) error {
	if err := client(s.gw, sess).DeleteTask(ctx, taskID, sess.UserID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, sess.UserID, taskID); err != nil {
		return fmt.Errorf("unmirror task: %w", err)
	}
	s.overlays.For(sess.UserID).Forget(taskID)
	return nil
}

// Toggle flips the completion of a task. The overlay changes first; the new
// status is then written with a status-only update. On failure the overlay
// returns to the value it had before the toggle and the error is returned.
// On success the mirrored task's status is patched to match.
func (s *TaskService) Toggle(ctx context.Context, sess model.Session, taskID int64) (ToggleResult, error) {
	ov := s.overlays.For(sess.UserID)
	if _, ok := ov.Value(taskID); !ok {
		task, err := s.taskRepo.FindByID(ctx, sess.UserID, taskID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ToggleResult{}, reconcile.ErrUnknownTask
		}
		if err != nil {
			return ToggleResult{}, err
		}
		ov.Set(taskID, task.Completed())
	}

	gw := client(s.gw, sess)
	completed, err := ov.Toggle(ctx, taskID, func(ctx context.Context, completed bool) error {
		status := model.StatusPending
		if completed {
			status = model.StatusCompleted
		}
		if _, err := gw.UpdateTaskStatus(ctx, taskID, sess.UserID, status); err != nil {
			return err
		}
		if err := s.taskRepo.UpdateStatus(ctx, sess.UserID, taskID, status); err != nil {
			logger.WarnContext(ctx, "patch mirrored status", "task_id", taskID, "error", err)
		}
		return nil
	})
	res := ToggleResult{TaskID: taskID, Completed: completed, Celebrating: ov.Celebrating(taskID)}
	if err != nil {
		logger.WarnContext(ctx, "toggle rolled back", "task_id", taskID, "kind", gateway.KindOf(err).String(), "error", err)
		return res, err
	}
	return res, nil
}

func (s *TaskService) AddSubTask(ctx context.Context, sess model.Session, taskID int64, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, invalid("subtask title is required")
	}
	task, err := client(s.gw, sess).CreateSubTask(ctx, taskID, sess.UserID, wire.SubTaskPayload{Title: title})
	if err != nil {
		return model.Task{}, err
	}
	return s.mirror(ctx, sess, task)
}

// SetSubTask marks a subtask done or not done, keeping its title.
func (s *TaskService) SetSubTask(ctx context.Context, sess model.Session, taskID, subTaskID int64, done bool) (model.Task, error) {
	parent, err := s.taskRepo.FindByID(ctx, sess.UserID, taskID)
	if err != nil {
		return model.Task{}, fmt.Errorf("find task %d: %w", taskID, err)
	}
	var title string
	for _, st := range parent.SubTasks {
		if st.ID == subTaskID {
			title = st.Title
		}
	}
	if title == "" {
		return model.Task{}, invalid("task %d has no subtask %d", taskID, subTaskID)
	}
	task, err := client(s.gw, sess).UpdateSubTask(ctx, taskID, subTaskID, sess.UserID,
		wire.SubTaskPayload{Title: title, IsCompleted: &done})
	if err != nil {
		return model.Task{}, err
	}
	return s.mirror(ctx, sess, task)
}

func (s *TaskService) DeleteSubTask(ctx context.Context, sess model.Session, subTaskID int64) error {
	if err := client(s.gw, sess).DeleteSubTask(ctx, subTaskID, sess.UserID); err != nil {
		return err
	}
	return s.taskRepo.DeleteSubTask(ctx, subTaskID)
}

// ListTasks returns the mirrored tasks in server order.
func (s *TaskService) ListTasks(ctx context.Context, sess model.Session) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, sess.UserID)
}

func (s *TaskService) GetTask(ctx context.Context, sess model.Session, taskID int64) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, sess.UserID, taskID)
}

func (s *TaskService) mirror(ctx context.Context, sess model.Session, task model.Task) (model.Task, error) {
	task.UserID = sess.UserID
	if err := s.taskRepo.Upsert(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("mirror task: %w", err)
	}
	return task, nil
}

func (s *TaskService) checkDates(due string, rec model.Recurrence, recEnd string) error {
	if due != "" {
		if _, ok := calendar.ParseLocalDate(due, s.loc); !ok {
			return invalid("due date %q is not a date", due)
		}
	}
	if recEnd == "" {
		return nil
	}
	if rec == "" || rec == model.RecurrenceNone {
		return invalid("recurrence end date needs a recurrence")
	}
	end, ok := calendar.ParseLocalDate(recEnd, s.loc)
	if !ok {
		return invalid("recurrence end date %q is not a date", recEnd)
	}
	if start, ok := calendar.ParseLocalDate(due, s.loc); ok && end.Before(start) {
		return invalid("recurrence ends before the due date")
	}
	return nil
}

// Completion returns the overlay values the user's task views render with.
func (s *TaskService) Completion(sess model.Session) map[int64]bool {
	return s.overlays.For(sess.UserID).Snapshot()
}

// Progress is the completed share of the user's tracked tasks.
func (s *TaskService) Progress(sess model.Session) Progress {
	return ProgressOf(s.overlays.For(sess.UserID).Snapshot())
}

// OnCompletionChange registers fn to hear optimistic flips, settles and
// celebration ends on any user's tasks.
func (s *TaskService) OnCompletionChange(fn ChangeFunc) {
	s.overlays.OnChange(fn)
}
