package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"calendar-planner/internal/model"
	"calendar-planner/internal/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := NewDB(dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: 30, Title: "Third by id", Priority: model.PriorityLow, Status: model.StatusPending, DueDate: "2025-03-15"},
		{ID: 10, Title: "First by id", Priority: model.PriorityHigh, Status: model.StatusCompleted, DueDate: "2025-03-16T09:00:00",
			SubTasks: []model.SubTask{{ID: 100, Title: "step one"}, {ID: 101, Title: "step two", IsCompleted: true}}},
		{ID: 20, Title: "No date", Priority: model.PriorityMedium, Status: model.StatusPending},
	}
}

func TestTaskRepository_ReplaceForUserKeepsServerOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))

	tasks, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []int64{30, 10, 20}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	require.Len(t, tasks[1].SubTasks, 2)
	assert.Equal(t, int64(10), tasks[1].SubTasks[0].TaskID)
	assert.True(t, tasks[1].SubTasks[1].IsCompleted)
}

func TestTaskRepository_ReplaceForUserIsWholesale(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)

	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))
	require.NoError(t, repo.ReplaceForUser(ctx, 2, []model.Task{{ID: 99, Title: "Other user"}}))
	require.NoError(t, repo.ReplaceForUser(ctx, 1, []model.Task{{ID: 40, Title: "Only one left"}}))

	tasks, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(40), tasks[0].ID)

	var orphans int64
	require.NoError(t, db.Model(&model.SubTask{}).Count(&orphans).Error)
	assert.Zero(t, orphans)

	others, err := repo.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestTaskRepository_DeleteCascadesSubTasks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))

	require.NoError(t, repo.Delete(ctx, 1, 10))

	_, err := repo.FindByID(ctx, 1, 10)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var left int64
	require.NoError(t, db.Model(&model.SubTask{}).Where("task_id = ?", 10).Count(&left).Error)
	assert.Zero(t, left)
}

func TestTaskRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))

	require.NoError(t, repo.UpdateStatus(ctx, 1, 30, model.StatusCompleted))
	task, err := repo.FindByID(ctx, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, task.Status)
	assert.Equal(t, "Third by id", task.Title)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, 2, 30, model.StatusPending), gorm.ErrRecordNotFound)
}

func TestTaskRepository_UpsertAppendsAndKeepsPosition(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))

	require.NoError(t, repo.Upsert(ctx, model.Task{ID: 5, UserID: 1, Title: "Created later"}))
	require.NoError(t, repo.Upsert(ctx, model.Task{ID: 30, UserID: 1, Title: "Renamed",
		SubTasks: []model.SubTask{{ID: 300, Title: "new step"}}}))

	tasks, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, int64(30), tasks[0].ID)
	assert.Equal(t, "Renamed", tasks[0].Title)
	require.Len(t, tasks[0].SubTasks, 1)
	assert.Equal(t, int64(5), tasks[3].ID)
}

func TestTaskRepository_DueBetween(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	require.NoError(t, repo.ReplaceForUser(ctx, 1, sampleTasks()))

	tasks, err := repo.DueBetween(ctx, 1, "2025-03-16", "2025-03-31")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(10), tasks[0].ID)
}

func TestEventRepository_OrderAndUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newTestDB(t))
	require.NoError(t, repo.ReplaceForUser(ctx, 1, []model.Event{
		{ID: 8, Title: "Standup", StartTime: "2025-03-15T09:00:00", EndTime: "2025-03-15T09:15:00"},
		{ID: 3, Title: "Lunch", StartTime: "2025-03-15T12:00:00", EndTime: "2025-03-15T13:00:00"},
	}))
	require.NoError(t, repo.Upsert(ctx, model.Event{ID: 1, UserID: 1, Title: "Review"}))

	events, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int64{8, 3, 1}, []int64{events[0].ID, events[1].ID, events[2].ID})

	require.NoError(t, repo.Delete(ctx, 1, 8))
	events, err = repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestTaskRepository_ReplaceCalendarIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tasks := NewTaskRepository(db)
	events := NewEventRepository(db)

	require.NoError(t, tasks.ReplaceCalendar(ctx, 1, sampleTasks(), []model.Event{{ID: 8, Title: "Standup"}}))

	// Duplicate event ids make the event insert fail after tasks were replaced.
	err := tasks.ReplaceCalendar(ctx, 1, []model.Task{{ID: 40, Title: "New"}},
		[]model.Event{{ID: 5, Title: "A"}, {ID: 5, Title: "B"}})
	require.Error(t, err)

	got, err := tasks.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	evs, err := events.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, int64(8), evs[0].ID)
}

func TestNoteAndCategoryRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	notes := NewNoteRepository(db)
	categories := NewCategoryRepository(db)

	require.NoError(t, notes.ReplaceForUser(ctx, 1, []model.Note{
		{ID: 1, Title: "old", CreatedAt: "2025-01-01T10:00:00"},
		{ID: 2, Title: "new", CreatedAt: "2025-02-01T10:00:00"},
	}))
	list, err := notes.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)

	require.NoError(t, categories.ReplaceForUser(ctx, 1, []model.Category{
		{ID: 1, Name: "Work", ColorCode: "#FF0000"},
		{ID: 2, Name: "Health", ColorCode: "#00FF00"},
	}))
	require.NoError(t, categories.Upsert(ctx, model.Category{ID: 1, UserID: 1, Name: "Office", ColorCode: "#FF0000"}))
	cats, err := categories.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Health", cats[0].Name)
	assert.Equal(t, "Office", cats[1].Name)

	got, err := categories.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "#00FF00", got.ColorCode)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(newTestDB(t))

	_, err := repo.Load(ctx, "42")
	assert.ErrorIs(t, err, session.ErrNoSession)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(ctx, model.Session{Key: "42", UserID: 7, Email: "a@b.c", Token: "t1", ExpiresAt: &exp}))
	require.NoError(t, repo.Save(ctx, model.Session{Key: "42", UserID: 7, Email: "a@b.c", Token: "t2"}))

	got, err := repo.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "t2", got.Token)
	assert.Nil(t, got.ExpiresAt)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Clear(ctx, "42"))
	_, err = repo.Load(ctx, "42")
	assert.ErrorIs(t, err, session.ErrNoSession)
}
