package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"calendar-planner/internal/model"
)

// TaskRepository mirrors the user's tasks and subtasks locally.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// ReplaceForUser refreshes the mirror wholesale from a server listing; list order is kept in Position.
func (r *TaskRepository) ReplaceForUser(ctx context.Context, userID int64, tasks []model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceTasks(tx, userID, tasks)
	})
}

// ReplaceCalendar replaces the user's tasks and events in one transaction, so a
// failure on either side leaves both as they were.
func (r *TaskRepository) ReplaceCalendar(ctx context.Context, userID int64, tasks []model.Task, events []model.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceTasks(tx, userID, tasks); err != nil {
			return err
		}
		return replaceEvents(tx, userID, events)
	})
}

func replaceTasks(tx *gorm.DB, userID int64, tasks []model.Task) error {
	rows := make([]model.Task, len(tasks))
	var subs []model.SubTask
	for i, t := range tasks {
		t.UserID = userID
		t.Position = i
		for _, st := range t.SubTasks {
			st.TaskID = t.ID
			subs = append(subs, st)
		}
		t.SubTasks = nil
		rows[i] = t
	}

	if err := tx.Where("task_id IN (?)", tx.Model(&model.Task{}).Select("id").Where("user_id = ?", userID)).
		Delete(&model.SubTask{}).Error; err != nil {
		return fmt.Errorf("clear subtasks: %w", err)
	}
	if err := replaceForUser(tx, userID, rows); err != nil {
		return err
	}
	if len(subs) > 0 {
		if err := tx.Create(&subs).Error; err != nil {
			return fmt.Errorf("insert subtasks: %w", err)
		}
	}
	return nil
}

// Upsert stores a single task returned by a create or update call, replacing its subtasks.
// New tasks go to the end of the list.
func (r *TaskRepository) Upsert(ctx context.Context, task model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Task
		err := tx.Select("position").Where("id = ?", task.ID).First(&existing).Error
		switch {
		case err == nil:
			task.Position = existing.Position
		case err == gorm.ErrRecordNotFound:
			var maxPos sql.NullInt64
			if err := tx.Model(&model.Task{}).Where("user_id = ?", task.UserID).Select("MAX(position)").Row().Scan(&maxPos); err != nil {
				return fmt.Errorf("next position: %w", err)
			}
			if maxPos.Valid {
				task.Position = int(maxPos.Int64) + 1
			}
		default:
			return fmt.Errorf("find task: %w", err)
		}

		subs := task.SubTasks
		task.SubTasks = nil
		if err := upsert(ctx, tx, &task); err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&model.SubTask{}).Error; err != nil {
			return fmt.Errorf("clear subtasks: %w", err)
		}
		for i := range subs {
			subs[i].TaskID = task.ID
		}
		if len(subs) > 0 {
			if err := tx.Create(&subs).Error; err != nil {
				return fmt.Errorf("insert subtasks: %w", err)
			}
		}
		return nil
	})
}

// UpdateStatus patches only the status column of a mirrored task.
func (r *TaskRepository) UpdateStatus(ctx context.Context, userID, taskID int64, status model.Status) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int64) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("SubTasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("user_id = ?", userID).Order("position ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("SubTasks").
		Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task and its subtasks.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&model.SubTask{}).Error; err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		return deleteOwned[model.Task](ctx, tx, userID, taskID)
	})
}

func (r *TaskRepository) DeleteSubTask(ctx context.Context, subTaskID int64) error {
	if err := r.db.WithContext(ctx).Where("id = ?", subTaskID).Delete(&model.SubTask{}).Error; err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

// DueBetween lists tasks whose due date falls within [from, to], both YYYY-MM-DD.
// Only the date prefix of the stored value is compared.
func (r *TaskRepository) DueBetween(ctx context.Context, userID int64, from, to string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND due_date <> '' AND substr(due_date, 1, 10) BETWEEN ? AND ?", userID, from, to).
		Order("position ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
