package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"calendar-planner/internal/model"
	"calendar-planner/internal/wire"
)

// ListTasks returns the user's tasks in server order.
func (c *Client) ListTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	const op = "list tasks"
	body, err := c.do(ctx, op, http.MethodGet, "tasks/", userQuery(userID), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[wire.Task](op, body)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, wire.TaskFromWire(r))
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id, userID int64) (model.Task, error) {
	const op = "get task"
	body, err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("tasks/%d", id), userQuery(userID), nil)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(op, body)
}

// CreateTask requires a non-empty title and a known priority code; a payload
// without them is rejected here and never sent.
func (c *Client) CreateTask(ctx context.Context, userID int64, payload wire.TaskPayload) (model.Task, error) {
	const op = "create task"
	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		return model.Task{}, validationError(op, "title is required", nil)
	}
	if payload.PriorityID == nil {
		return model.Task{}, validationError(op, "priority is required", nil)
	}
	if *payload.PriorityID < wire.PriorityHighCode || *payload.PriorityID > wire.PriorityLowCode {
		return model.Task{}, validationError(op, fmt.Sprintf("unknown priority code %d", *payload.PriorityID), nil)
	}
	body, err := c.do(ctx, op, http.MethodPost, "tasks/", userQuery(userID), payload)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(op, body)
}

// UpdateTask sends only the non-nil fields of payload.
func (c *Client) UpdateTask(ctx context.Context, id, userID int64, payload wire.TaskPayload) (model.Task, error) {
	const op = "update task"
	body, err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("tasks/%d", id), userQuery(userID), payload)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(op, body)
}

// UpdateTaskStatus is the narrow status-only update used by completion toggles.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, userID int64, status model.Status) (model.Task, error) {
	return c.UpdateTask(ctx, id, userID, wire.StatusPayload(status))
}

func (c *Client) DeleteTask(ctx context.Context, id, userID int64) error {
	_, err := c.do(ctx, "delete task", http.MethodDelete, fmt.Sprintf("tasks/%d", id), userQuery(userID), nil)
	return err
}

// CreateSubTask adds a subtask; the backend answers with the whole parent task.
func (c *Client) CreateSubTask(ctx context.Context, taskID, userID int64, payload wire.SubTaskPayload) (model.Task, error) {
	const op = "create subtask"
	if strings.TrimSpace(payload.Title) == "" {
		return model.Task{}, validationError(op, "title is required", nil)
	}
	body, err := c.do(ctx, op, http.MethodPost, fmt.Sprintf("tasks/%d/subtask/", taskID), userQuery(userID), payload)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(op, body)
}

func (c *Client) UpdateSubTask(ctx context.Context, taskID, subTaskID, userID int64, payload wire.SubTaskPayload) (model.Task, error) {
	const op = "update subtask"
	body, err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("tasks/%d/subtask/%d", taskID, subTaskID), userQuery(userID), payload)
	if err != nil {
		return model.Task{}, err
	}
	return decodeTask(op, body)
}

func (c *Client) DeleteSubTask(ctx context.Context, subTaskID, userID int64) error {
	_, err := c.do(ctx, "delete subtask", http.MethodDelete, fmt.Sprintf("tasks/subtasks/%d", subTaskID), userQuery(userID), nil)
	return err
}

func decodeTask(op string, body []byte) (model.Task, error) {
	record, err := decodeObject[wire.Task](op, body)
	if err != nil {
		return model.Task{}, err
	}
	return wire.TaskFromWire(record), nil
}
