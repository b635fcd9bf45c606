package gateway

import (
	"context"
	"fmt"
	"net/http"

	"calendar-planner/internal/model"
	"calendar-planner/internal/wire"
)

func (c *Client) ListEvents(ctx context.Context, userID int64) ([]model.Event, error) {
	const op = "list events"
	body, err := c.do(ctx, op, http.MethodGet, "events/", userQuery(userID), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[wire.Event](op, body)
	if err != nil {
		return nil, err
	}
	return mapAll(records, wire.EventFromWire), nil
}

func (c *Client) CreateEvent(ctx context.Context, userID int64, payload wire.EventPayload) (model.Event, error) {
	const op = "create event"
	body, err := c.do(ctx, op, http.MethodPost, "events/", userQuery(userID), payload)
	if err != nil {
		return model.Event{}, err
	}
	return decodeMapped(op, body, wire.EventFromWire)
}

func (c *Client) UpdateEvent(ctx context.Context, id, userID int64, payload wire.EventPayload) (model.Event, error) {
	const op = "update event"
	body, err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("events/%d", id), userQuery(userID), payload)
	if err != nil {
		return model.Event{}, err
	}
	return decodeMapped(op, body, wire.EventFromWire)
}

func (c *Client) DeleteEvent(ctx context.Context, id, userID int64) error {
	_, err := c.do(ctx, "delete event", http.MethodDelete, fmt.Sprintf("events/%d", id), userQuery(userID), nil)
	return err
}

func (c *Client) ListNotes(ctx context.Context, userID int64) ([]model.Note, error) {
	const op = "list notes"
	body, err := c.do(ctx, op, http.MethodGet, "notes/", userQuery(userID), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[wire.Note](op, body)
	if err != nil {
		return nil, err
	}
	return mapAll(records, wire.NoteFromWire), nil
}

func (c *Client) CreateNote(ctx context.Context, userID int64, payload wire.NotePayload) (model.Note, error) {
	const op = "create note"
	body, err := c.do(ctx, op, http.MethodPost, "notes/", userQuery(userID), payload)
	if err != nil {
		return model.Note{}, err
	}
	return decodeMapped(op, body, wire.NoteFromWire)
}

func (c *Client) UpdateNote(ctx context.Context, id, userID int64, payload wire.NotePayload) (model.Note, error) {
	const op = "update note"
	body, err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("notes/%d", id), userQuery(userID), payload)
	if err != nil {
		return model.Note{}, err
	}
	return decodeMapped(op, body, wire.NoteFromWire)
}

func (c *Client) DeleteNote(ctx context.Context, id, userID int64) error {
	_, err := c.do(ctx, "delete note", http.MethodDelete, fmt.Sprintf("notes/%d", id), userQuery(userID), nil)
	return err
}

func (c *Client) ListCategories(ctx context.Context, userID int64) ([]model.Category, error) {
	const op = "list categories"
	body, err := c.do(ctx, op, http.MethodGet, "categories/", userQuery(userID), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeList[wire.Category](op, body)
	if err != nil {
		return nil, err
	}
	return mapAll(records, wire.CategoryFromWire), nil
}

func (c *Client) CreateCategory(ctx context.Context, userID int64, payload wire.CategoryPayload) (model.Category, error) {
	const op = "create category"
	body, err := c.do(ctx, op, http.MethodPost, "categories/", userQuery(userID), payload)
	if err != nil {
		return model.Category{}, err
	}
	return decodeMapped(op, body, wire.CategoryFromWire)
}

func (c *Client) UpdateCategory(ctx context.Context, id, userID int64, payload wire.CategoryPayload) (model.Category, error) {
	const op = "update category"
	body, err := c.do(ctx, op, http.MethodPut, fmt.Sprintf("categories/%d", id), userQuery(userID), payload)
	if err != nil {
		return model.Category{}, err
	}
	return decodeMapped(op, body, wire.CategoryFromWire)
}

func (c *Client) DeleteCategory(ctx context.Context, id, userID int64) error {
	_, err := c.do(ctx, "delete category", http.MethodDelete, fmt.Sprintf("categories/%d", id), userQuery(userID), nil)
	return err
}

func decodeMapped[W, M any](op string, body []byte, conv func(W) M) (M, error) {
	record, err := decodeObject[W](op, body)
	if err != nil {
		var zero M
		return zero, err
	}
	return conv(record), nil
}

func mapAll[W, M any](records []W, conv func(W) M) []M {
	out := make([]M, 0, len(records))
	for _, r := range records {
		out = append(out, conv(r))
	}
	return out
}
