package repository

import (
	"context"

	"gorm.io/gorm"

	"calendar-planner/internal/model"
)

// EventRepository mirrors calendar events in server order.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) ReplaceForUser(ctx context.Context, userID int64, events []model.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceEvents(tx, userID, events)
	})
}

func replaceEvents(tx *gorm.DB, userID int64, events []model.Event) error {
	rows := make([]model.Event, len(events))
	for i, e := range events {
		e.UserID = userID
		e.Position = i
		rows[i] = e
	}
	return replaceForUser(tx, userID, rows)
}

// Upsert keeps an existing event's position and appends new ones.
func (r *EventRepository) Upsert(ctx context.Context, event model.Event) error {
	var existing model.Event
	err := r.db.WithContext(ctx).Select("position").Where("id = ?", event.ID).First(&existing).Error
	switch {
	case err == nil:
		event.Position = existing.Position
	case err == gorm.ErrRecordNotFound:
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Event{}).Where("user_id = ?", event.UserID).Count(&count).Error; err != nil {
			return err
		}
		event.Position = int(count)
	default:
		return err
	}
	return upsert(ctx, r.db, &event)
}

func (r *EventRepository) Delete(ctx context.Context, userID, id int64) error {
	return deleteOwned[model.Event](ctx, r.db, userID, id)
}

func (r *EventRepository) ListByUser(ctx context.Context, userID int64) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("position ASC, id ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// NoteRepository mirrors notes, newest first.
type NoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) ReplaceForUser(ctx context.Context, userID int64, notes []model.Note) error {
	for i := range notes {
		notes[i].UserID = userID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceForUser(tx, userID, notes)
	})
}

func (r *NoteRepository) Upsert(ctx context.Context, note model.Note) error {
	return upsert(ctx, r.db, &note)
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id int64) error {
	return deleteOwned[model.Note](ctx, r.db, userID, id)
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID int64) ([]model.Note, error) {
	var notes []model.Note
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
