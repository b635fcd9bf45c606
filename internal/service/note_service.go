package service

import (
	"context"
	"fmt"
	"strings"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/model"
	"calendar-planner/internal/repository"
	"calendar-planner/internal/wire"
)

// NoteService keeps notes in sync with the backend.
type NoteService struct {
	gw   *gateway.Client
	repo *repository.NoteRepository
}

func NewNoteService(gw *gateway.Client, repo *repository.NoteRepository) *NoteService {
	return &NoteService{gw: gw, repo: repo}
}

// NoteInput is the create/update form for a note.
type NoteInput struct {
	Title      string
	Content    string
	CategoryID *int64
	EventID    *int64
	ColorCode  string
}

func (s *NoteService) List(ctx context.Context, sess model.Session) ([]model.Note, error) {
	notes, err := client(s.gw, sess).ListNotes(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceForUser(ctx, sess.UserID, notes); err != nil {
		return nil, fmt.Errorf("mirror notes: %w", err)
	}
	return s.repo.ListByUser(ctx, sess.UserID)
}

func (s *NoteService) Create(ctx context.Context, sess model.Session, in NoteInput) (model.Note, error) {
	payload, err := notePayload(in)
	if err != nil {
		return model.Note{}, err
	}
	note, err := client(s.gw, sess).CreateNote(ctx, sess.UserID, payload)
	if err != nil {
		return model.Note{}, err
	}
	return s.mirror(ctx, sess, note)
}

func (s *NoteService) Update(ctx context.Context, sess model.Session, id int64, in NoteInput) (model.Note, error) {
	payload, err := notePayload(in)
	if err != nil {
		return model.Note{}, err
	}
	note, err := client(s.gw, sess).UpdateNote(ctx, id, sess.UserID, payload)
	if err != nil {
		return model.Note{}, err
	}
	return s.mirror(ctx, sess, note)
}

func (s *NoteService) Delete(ctx context.Context, sess model.Session, id int64) error {
	if err := client(s.gw, sess).DeleteNote(ctx, id, sess.UserID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, sess.UserID, id)
}

func (s *NoteService) mirror(ctx context.Context, sess model.Session, note model.Note) (model.Note, error) {
	note.UserID = sess.UserID
	if err := s.repo.Upsert(ctx, note); err != nil {
		return model.Note{}, fmt.Errorf("mirror note: %w", err)
	}
	return note, nil
}

func notePayload(in NoteInput) (wire.NotePayload, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return wire.NotePayload{}, invalid("note title is required")
	}
	if !validColor(in.ColorCode) {
		return wire.NotePayload{}, invalid("color must be a hex code like #FF8800")
	}
	return wire.NotePayloadFrom(model.Note{
		Title:      in.Title,
		Content:    in.Content,
		CategoryID: in.CategoryID,
		EventID:    in.EventID,
		ColorCode:  in.ColorCode,
	}), nil
}
