package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/gateway"
	"calendar-planner/internal/model"
	"calendar-planner/internal/repository"
	"calendar-planner/internal/wire"
)

// EventInput is the create/update form for an event.
type EventInput struct {
	Title     string
	StartTime string
	EndTime   string
	Location  string
	ColorCode string
}

type EventService struct {
	gw        *gateway.Client
	eventRepo *repository.EventRepository
	loc       *time.Location
}

func NewEventService(gw *gateway.Client, eventRepo *repository.EventRepository, loc *time.Location) *EventService {
	if loc == nil {
		loc = time.Local
	}
	return &EventService{gw: gw, eventRepo: eventRepo, loc: loc}
}

// CreateEvent rejects a start at or after the end before contacting the backend.
func (s *EventService) CreateEvent(ctx context.Context, sess model.Session, in EventInput) (model.Event, error) {
	payload, err := s.payload(in)
	if err != nil {
		return model.Event{}, err
	}
	event, err := client(s.gw, sess).CreateEvent(ctx, sess.UserID, payload)
	if err != nil {
		return model.Event{}, err
	}
	return s.mirror(ctx, sess, event)
}

func (s *EventService) UpdateEvent(ctx context.Context, sess model.Session, eventID int64, in EventInput) (model.Event, error) {
	payload, err := s.payload(in)
	if err != nil {
		return model.Event{}, err
	}
	event, err := client(s.gw, sess).UpdateEvent(ctx, eventID, sess.UserID, payload)
	if err != nil {
		return model.Event{}, err
	}
	return s.mirror(ctx, sess, event)
}

func (s *EventService) DeleteEvent(ctx context.Context, sess model.Session, eventID int64) error {
	if err := client(s.gw, sess).DeleteEvent(ctx, eventID, sess.UserID); err != nil {
		return err
	}
	return s.eventRepo.Delete(ctx, sess.UserID, eventID)
}

func (s *EventService) ListEvents(ctx context.Context, sess model.Session) ([]model.Event, error) {
	return s.eventRepo.ListByUser(ctx, sess.UserID)
}

func (s *EventService) payload(in EventInput) (wire.EventPayload, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return wire.EventPayload{}, invalid("title is required")
	}
	start, ok := calendar.ParseLocalTime(in.StartTime, s.loc)
	if !ok {
		return wire.EventPayload{}, invalid("start time %q is not a date-time", in.StartTime)
	}
	end, ok := calendar.ParseLocalTime(in.EndTime, s.loc)
	if !ok {
		return wire.EventPayload{}, invalid("end time %q is not a date-time", in.EndTime)
	}
	if !start.Before(end) {
		return wire.EventPayload{}, invalid("event must start before it ends")
	}
	if !validColor(in.ColorCode) {
		return wire.EventPayload{}, invalid("color must be a hex code like #FF8800")
	}
	return wire.EventPayloadFrom(model.Event{
		Title:     in.Title,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Location:  strings.TrimSpace(in.Location),
		ColorCode: in.ColorCode,
	}), nil
}

func (s *EventService) mirror(ctx context.Context, sess model.Session, event model.Event) (model.Event, error) {
	event.UserID = sess.UserID
	if err := s.eventRepo.Upsert(ctx, event); err != nil {
		return model.Event{}, fmt.Errorf("mirror event: %w", err)
	}
	return event, nil
}
