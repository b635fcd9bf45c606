package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/gateway"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/repository"
)

// MonthView is a month grid plus the completion values to render it with.
type MonthView struct {
	calendar.Month
	Completed   map[int64]bool
	Celebrating map[int64]bool
	Progress    Progress
}

// DayView lists what falls on one date.
type DayView struct {
	Date      calendar.Date
	Tasks     []model.Task
	Events    []model.Event
	Completed map[int64]bool
}

// CalendarService refreshes the local mirror from the backend and builds grids from it.
type CalendarService struct {
	gw       *gateway.Client
	tasks    *repository.TaskRepository
	events   *repository.EventRepository
	overlays *Overlays
	loc      *time.Location

	refresh singleflight.Group
}

func NewCalendarService(gw *gateway.Client, tasks *repository.TaskRepository, events *repository.EventRepository,
	overlays *Overlays, loc *time.Location) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarService{gw: gw, tasks: tasks, events: events, overlays: overlays, loc: loc}
}

func (s *CalendarService) Location() *time.Location { return s.loc }

// Refresh lists tasks and events concurrently and replaces the user's mirror
// with them. Concurrent refreshes for one user share a single round of calls.
// The shared round runs detached from any one caller's cancellation; each
// caller stops waiting when its own ctx ends. Either list failing leaves the
// mirror untouched.
func (s *CalendarService) Refresh(ctx context.Context, sess model.Session) error {
	key := strconv.FormatInt(sess.UserID, 10)
	ch := s.refresh.DoChan(key, func() (any, error) {
		// Both lists run concurrently, each bounded by the gateway timeout.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.gw.Timeout())
		defer cancel()
		return nil, s.refreshNow(shared, sess)
	})
	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("refresh shared", "user_id", sess.UserID)
		}
		return res.Err
	case <-ctx.Done():
		return gateway.ContextError("refresh", ctx.Err())
	}
}

func (s *CalendarService) refreshNow(ctx context.Context, sess model.Session) error {
	gw := client(s.gw, sess)

	var tasks []model.Task
	var events []model.Event
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = gw.ListTasks(gctx, sess.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = gw.ListEvents(gctx, sess.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.tasks.ReplaceCalendar(ctx, sess.UserID, tasks, events); err != nil {
		return fmt.Errorf("mirror calendar: %w", err)
	}
	s.overlays.For(sess.UserID).Init(tasks)

	logger.InfoContext(ctx, "calendar refreshed", "user_id", sess.UserID, "tasks", len(tasks), "events", len(events))
	return nil
}

// Month builds the grid for the month containing ref from the mirror.
func (s *CalendarService) Month(ctx context.Context, sess model.Session, ref time.Time) (MonthView, error) {
	tasks, events, err := s.load(ctx, sess)
	if err != nil {
		return MonthView{}, err
	}
	ov := s.overlays.For(sess.UserID)
	completed := ov.Snapshot()
	view := MonthView{
		Month:       calendar.BuildMonth(ref.In(s.loc), tasks, events, s.loc),
		Completed:   completed,
		Celebrating: make(map[int64]bool),
		Progress:    ProgressOf(completed),
	}
	for _, t := range tasks {
		if ov.Celebrating(t.ID) {
			view.Celebrating[t.ID] = true
		}
	}
	return view, nil
}

// Day returns the items on d, whether or not d is in the month being viewed.
func (s *CalendarService) Day(ctx context.Context, sess model.Session, d calendar.Date) (DayView, error) {
	tasks, events, err := s.load(ctx, sess)
	if err != nil {
		return DayView{}, err
	}
	dayTasks, dayEvents := calendar.ItemsOn(d, tasks, events, s.loc)
	return DayView{
		Date:      d,
		Tasks:     dayTasks,
		Events:    dayEvents,
		Completed: s.overlays.For(sess.UserID).Snapshot(),
	}, nil
}

func (s *CalendarService) load(ctx context.Context, sess model.Session) ([]model.Task, []model.Event, error) {
	tasks, err := s.tasks.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	events, err := s.events.ListByUser(ctx, sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load events: %w", err)
	}
	return tasks, events, nil
}
