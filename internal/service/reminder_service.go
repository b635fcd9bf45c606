package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/model"
	"calendar-planner/internal/repository"
)

// Agenda is what a user should look at on one day.
type Agenda struct {
	Date      calendar.Date
	Overdue   []model.Task
	DueToday  []model.Task
	Recurring []model.Task
	Events    []model.Event
}

// ReminderService builds human-readable summaries for scheduled notifications.
type ReminderService struct {
	taskRepo     *repository.TaskRepository
	eventRepo    *repository.EventRepository
	categoryRepo *repository.CategoryRepository
	loc          *time.Location
}

func NewReminderService(taskRepo *repository.TaskRepository, eventRepo *repository.EventRepository,
	categoryRepo *repository.CategoryRepository, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{taskRepo: taskRepo, eventRepo: eventRepo, categoryRepo: categoryRepo, loc: loc}
}

// Agenda collects pending tasks due on the day of now, overdue one-off tasks,
// recurring tasks that fall on it, and its events, all from the mirror. A
// recurring task is never overdue.
func (s *ReminderService) Agenda(ctx context.Context, userID int64, now time.Time) (Agenda, error) {
	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return Agenda{}, err
	}
	events, err := s.eventRepo.ListByUser(ctx, userID)
	if err != nil {
		return Agenda{}, err
	}

	today := calendar.DateOf(now.In(s.loc))
	agenda := Agenda{Date: today}
	for _, task := range tasks {
		if task.Status != model.StatusPending {
			continue
		}
		due, ok := calendar.ParseLocalDate(task.DueDate, s.loc)
		if !ok {
			continue
		}
		switch {
		case due == today:
			agenda.DueToday = append(agenda.DueToday, task)
		case due.Before(today) && repeats(task):
			if occursOn(task, due, today, s.loc) {
				agenda.Recurring = append(agenda.Recurring, task)
			}
		case due.Before(today):
			agenda.Overdue = append(agenda.Overdue, task)
		}
	}
	_, agenda.Events = calendar.ItemsOn(today, nil, events, s.loc)
	return agenda, nil
}

// Summary renders the agenda as Telegram HTML.
func (s *ReminderService) Summary(ctx context.Context, userID int64, now time.Time) (string, error) {
	agenda, err := s.Agenda(ctx, userID, now)
	if err != nil {
		return "", err
	}
	categories, err := s.categoryRepo.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	catNames := make(map[int64]string)
	for _, cat := range categories {
		catNames[cat.ID] = cat.Name
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Agenda</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", agenda.Date.In(s.loc).Format("Mon, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Due today</b>\n")
	if len(agenda.DueToday) == 0 {
		builder.WriteString("— nothing due\n")
	}
	for _, task := range agenda.DueToday {
		builder.WriteString(formatTask(task, catNames, ""))
	}

	if len(agenda.Overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Overdue</b>\n")
		for _, task := range agenda.Overdue {
			builder.WriteString(formatTask(task, catNames, "was due "+dueLabel(task.DueDate, s.loc)))
		}
	}

	if len(agenda.Recurring) > 0 {
		builder.WriteString("\n♻️ <b>Repeats today</b>\n")
		for _, task := range agenda.Recurring {
			builder.WriteString(formatTask(task, catNames, strings.ToLower(string(task.RecurrenceType))))
		}
	}

	builder.WriteString("\n📅 <b>Events</b>\n")
	if len(agenda.Events) == 0 {
		builder.WriteString("— no events\n")
	}
	for _, event := range agenda.Events {
		builder.WriteString(formatEvent(event, s.loc))
	}

	return strings.TrimSpace(builder.String()), nil
}

func repeats(task model.Task) bool {
	return task.RecurrenceType != "" && task.RecurrenceType != model.RecurrenceNone
}

// occursOn reports whether a repeating task first due on start falls on day.
func occursOn(task model.Task, start, day calendar.Date, loc *time.Location) bool {
	if end, ok := calendar.ParseLocalDate(task.RecurrenceEndDate, loc); ok && end.Before(day) {
		return false
	}
	weekday := day.In(loc).Weekday()
	switch task.RecurrenceType {
	case model.RecurrenceDaily:
		return true
	case model.RecurrenceWeekdays:
		return weekday != time.Saturday && weekday != time.Sunday
	case model.RecurrenceWeekends:
		return weekday == time.Saturday || weekday == time.Sunday
	case model.RecurrenceWeekly:
		return weekday == start.In(loc).Weekday()
	case model.RecurrenceMonthly:
		dueDay := start.Day
		if last := daysInMonth(day.Month, day.Year); dueDay > last {
			dueDay = last
		}
		return day.Day == dueDay
	case model.RecurrenceYearly:
		if day.Month != start.Month {
			return false
		}
		dueDay := start.Day
		if last := daysInMonth(day.Month, day.Year); dueDay > last {
			dueDay = last
		}
		return day.Day == dueDay
	default:
		return false
	}
}

func formatTask(task model.Task, catNames map[int64]string, note string) string {
	var sb strings.Builder

	icon := "🟢"
	switch task.Priority {
	case model.PriorityHigh:
		icon = "🔴"
	case model.PriorityLow:
		icon = "⚪"
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s <code>#%d</code>", icon, title, task.ID))

	if task.CategoryID != nil {
		if name, ok := catNames[*task.CategoryID]; ok {
			trimmed := strings.TrimSpace(name)
			if trimmed != "" {
				sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed)))
			}
		}
	}

	if note != "" {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", html.EscapeString(note)))
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatEvent(event model.Event, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🕒 %s", html.EscapeString(strings.TrimSpace(event.Title))))
	start, okStart := calendar.ParseLocalTime(event.StartTime, loc)
	end, okEnd := calendar.ParseLocalTime(event.EndTime, loc)
	if okStart && okEnd {
		sb.WriteString(fmt.Sprintf(" %s–%s", start.Format("15:04"), end.Format("15:04")))
	}
	if event.Location != "" {
		sb.WriteString(fmt.Sprintf("\n   📍 %s", html.EscapeString(event.Location)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func dueLabel(raw string, loc *time.Location) string {
	d, ok := calendar.ParseLocalDate(raw, loc)
	if !ok {
		return raw
	}
	return d.String()
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
