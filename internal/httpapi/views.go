package httpapi

import (
	"time"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/model"
	"calendar-planner/internal/service"
)

type monthView struct {
	Year     int          `json:"year"`
	Month    int          `json:"month"`
	Offset   int          `json:"offset"`
	Progress progressView `json:"progress"`
	Cells    []cellView   `json:"cells"`
}

type progressView struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

type cellView struct {
	Date    string      `json:"date"`
	InMonth bool        `json:"in_month"`
	IsToday bool        `json:"is_today"`
	Tasks   []taskView  `json:"tasks"`
	Events  []eventView `json:"events"`
}

type dayView struct {
	Date   string      `json:"date"`
	Tasks  []taskView  `json:"tasks"`
	Events []eventView `json:"events"`
}

// taskView carries the displayed completion value, which is the overlay's and
// can differ from Status while a toggle is in flight.
type taskView struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	Priority    model.Priority   `json:"priority"`
	Status      model.Status     `json:"status"`
	DueDate     string           `json:"due_date,omitempty"`
	DueDay      string           `json:"due_day,omitempty"`
	Recurrence  model.Recurrence `json:"recurrence,omitempty"`
	ColorCode   string           `json:"color_code,omitempty"`
	Completed   bool             `json:"completed"`
	Celebrating bool             `json:"celebrating"`
	SubTasks    []subTaskView    `json:"subtasks,omitempty"`
}

type subTaskView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"is_completed"`
}

type eventView struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Day       string `json:"day,omitempty"`
	Location  string `json:"location,omitempty"`
	ColorCode string `json:"color_code,omitempty"`
}

type noteView struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *int64 `json:"category_id,omitempty"`
	EventID    *int64 `json:"event_id,omitempty"`
	ColorCode  string `json:"color_code,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func monthJSON(v service.MonthView, loc *time.Location) monthView {
	out := monthView{
		Year:     v.Year,
		Month:    int(v.Month.Month),
		Offset:   v.Offset,
		Progress: progressView{Completed: v.Progress.Completed, Total: v.Progress.Total, Percent: v.Progress.Percent},
		Cells:    make([]cellView, 0, len(v.Cells)),
	}
	for _, c := range v.Cells {
		cell := cellView{
			Date:    c.Date.String(),
			InMonth: c.InMonth,
			IsToday: c.IsToday,
			Tasks:   make([]taskView, 0, len(c.Tasks)),
			Events:  make([]eventView, 0, len(c.Events)),
		}
		for _, t := range c.Tasks {
			cell.Tasks = append(cell.Tasks, taskJSON(t, v.Completed[t.ID], v.Celebrating[t.ID], loc))
		}
		for _, e := range c.Events {
			cell.Events = append(cell.Events, eventJSON(e, loc))
		}
		out.Cells = append(out.Cells, cell)
	}
	return out
}

func dayJSON(v service.DayView, loc *time.Location) dayView {
	out := dayView{Date: v.Date.String(), Tasks: make([]taskView, 0, len(v.Tasks)), Events: make([]eventView, 0, len(v.Events))}
	for _, t := range v.Tasks {
		out.Tasks = append(out.Tasks, taskJSON(t, v.Completed[t.ID], false, loc))
	}
	for _, e := range v.Events {
		out.Events = append(out.Events, eventJSON(e, loc))
	}
	return out
}

func taskJSON(t model.Task, completed, celebrating bool, loc *time.Location) taskView {
	tv := taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Recurrence:  t.RecurrenceType,
		ColorCode:   t.ColorCode,
		Completed:   completed,
		Celebrating: celebrating,
	}
	if d, ok := calendar.ParseLocalDate(t.DueDate, loc); ok {
		tv.DueDay = d.String()
	}
	for _, st := range t.SubTasks {
		tv.SubTasks = append(tv.SubTasks, subTaskView{ID: st.ID, Title: st.Title, IsCompleted: st.IsCompleted})
	}
	return tv
}

func eventJSON(e model.Event, loc *time.Location) eventView {
	ev := eventView{
		ID:        e.ID,
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Location:  e.Location,
		ColorCode: e.ColorCode,
	}
	if d, ok := calendar.ParseLocalDate(e.StartTime, loc); ok {
		ev.Day = d.String()
	}
	return ev
}
