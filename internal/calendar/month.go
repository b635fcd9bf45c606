package calendar

import (
	"time"

	"calendar-planner/internal/model"
)

// GridSize is six Sunday-start weeks.
const GridSize = 42

// now is swapped in tests.
var now = time.Now

// Cell is one day of the month grid. Out-of-month cells never carry items.
type Cell struct {
	Date    Date
	InMonth bool
	IsToday bool
	Tasks   []model.Task
	Events  []model.Event
}

// Month is the grid for one reference month.
type Month struct {
	Year   int
	Month  time.Month
	Offset int // index of day 1
	Cells  [GridSize]Cell
}

// BuildMonth lays out the month containing ref on a 42-cell grid starting on the
// Sunday on or before the 1st, and buckets tasks by due date and events by start
// time. Items keep their source order inside a cell.
func BuildMonth(ref time.Time, tasks []model.Task, events []model.Event, loc *time.Location) Month {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	m := Month{
		Year:   first.Year(),
		Month:  first.Month(),
		Offset: int(first.Weekday()),
	}

	start := DateOf(first).AddDays(-m.Offset)
	today := DateOf(now().In(loc))
	index := make(map[Date]int, GridSize)
	for i := range m.Cells {
		d := start.AddDays(i)
		m.Cells[i] = Cell{
			Date:    d,
			InMonth: d.Year == m.Year && d.Month == m.Month,
			IsToday: d == today,
		}
		if m.Cells[i].InMonth {
			index[d] = i
		}
	}

	for _, t := range tasks {
		d, ok := ParseLocalDate(t.DueDate, loc)
		if !ok {
			continue
		}
		if i, ok := index[d]; ok {
			m.Cells[i].Tasks = append(m.Cells[i].Tasks, t)
		}
	}
	for _, e := range events {
		d, ok := ParseLocalDate(e.StartTime, loc)
		if !ok {
			continue
		}
		if i, ok := index[d]; ok {
			m.Cells[i].Events = append(m.Cells[i].Events, e)
		}
	}
	return m
}

// CellFor returns the cell showing d, if the grid contains it.
func (m Month) CellFor(d Date) (Cell, bool) {
	for _, c := range m.Cells {
		if c.Date == d {
			return c, true
		}
	}
	return Cell{}, false
}

// Weeks splits the grid into rows of seven.
func (m Month) Weeks() [][]Cell {
	weeks := make([][]Cell, 0, GridSize/7)
	for i := 0; i < GridSize; i += 7 {
		weeks = append(weeks, m.Cells[i:i+7])
	}
	return weeks
}

// ItemsOn returns the tasks and events falling on d, for day views that are not
// limited to the month being shown.
func ItemsOn(d Date, tasks []model.Task, events []model.Event, loc *time.Location) ([]model.Task, []model.Event) {
	var dayTasks []model.Task
	var dayEvents []model.Event
	for _, t := range tasks {
		if td, ok := ParseLocalDate(t.DueDate, loc); ok && td == d {
			dayTasks = append(dayTasks, t)
		}
	}
	for _, e := range events {
		if ed, ok := ParseLocalDate(e.StartTime, loc); ok && ed == d {
			dayEvents = append(dayEvents, e)
		}
	}
	return dayTasks, dayEvents
}
