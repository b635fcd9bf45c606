package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendar-planner/internal/model"
)

func fixNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestBuildMonth_ThirtyDayMonthStartingWednesday(t *testing.T) {
	fixNow(t, time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC))

	m := BuildMonth(time.Date(2026, time.April, 18, 0, 0, 0, 0, time.UTC), nil, nil, time.UTC)

	assert.Equal(t, 3, m.Offset)
	assert.Equal(t, Date{2026, time.March, 29}, m.Cells[0].Date)
	assert.Equal(t, time.Sunday, m.Cells[0].Date.In(time.UTC).Weekday())
	for i, c := range m.Cells {
		inMonth := i >= m.Offset && i <= m.Offset+29
		assert.Equal(t, inMonth, c.InMonth, "cell %d", i)
	}
	assert.Equal(t, Date{2026, time.April, 1}, m.Cells[3].Date)
	assert.Equal(t, Date{2026, time.April, 30}, m.Cells[32].Date)
	assert.Equal(t, Date{2026, time.May, 1}, m.Cells[33].Date)
	assert.Equal(t, Date{2026, time.May, 9}, m.Cells[41].Date)

	today, ok := m.CellFor(Date{2026, time.April, 10})
	require.True(t, ok)
	assert.True(t, today.IsToday)
	assert.Len(t, m.Weeks(), 6)
}

func TestBuildMonth_BucketsTaskByDueDate(t *testing.T) {
	tasks := []model.Task{{ID: 7, Title: "File taxes", DueDate: "2025-03-15", Status: model.StatusPending}}

	m := BuildMonth(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), tasks, nil, time.UTC)

	hits := 0
	for i, c := range m.Cells {
		if len(c.Tasks) > 0 {
			hits++
			assert.Equal(t, Date{2025, time.March, 15}, c.Date)
			assert.Equal(t, m.Offset+14, i)
			assert.Equal(t, int64(7), c.Tasks[0].ID)
		}
	}
	assert.Equal(t, 1, hits)
}

func TestBuildMonth_UsesLocalDateNotUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	tasks := []model.Task{{ID: 1, Title: "late", DueDate: "2025-03-16T02:00:00Z"}}
	events := []model.Event{{ID: 2, Title: "call", StartTime: "2025-03-16T02:30:00+00:00"}}

	m := BuildMonth(time.Date(2025, time.March, 1, 0, 0, 0, 0, est), tasks, events, est)

	cell, ok := m.CellFor(Date{2025, time.March, 15})
	require.True(t, ok)
	assert.Len(t, cell.Tasks, 1)
	assert.Len(t, cell.Events, 1)
	next, _ := m.CellFor(Date{2025, time.March, 16})
	assert.Empty(t, next.Tasks)
}

func TestBuildMonth_InvalidOrMissingDatesLandNowhere(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Title: "no date"},
		{ID: 2, Title: "garbage", DueDate: "next tuesday"},
		{ID: 3, Title: "impossible", DueDate: "2025-02-30"},
	}
	events := []model.Event{{ID: 4, Title: "bad start", StartTime: "15/03/2025"}}

	m := BuildMonth(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), tasks, events, time.UTC)

	for _, c := range m.Cells {
		assert.Empty(t, c.Tasks)
		assert.Empty(t, c.Events)
	}
}

func TestBuildMonth_OutOfMonthCellsStayEmpty(t *testing.T) {
	// March 2025 grid shows Feb 23..28 and Apr 1..12.
	tasks := []model.Task{
		{ID: 1, Title: "feb", DueDate: "2025-02-28"},
		{ID: 2, Title: "apr", DueDate: "2025-04-01"},
	}

	m := BuildMonth(time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC), tasks, nil, time.UTC)

	feb, ok := m.CellFor(Date{2025, time.February, 28})
	require.True(t, ok)
	assert.False(t, feb.InMonth)
	assert.Empty(t, feb.Tasks)
	apr, ok := m.CellFor(Date{2025, time.April, 1})
	require.True(t, ok)
	assert.Empty(t, apr.Tasks)
}

func TestBuildMonth_KeepsSourceOrder(t *testing.T) {
	tasks := []model.Task{
		{ID: 9, Title: "b", DueDate: "2025-03-15"},
		{ID: 3, Title: "a", DueDate: "2025-03-15T08:00:00"},
		{ID: 5, Title: "c", DueDate: "2025-03-15 23:59:59.123"},
	}

	m := BuildMonth(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), tasks, nil, time.UTC)

	cell, _ := m.CellFor(Date{2025, time.March, 15})
	require.Len(t, cell.Tasks, 3)
	assert.Equal(t, []int64{9, 3, 5}, []int64{cell.Tasks[0].ID, cell.Tasks[1].ID, cell.Tasks[2].ID})
}

func TestParseLocalDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	cases := []struct {
		raw  string
		want Date
		ok   bool
	}{
		{"2025-03-15", Date{2025, time.March, 15}, true},
		{"2025-03-15T20:00:00Z", Date{2025, time.March, 16}, true},
		{"2025-03-15T20:00:00.5+09:00", Date{2025, time.March, 15}, true},
		{"2025-03-15T23:30:00", Date{2025, time.March, 15}, true},
		{"2025-03-15 10:00", Date{2025, time.March, 15}, true},
		{"", Date{}, false},
		{"  ", Date{}, false},
		{"2025-13-01", Date{}, false},
		{"tomorrow", Date{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseLocalDate(tc.raw, tokyo)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestItemsOn(t *testing.T) {
	tasks := []model.Task{{ID: 1, DueDate: "2025-04-02"}, {ID: 2, DueDate: "2025-04-03"}}
	events := []model.Event{{ID: 3, StartTime: "2025-04-02T10:00:00"}}

	dayTasks, dayEvents := ItemsOn(Date{2025, time.April, 2}, tasks, events, time.UTC)

	require.Len(t, dayTasks, 1)
	assert.Equal(t, int64(1), dayTasks[0].ID)
	assert.Len(t, dayEvents, 1)
}
