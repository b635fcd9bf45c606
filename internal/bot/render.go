package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/model"
	"calendar-planner/internal/service"
)

const (
	menuLabelMonth   = "📅 Month"
	menuLabelTasks   = "📋 Tasks"
	menuLabelNewTask = "➕ New task"
	menuLabelHelp    = "ℹ️ Help"

	btnConfirm      = "✅ Confirm"
	btnCancel       = "❌ Cancel"
	btnCancelDialog = "⏪ Stop input"
	btnSkip         = "⏭ Skip"

	priorityLabelHigh   = "🔴 High"
	priorityLabelMedium = "🟡 Medium"
	priorityLabelLow    = "🟢 Low"

	recurrenceLabelNone = "No repeat"

	viewTasks = "tasks"
)

const helpText = `/month [YYYY-MM] - calendar grid
/day [YYYY-MM-DD] - what falls on a day
/tasks - all tasks with done buttons
/toggle &lt;id&gt; - mark a task done or not done
/newtask [title] - add a task
/delete &lt;id&gt; - delete a task
/subtask &lt;task id&gt; &lt;title&gt; - add a subtask
/event Title | start | end | location - add an event
/events - list events
/note Title | content - add a note
/notes - list notes
/categories - list categories
/category Name [#RRGGBB] - add a category
/report - today's agenda
/login &lt;email&gt; &lt;password&gt;, /register, /logout
/cancel - stop the current input`

var weekdayHeader = [7]string{"Su ", "Mo ", "Tu ", "We ", "Th ", "Fr ", "Sa "}

type callbackKind int

const (
	cbMonth callbackKind = iota + 1
	cbDay
	cbToggle
)

// callbackAction is the decoded data of an inline button. Button data has the
// forms "month:YYYY-MM", "day:YYYY-MM-DD" and "toggle:<id>|<view>", where view
// is "tasks" or "day:YYYY-MM-DD".
type callbackAction struct {
	kind   callbackKind
	month  time.Time
	day    calendar.Date
	taskID int64
	view   string
}

var errBadCallback = errors.New("bad callback data")

func parseCallback(data string) (callbackAction, error) {
	prefix, rest, ok := strings.Cut(data, ":")
	if !ok {
		return callbackAction{}, errBadCallback
	}
	switch prefix {
	case "month":
		ref, err := time.Parse("2006-01", rest)
		if err != nil {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: cbMonth, month: ref}, nil
	case "day":
		d, err := calendar.ParseDate(rest)
		if err != nil {
			return callbackAction{}, errBadCallback
		}
		return callbackAction{kind: cbDay, day: d}, nil
	case "toggle":
		idPart, view, _ := strings.Cut(rest, "|")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			return callbackAction{}, errBadCallback
		}
		if view == "" {
			view = viewTasks
		}
		return callbackAction{kind: cbToggle, taskID: id, view: view}, nil
	}
	return callbackAction{}, errBadCallback
}

// parseMonthArg reads an optional YYYY-MM argument; empty means the month of now.
func parseMonthArg(arg string, now time.Time) (time.Time, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	}
	return time.ParseInLocation("2006-01", arg, now.Location())
}

func renderMonth(view service.MonthView) string {
	var sb strings.Builder
	first := time.Date(view.Year, view.Month.Month, 1, 0, 0, 0, 0, time.UTC)
	sb.WriteString(fmt.Sprintf("📅 <b>%s</b>\n<pre>", first.Format("January 2006")))
	sb.WriteString(strings.TrimRight(strings.Join(weekdayHeader[:], " "), " ") + "\n")
	for _, week := range view.Weeks() {
		cells := make([]string, 0, len(week))
		for _, c := range week {
			cells = append(cells, cellMark(c, view.Completed))
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, " "), " ") + "\n")
	}
	sb.WriteString("</pre>")

	var days []string
	for _, c := range view.Cells {
		if !c.InMonth || (len(c.Tasks) == 0 && len(c.Events) == 0) {
			continue
		}
		line := fmt.Sprintf("<b>%d</b>:", c.Date.Day)
		for _, t := range c.Tasks {
			line += " " + checkbox(view.Completed[t.ID]) + escape(shortTitle(t.Title, 24))
		}
		for _, e := range c.Events {
			line += " 🕒" + escape(shortTitle(e.Title, 24))
		}
		days = append(days, line)
	}
	if len(days) == 0 {
		sb.WriteString("\nNothing planned this month.")
	} else {
		sb.WriteString("\n" + strings.Join(days, "\n"))
	}
	if view.Progress.Total > 0 {
		sb.WriteString("\n\n" + progressLine(view.Progress))
	}
	return sb.String()
}

func progressLine(p service.Progress) string {
	return fmt.Sprintf("📊 %d/%d done (%d%%)", p.Completed, p.Total, p.Percent)
}

// cellMark renders one grid cell as a day number plus a marker column:
// "*" open tasks, "✓" every task done, "·" events only, "<" today.
func cellMark(c calendar.Cell, completed map[int64]bool) string {
	if !c.InMonth {
		return "   "
	}
	mark := " "
	switch {
	case len(c.Tasks) > 0:
		mark = "✓"
		for _, t := range c.Tasks {
			if !completed[t.ID] {
				mark = "*"
				break
			}
		}
	case len(c.Events) > 0:
		mark = "·"
	case c.IsToday:
		mark = "<"
	}
	return fmt.Sprintf("%2d%s", c.Date.Day, mark)
}

func monthKeyboard(view service.MonthView) tgbotapi.InlineKeyboardMarkup {
	first := time.Date(view.Year, view.Month.Month, 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ "+prev.Format("Jan"), "month:"+prev.Format("2006-01")),
			tgbotapi.NewInlineKeyboardButtonData(next.Format("Jan")+" ▶", "month:"+next.Format("2006-01")),
		),
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, c := range view.Cells {
		if !c.InMonth || (len(c.Tasks) == 0 && len(c.Events) == 0) {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(c.Date.Day), "day:"+c.Date.String()))
		if len(row) == 7 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func renderDay(view service.DayView, loc *time.Location) string {
	var sb strings.Builder
	day := time.Date(view.Date.Year, view.Date.Month, view.Date.Day, 0, 0, 0, 0, time.UTC)
	sb.WriteString(fmt.Sprintf("📆 <b>%s</b>\n", day.Format("Monday, 2 January 2006")))
	if len(view.Tasks) == 0 && len(view.Events) == 0 {
		sb.WriteString("Nothing planned.")
		return sb.String()
	}
	for _, t := range view.Tasks {
		sb.WriteString(taskLine(t, view.Completed[t.ID]))
	}
	for _, e := range view.Events {
		sb.WriteString(formatEvent(e, loc))
	}
	return strings.TrimSpace(sb.String())
}

func renderTaskList(tasks []model.Task, completed map[int64]bool, progress service.Progress, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString("📋 <b>Tasks</b>\n" + progressLine(progress) + "\n")
	for _, t := range tasks {
		sb.WriteString(taskLine(t, completed[t.ID]))
		if d, ok := calendar.ParseLocalDate(t.DueDate, loc); ok {
			sb.WriteString(fmt.Sprintf("   📅 %s\n", d))
		}
	}
	return strings.TrimSpace(sb.String())
}

func renderTaskDetail(task model.Task, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(taskLine(task, task.Completed()))
	if task.Description != "" {
		sb.WriteString("   " + escape(task.Description) + "\n")
	}
	if d, ok := calendar.ParseLocalDate(task.DueDate, loc); ok {
		sb.WriteString(fmt.Sprintf("   📅 %s", d))
		if task.RecurrenceType != "" && task.RecurrenceType != model.RecurrenceNone {
			sb.WriteString(" 🔁 " + strings.ToLower(string(task.RecurrenceType)))
		}
		sb.WriteByte('\n')
	}
	for _, st := range task.SubTasks {
		sb.WriteString(fmt.Sprintf("   %s%s <code>#%d</code>\n", checkbox(st.IsCompleted), escape(st.Title), st.ID))
	}
	return strings.TrimSpace(sb.String())
}

func taskLine(t model.Task, done bool) string {
	return fmt.Sprintf("%s%s %s <code>#%d</code>\n", checkbox(done), priorityIcon(t.Priority), escape(normalizeTitle(t.Title)), t.ID)
}

// taskKeyboard puts one toggle button per task. The button label shows the
// value the toggle will set, so it always reads as the next action.
func taskKeyboard(tasks []model.Task, completed map[int64]bool, view string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, t := range tasks {
		label := "☐ " + shortTitle(t.Title, 28)
		if completed[t.ID] {
			label = "☑ " + shortTitle(t.Title, 28)
		}
		data := fmt.Sprintf("toggle:%d|%s", t.ID, view)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func toggleText(res service.ToggleResult) string {
	switch {
	case res.Celebrating:
		return fmt.Sprintf("🎉 Task #%d done. Nice work!", res.TaskID)
	case res.Completed:
		return fmt.Sprintf("✅ Task #%d done.", res.TaskID)
	default:
		return fmt.Sprintf("↩️ Task #%d is open again.", res.TaskID)
	}
}

func formatEvent(e model.Event, loc *time.Location) string {
	start, okStart := calendar.ParseLocalTime(e.StartTime, loc)
	end, okEnd := calendar.ParseLocalTime(e.EndTime, loc)
	line := "🕒 " + escape(normalizeTitle(e.Title))
	if okStart && okEnd {
		line += fmt.Sprintf(" %s %s–%s", start.Format("Jan 2"), start.Format("15:04"), end.Format("15:04"))
	}
	if e.Location != "" {
		line += " 📍 " + escape(e.Location)
	}
	return line + "\n"
}

func checkbox(done bool) string {
	if done {
		return "✅ "
	}
	return "⬜ "
}

func priorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMonth),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityLabelHigh),
			tgbotapi.NewKeyboardButton(priorityLabelMedium),
			tgbotapi.NewKeyboardButton(priorityLabelLow),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func recurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(recurrenceLabelNone),
			tgbotapi.NewKeyboardButton(string(model.RecurrenceDaily)),
			tgbotapi.NewKeyboardButton(string(model.RecurrenceWeekly)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.RecurrenceWeekdays)),
			tgbotapi.NewKeyboardButton(string(model.RecurrenceWeekends)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(string(model.RecurrenceMonthly)),
			tgbotapi.NewKeyboardButton(string(model.RecurrenceYearly)),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop"
}

// splitPipe splits "a | b | c" into trimmed parts.
func splitPipe(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func escape(s string) string {
	return html.EscapeString(s)
}

func displayName(username, email string) string {
	if strings.TrimSpace(username) != "" {
		return username
	}
	return email
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func categoryLabel(name string) string {
	base := strings.TrimSpace(name)
	var icon string
	switch strings.ToLower(base) {
	case "study":
		icon = "🎓"
	case "work":
		icon = "💼"
	case "shopping":
		icon = "🛒"
	case "health":
		icon = "🩺"
	case "personal":
		icon = "🧩"
	default:
		icon = "🏷️"
	}
	return icon + " " + escape(normalizeTitle(base))
}
