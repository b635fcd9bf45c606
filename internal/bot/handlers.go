package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/reconcile"
	"calendar-planner/internal/service"
)

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your tasks and events on a calendar.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Commands</b>\n"+helpText)
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) error {
	// The message carries a password; do not leave it in the chat.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		logger.Warn("delete login message", "error", err)
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /login &lt;email&gt; &lt;password&gt;")
	}
	sess, err := b.svc.Auth.Login(ctx, sessionKey(msg.Chat.ID), args[0], args[1])
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
		logger.Warn("refresh after login", "chat_id", msg.Chat.ID, "error", err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Logged in as <b>%s</b>.", escape(displayName(sess.Username, sess.Email))))
}

func (b *Bot) handleRegister(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		logger.Warn("delete register message", "error", err)
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 3 || len(args) > 4 {
		return b.sendText(msg.Chat.ID, "Usage: /register &lt;username&gt; &lt;email&gt; &lt;password&gt; [YYYY-MM-DD birth date]")
	}
	in := service.RegisterInput{Username: args[0], Email: args[1], Password: args[2]}
	if len(args) == 4 {
		in.BirthDate = args[3]
	}
	sess, err := b.svc.Auth.Register(ctx, sessionKey(msg.Chat.ID), in)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🎉 Welcome, <b>%s</b>! Add your first task with /newtask.", escape(displayName(sess.Username, sess.Email))))
}

func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.svc.Auth.Logout(ctx, sessionKey(msg.Chat.ID)); err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "👋 Logged out.")
}

func (b *Bot) handleMonth(ctx context.Context, msg *tgbotapi.Message) error {
	ref, err := parseMonthArg(msg.CommandArguments(), time.Now().In(b.loc))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /month [YYYY-MM]")
	}
	text, markup, err := b.monthView(ctx, msg.Chat.ID, ref)
	if err != nil || text == "" {
		return err
	}
	return b.sendWithReplyMarkup(msg.Chat.ID, text, markup)
}

// monthView refreshes the calendar and renders it. An empty text means the
// chat was already told what went wrong.
func (b *Bot) monthView(ctx context.Context, chatID int64, ref time.Time) (string, tgbotapi.InlineKeyboardMarkup, error) {
	sess, ok, err := b.session(ctx, chatID)
	if !ok {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, b.sendBanner(chatID, err)
	}
	view, err := b.svc.Calendar.Month(ctx, sess, ref)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, b.sendBanner(chatID, err)
	}
	return renderMonth(view), monthKeyboard(view), nil
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		arg = calendar.DateOf(time.Now().In(b.loc)).String()
	}
	d, err := calendar.ParseDate(arg)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /day YYYY-MM-DD")
	}
	return b.sendDay(ctx, msg.Chat.ID, d)
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, d calendar.Date) error {
	sess, ok, err := b.session(ctx, chatID)
	if !ok {
		return err
	}
	view, err := b.svc.Calendar.Day(ctx, sess, d)
	if err != nil {
		return b.sendBanner(chatID, err)
	}
	text := renderDay(view, b.loc)
	if len(view.Tasks) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, taskKeyboard(view.Tasks, view.Completed, "day:"+d.String()))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	tasks, err := b.svc.Tasks.ListTasks(ctx, sess)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "You have no tasks yet. Add one with /newtask.")
	}
	completed := b.svc.Tasks.Completion(sess)
	text := renderTaskList(tasks, completed, service.ProgressOf(completed), b.loc)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, taskKeyboard(tasks, completed, viewTasks))
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /toggle &lt;task id&gt;")
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	res, err := b.svc.Tasks.Toggle(ctx, sess, taskID)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, toggleText(res))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the task id: /delete 12")
	}
	taskID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task id must be a number.")
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.GetTask(ctx, sess, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Task not found.")
		}
		return b.sendBanner(msg.Chat.ID, err)
	}
	text := fmt.Sprintf("Delete task «%s» (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	b.setConfirmation(msg.From.ID, confirmationRequest{taskID: task.ID, action: actionDelete})
	return b.sendWithReplyMarkup(msg.Chat.ID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTask(ctx, msg.Chat.ID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "↩️ Kept.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteTask(ctx context.Context, chatID, taskID int64) error {
	sess, ok, err := b.session(ctx, chatID)
	if !ok {
		return err
	}
	if err := b.svc.Tasks.DeleteTask(ctx, sess, taskID); err != nil {
		return b.sendBanner(chatID, err)
	}
	logger.Info("task deleted", "task_id", taskID, "user_id", sess.UserID)
	return b.sendText(chatID, fmt.Sprintf("🗑 Task #%d deleted.", taskID))
}

// handleSubTask covers "/subtask <task id> <title>", "/subtask <task id> done|undo <subtask id>"
// and "/subtask delete <subtask id>".
func (b *Bot) handleSubTask(ctx context.Context, msg *tgbotapi.Message) error {
	usage := "Usage:\n/subtask &lt;task id&gt; &lt;title&gt;\n/subtask &lt;task id&gt; done|undo &lt;subtask id&gt;\n/subtask delete &lt;subtask id&gt;"
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 2 {
		return b.sendText(msg.Chat.ID, usage)
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}

	if fields[0] == "delete" {
		subID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return b.sendText(msg.Chat.ID, usage)
		}
		if err := b.svc.Tasks.DeleteSubTask(ctx, sess, subID); err != nil {
			return b.sendBanner(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, "🗑 Subtask deleted.")
	}

	taskID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, usage)
	}
	if (fields[1] == "done" || fields[1] == "undo") && len(fields) == 3 {
		subID, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return b.sendText(msg.Chat.ID, usage)
		}
		task, err := b.svc.Tasks.SetSubTask(ctx, sess, taskID, subID, fields[1] == "done")
		if err != nil {
			return b.sendBanner(msg.Chat.ID, err)
		}
		return b.sendText(msg.Chat.ID, renderTaskDetail(task, b.loc))
	}

	task, err := b.svc.Tasks.AddSubTask(ctx, sess, taskID, strings.Join(fields[1:], " "))
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, renderTaskDetail(task, b.loc))
}

func (b *Bot) handleNewEvent(ctx context.Context, msg *tgbotapi.Message) error {
	parts := splitPipe(msg.CommandArguments())
	if len(parts) < 3 {
		return b.sendText(msg.Chat.ID, "Usage: /event Title | 2025-03-15 10:00 | 2025-03-15 11:00 | Location")
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	in := service.EventInput{Title: parts[0], StartTime: normalizeDateTime(parts[1]), EndTime: normalizeDateTime(parts[2])}
	if len(parts) > 3 {
		in.Location = parts[3]
	}
	event, err := b.svc.Events.CreateEvent(ctx, sess, in)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, "📅 Event saved:\n"+formatEvent(event, b.loc))
}

func (b *Bot) handleListEvents(ctx context.Context, msg *tgbotapi.Message) error {
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	events, err := b.svc.Events.ListEvents(ctx, sess)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	if len(events) == 0 {
		return b.sendText(msg.Chat.ID, "No events yet. Add one with /event.")
	}
	var sb strings.Builder
	sb.WriteString("📅 <b>Events</b>\n")
	for _, e := range events {
		sb.WriteString(formatEvent(e, b.loc))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleNewNote(ctx context.Context, msg *tgbotapi.Message) error {
	parts := splitPipe(msg.CommandArguments())
	if len(parts) < 1 || parts[0] == "" {
		return b.sendText(msg.Chat.ID, "Usage: /note Title | content")
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	in := service.NoteInput{Title: parts[0]}
	if len(parts) > 1 {
		in.Content = strings.Join(parts[1:], " | ")
	}
	note, err := b.svc.Notes.Create(ctx, sess, in)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📝 Note #%d saved.", note.ID))
}

func (b *Bot) handleListNotes(ctx context.Context, msg *tgbotapi.Message) error {
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	notes, err := b.svc.Notes.List(ctx, sess)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	if len(notes) == 0 {
		return b.sendText(msg.Chat.ID, "No notes yet. Add one with /note.")
	}
	var sb strings.Builder
	sb.WriteString("📝 <b>Notes</b>\n")
	for _, n := range notes {
		sb.WriteString(fmt.Sprintf("• <b>%s</b>", escape(normalizeTitle(n.Title))))
		if n.Content != "" {
			sb.WriteString("\n   " + escape(shortTitle(n.Content, 80)))
		}
		sb.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	categories, err := b.svc.Categories.List(ctx, sess)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "No categories yet. Add one with /category Name #FF8800.")
	}
	var sb strings.Builder
	sb.WriteString("📂 <b>Categories</b>\n")
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("• %s <code>#%d</code>", categoryLabel(c.Name), c.ID))
		if c.ColorCode != "" {
			sb.WriteString(" " + escape(c.ColorCode))
		}
		sb.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleNewCategory(ctx context.Context, msg *tgbotapi.Message) error {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		return b.sendText(msg.Chat.ID, "Usage: /category Name [#RRGGBB]")
	}
	var color string
	if last := fields[len(fields)-1]; strings.HasPrefix(last, "#") {
		color = last
		fields = fields[:len(fields)-1]
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	category, err := b.svc.Categories.Create(ctx, sess, strings.Join(fields, " "), color)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📂 Category %s saved.", categoryLabel(category.Name)))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
		logger.Warn("refresh before report", "chat_id", msg.Chat.ID, "error", err)
	}
	text, err := b.svc.Reminder.Summary(ctx, sess.UserID, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the agenda: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	action, err := parseCallback(cb.Data)
	if err != nil {
		b.ack(cb, "")
		return nil
	}

	switch action.kind {
	case cbMonth:
		b.ack(cb, "")
		text, markup, err := b.monthView(ctx, chatID, action.month)
		if err != nil || text == "" {
			return err
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err = b.api.Send(edit)
		return err
	case cbDay:
		b.ack(cb, "")
		return b.sendDay(ctx, chatID, action.day)
	case cbToggle:
		return b.toggleFromButton(ctx, cb, action)
	default:
		b.ack(cb, "")
		return nil
	}
}

// toggleFromButton answers the button at once with the optimistic value. The
// buttons are redrawn when the overlay flips, then again with whatever value
// the toggle settled on.
func (b *Bot) toggleFromButton(ctx context.Context, cb *tgbotapi.CallbackQuery, action callbackAction) error {
	chatID := cb.Message.Chat.ID
	sess, ok, err := b.session(ctx, chatID)
	if !ok {
		b.ack(cb, "")
		return err
	}
	before := b.svc.Tasks.Completion(sess)[action.taskID]
	if before {
		b.ack(cb, "↩️ Marked as not done")
	} else {
		b.ack(cb, "✅ Done!")
	}

	msg := buttonMessage{chatID: chatID, messageID: cb.Message.MessageID, view: action.view, sess: sess}
	key := buttonKey{userID: sess.UserID, taskID: action.taskID}
	b.mu.Lock()
	b.buttons[key] = msg
	b.mu.Unlock()
	res, toggleErr := b.svc.Tasks.Toggle(ctx, sess, action.taskID)
	b.mu.Lock()
	delete(b.buttons, key)
	b.mu.Unlock()

	b.redrawButtons(ctx, msg)
	if toggleErr != nil {
		return b.sendBanner(chatID, toggleErr)
	}
	if res.Celebrating {
		return b.sendText(chatID, toggleText(res))
	}
	return nil
}

// completionChanged redraws a pressed button's message as soon as the overlay
// applies the optimistic value.
func (b *Bot) completionChanged(userID, taskID int64, e reconcile.Entry) {
	if !e.Pending {
		return
	}
	b.mu.Lock()
	msg, ok := b.buttons[buttonKey{userID: userID, taskID: taskID}]
	b.mu.Unlock()
	if ok {
		b.redrawButtons(context.Background(), msg)
	}
}

func (b *Bot) redrawButtons(ctx context.Context, msg buttonMessage) {
	markup, ok := b.rerender(ctx, msg.sess, msg.view)
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.chatID, msg.messageID, markup)
	if _, err := b.api.Send(edit); err != nil {
		logger.Warn("edit task buttons", "error", err)
	}
}

func (b *Bot) rerender(ctx context.Context, sess model.Session, view string) (tgbotapi.InlineKeyboardMarkup, bool) {
	completed := b.svc.Tasks.Completion(sess)
	if strings.HasPrefix(view, "day:") {
		d, err := calendar.ParseDate(strings.TrimPrefix(view, "day:"))
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, false
		}
		dv, err := b.svc.Calendar.Day(ctx, sess, d)
		if err != nil || len(dv.Tasks) == 0 {
			return tgbotapi.InlineKeyboardMarkup{}, false
		}
		return taskKeyboard(dv.Tasks, completed, view), true
	}
	tasks, err := b.svc.Tasks.ListTasks(ctx, sess)
	if err != nil || len(tasks) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return taskKeyboard(tasks, completed, viewTasks), true
}
