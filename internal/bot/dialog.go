package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/model"
	"calendar-planner/internal/service"
)

type conversationStage int

const (
	stageTitle conversationStage = iota
	stageDescription
	stagePriority
	stageDueDate
	stageRecurrence
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

type confirmationAction string

const actionDelete confirmationAction = "delete"

type confirmationRequest struct {
	taskID int64
	action confirmationAction
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.session(ctx, msg.Chat.ID); !ok {
		return err
	}
	b.clearConfirmation(msg.From.ID)

	state := &conversationState{stage: stageTitle}
	if title := normalizeTitle(msg.CommandArguments()); title != "" {
		state.input.Title = title
		state.stage = stageDescription
		b.setConversation(msg.From.ID, state)
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Add a description or skip.", skipKeyboard())
	}
	b.setConversation(msg.From.ID, state)
	return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ What is the task called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageTitle:
		title := normalizeTitle(text)
		if title == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title cannot be empty. Try again.", cancelKeyboard())
		}
		state.input.Title = title
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Add a description or skip.", skipKeyboard())

	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "⚡ Pick a priority.", priorityKeyboard())

	case stagePriority:
		p, ok := parsePriority(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", priorityKeyboard())
		}
		state.input.Priority = p
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "📅 Due date (YYYY-MM-DD or YYYY-MM-DD HH:MM), or skip.", skipKeyboard())

	case stageDueDate:
		if !isSkipInput(text) {
			due := normalizeDateTime(text)
			if _, ok := calendar.ParseLocalDate(due, b.loc); !ok {
				return b.sendWithReplyMarkup(msg.Chat.ID, "That is not a date. Use YYYY-MM-DD.", skipKeyboard())
			}
			state.input.DueDate = due
			state.stage = stageRecurrence
			return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Does it repeat?", recurrenceKeyboard())
		}
		return b.finishNewTask(ctx, msg)

	case stageRecurrence:
		r, ok := parseRecurrence(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the buttons.", recurrenceKeyboard())
		}
		state.input.Recurrence = r
		return b.finishNewTask(ctx, msg)
	}
	return nil
}

func (b *Bot) finishNewTask(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	b.clearConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	sess, ok, err := b.session(ctx, msg.Chat.ID)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.CreateTask(ctx, sess, state.input)
	if err != nil {
		return b.sendBanner(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Task saved:\n%s", renderTaskDetail(task, b.loc)))
}

func parsePriority(text string) (model.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(priorityLabelHigh), "high":
		return model.PriorityHigh, true
	case strings.ToLower(priorityLabelMedium), "medium":
		return model.PriorityMedium, true
	case strings.ToLower(priorityLabelLow), "low":
		return model.PriorityLow, true
	}
	return "", false
}

func parseRecurrence(text string) (model.Recurrence, bool) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == strings.ToUpper(recurrenceLabelNone) {
		return model.RecurrenceNone, true
	}
	r := model.Recurrence(text)
	return r, r.Valid()
}

// normalizeDateTime accepts "YYYY-MM-DD HH:MM" as typed in a chat and
// returns it in the form the backend stores.
func normalizeDateTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02 15:04", raw); err == nil {
		return t.Format("2006-01-02T15:04:05")
	}
	return raw
}
