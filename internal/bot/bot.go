package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calendar-planner/internal/config"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/service"
)

// Services are the use cases the chat surface drives.
type Services struct {
	Auth       *service.AuthService
	Calendar   *service.CalendarService
	Tasks      *service.TaskService
	Events     *service.EventService
	Notes      *service.NoteService
	Categories *service.CategoryService
	Reminder   *service.ReminderService
}

// SessionLister enumerates logged-in chats for scheduled pushes.
type SessionLister interface {
	ListAll(ctx context.Context) ([]model.Session, error)
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           Services
	sessions      SessionLister
	config        *config.Config
	loc           *time.Location
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	buttons       map[buttonKey]buttonMessage
	mu            sync.Mutex
}

// buttonKey names a task whose toggle button was pressed and is still settling.
type buttonKey struct {
	userID int64
	taskID int64
}

// buttonMessage is the message carrying that button, to be re-rendered in place.
type buttonMessage struct {
	chatID    int64
	messageID int
	view      string
	sess      model.Session
}

func New(token string, svc Services, sessions SessionLister, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	b := &Bot{
		api:           api,
		svc:           svc,
		sessions:      sessions,
		config:        cfg,
		loc:           svc.Calendar.Location(),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
		buttons:       make(map[buttonKey]buttonMessage),
	}
	svc.Tasks.OnCompletionChange(b.completionChanged)
	return b, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			go func(cb *tgbotapi.CallbackQuery) {
				if err := b.handleCallback(ctx, cb); err != nil {
					logger.Error("handle callback", "error", err)
				}
			}(update.CallbackQuery)
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logger.Error("handle message", "error", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		logger.Info("command", "chat_id", msg.Chat.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not understand that. Try /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "login":
		return b.handleLogin(ctx, msg)
	case "register":
		return b.handleRegister(ctx, msg)
	case "logout":
		return b.handleLogout(ctx, msg)
	case "month":
		return b.handleMonth(ctx, msg)
	case "day":
		return b.handleDay(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "toggle":
		return b.handleToggle(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "subtask":
		return b.handleSubTask(ctx, msg)
	case "event":
		return b.handleNewEvent(ctx, msg)
	case "events":
		return b.handleListEvents(ctx, msg)
	case "note":
		return b.handleNewNote(ctx, msg)
	case "notes":
		return b.handleListNotes(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "category":
		return b.handleNewCategory(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

// session returns the logged-in session of a chat, or tells the chat to log in.
func (b *Bot) session(ctx context.Context, chatID int64) (model.Session, bool, error) {
	sess, err := b.svc.Auth.Current(ctx, sessionKey(chatID))
	if err == nil {
		return sess, true, nil
	}
	return model.Session{}, false, b.sendText(chatID, "🔐 "+escape(service.Message(err))+" Use /login &lt;email&gt; &lt;password&gt;.")
}

// SendReports pushes the agenda to every logged-in chat.
func (b *Bot) SendReports(ctx context.Context) error {
	sessions, err := b.sessions.ListAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, sess := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chatID, err := strconv.ParseInt(sess.Key, 10, 64)
		if err != nil || sess.Expired(now) {
			continue
		}
		if err := b.svc.Calendar.Refresh(ctx, sess); err != nil {
			logger.Warn("refresh before report", "chat_id", chatID, "error", err)
		}
		text, err := b.svc.Reminder.Summary(ctx, sess.UserID, now)
		if err != nil {
			logger.Error("build summary", "chat_id", chatID, "error", err)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			logger.Error("send summary", "chat_id", chatID, "error", err)
		}
	}
	return nil
}

func sessionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendBanner shows a failure the way every surface does: a short warning line.
func (b *Bot) sendBanner(chatID int64, err error) error {
	return b.sendText(chatID, "⚠️ "+escape(service.Message(err)))
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		logger.Warn("callback ack", "error", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelMonth):
		return true, b.handleMonth(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
