// Package httpapi serves the calendar view models to a browser front end.
package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"calendar-planner/internal/calendar"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/service"
)

// webSessionKey is the one session slot the browser surface logs into.
const webSessionKey = "web"

// Services are the use cases the web surface drives.
type Services struct {
	Auth     *service.AuthService
	Calendar *service.CalendarService
	Tasks    *service.TaskService
	Events   *service.EventService
	Notes    *service.NoteService
}

type Server struct {
	app *fiber.App
	svc Services
	loc *time.Location
}

func New(svc Services) *Server {
	s := &Server{svc: svc, loc: svc.Calendar.Location()}
	s.app = fiber.New(fiber.Config{
		AppName:               "calendar-planner",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(requestID(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Post("/session", s.login)
	s.app.Delete("/session", s.logout)
	s.app.Get("/calendar", s.month)
	s.app.Get("/days/:date", s.day)
	s.app.Post("/tasks", s.createTask)
	s.app.Post("/tasks/:id/toggle", s.toggleTask)
	s.app.Delete("/tasks/:id", s.deleteTask)
	s.app.Post("/events", s.createEvent)
	s.app.Get("/notes", s.notes)
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()
	select {
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(10 * time.Second)
	case err := <-errCh:
		return err
	}
}

func (s *Server) current(c *fiber.Ctx) (model.Session, error) {
	return s.svc.Auth.Current(c.UserContext(), webSessionKey)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be JSON with email and password")
	}
	sess, err := s.svc.Auth.Login(c.UserContext(), webSessionKey, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sessionResponse{
		UserID:    sess.UserID,
		Username:  sess.Username,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.svc.Auth.Logout(c.UserContext(), webSessionKey); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) month(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	ref := time.Now().In(s.loc)
	if raw := c.Query("month"); raw != "" {
		ref, err = time.ParseInLocation("2006-01", raw, s.loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "month must look like 2025-03")
		}
	}
	ctx := c.UserContext()
	if err := s.svc.Calendar.Refresh(ctx, sess); err != nil {
		return err
	}
	view, err := s.svc.Calendar.Month(ctx, sess, ref)
	if err != nil {
		return err
	}
	return c.JSON(monthJSON(view, s.loc))
}

func (s *Server) day(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	d, err := calendar.ParseDate(c.Params("date"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must look like 2025-03-15")
	}
	view, err := s.svc.Calendar.Day(c.UserContext(), sess, d)
	if err != nil {
		return err
	}
	return c.JSON(dayJSON(view, s.loc))
}

type taskRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	CategoryID        *int64 `json:"category_id"`
	Priority          string `json:"priority"`
	DueDate           string `json:"due_date"`
	Recurrence        string `json:"recurrence"`
	RecurrenceEndDate string `json:"recurrence_end_date"`
	ColorCode         string `json:"color_code"`
}

func (s *Server) createTask(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON task")
	}
	task, err := s.svc.Tasks.CreateTask(c.UserContext(), sess, service.TaskInput{
		Title:             req.Title,
		Description:       req.Description,
		CategoryID:        req.CategoryID,
		Priority:          model.Priority(req.Priority),
		DueDate:           req.DueDate,
		Recurrence:        model.Recurrence(req.Recurrence),
		RecurrenceEndDate: req.RecurrenceEndDate,
		ColorCode:         req.ColorCode,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(taskJSON(task, task.Completed(), false, s.loc))
}

type toggleResponse struct {
	TaskID      int64 `json:"task_id"`
	Completed   bool  `json:"completed"`
	Celebrating bool  `json:"celebrating"`
}

func (s *Server) toggleTask(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}
	res, err := s.svc.Tasks.Toggle(c.UserContext(), sess, id)
	if err != nil {
		return err
	}
	return c.JSON(toggleResponse{TaskID: res.TaskID, Completed: res.Completed, Celebrating: res.Celebrating})
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}
	if err := s.svc.Tasks.DeleteTask(c.UserContext(), sess, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type eventRequest struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location"`
	ColorCode string `json:"color_code"`
}

func (s *Server) createEvent(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	var req eventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a JSON event")
	}
	event, err := s.svc.Events.CreateEvent(c.UserContext(), sess, service.EventInput{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Location:  req.Location,
		ColorCode: req.ColorCode,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(eventJSON(event, s.loc))
}

func (s *Server) notes(c *fiber.Ctx) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	notes, err := s.svc.Notes.List(c.UserContext(), sess)
	if err != nil {
		return err
	}
	out := make([]noteView, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteView{ID: n.ID, Title: n.Title, Content: n.Content, CategoryID: n.CategoryID,
			EventID: n.EventID, ColorCode: n.ColorCode, CreatedAt: n.CreatedAt})
	}
	return c.JSON(out)
}

func taskID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "task id must be a positive number")
	}
	return id, nil
}
