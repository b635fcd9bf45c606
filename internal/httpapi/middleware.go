package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/reconcile"
	"calendar-planner/internal/service"
)

const RequestIDHeader = "X-Request-ID"

// errorBody is the envelope every failed request answers with.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDHeader, id)
		c.SetUserContext(logger.ContextWithRequestID(c.UserContext(), id))
		c.Locals("request_id", id)
		return c.Next()
	}
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status, _ = classify(err)
		}
		logFunc := logger.InfoContext
		switch {
		case status >= 500:
			logFunc = logger.ErrorContext
		case status >= 400:
			logFunc = logger.WarnContext
		}
		logFunc(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := service.Message(err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	return c.Status(status).JSON(errorBody{Error: code, Message: msg})
}

// classify maps an error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		switch fe.Code {
		case fiber.StatusNotFound:
			return fe.Code, "not_found"
		case fiber.StatusMethodNotAllowed:
			return fe.Code, "method_not_allowed"
		default:
			return fe.Code, "bad_request"
		}
	case errors.Is(err, service.ErrInvalidInput):
		return fiber.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrNotLoggedIn):
		return fiber.StatusUnauthorized, "not_logged_in"
	case errors.Is(err, reconcile.ErrUnknownTask):
		return fiber.StatusNotFound, "unknown_task"
	}

	kind := gateway.KindOf(err)
	switch kind {
	case gateway.KindUnauthorized:
		return fiber.StatusUnauthorized, kind.String()
	case gateway.KindForbidden:
		return fiber.StatusForbidden, kind.String()
	case gateway.KindNotFound:
		return fiber.StatusNotFound, kind.String()
	case gateway.KindRateLimited:
		return fiber.StatusTooManyRequests, kind.String()
	case gateway.KindTimeout:
		return fiber.StatusGatewayTimeout, kind.String()
	case gateway.KindServerError, gateway.KindNetworkError, gateway.KindMalformedResponse, gateway.KindValidationError:
		return fiber.StatusBadGateway, kind.String()
	}
	return fiber.StatusInternalServerError, "internal_error"
}
