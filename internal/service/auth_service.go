package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/logger"
	"calendar-planner/internal/model"
	"calendar-planner/internal/session"
	"calendar-planner/internal/wire"
)

// ErrNotLoggedIn is returned when no usable session exists for a key.
var ErrNotLoggedIn = errors.New("not logged in")

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6"`
	BirthDate string `validate:"omitempty,datetime=2006-01-02"`
}

// AuthService logs users in against the backend and keeps their session per local key.
type AuthService struct {
	gw       *gateway.Client
	store    session.Store
	overlays *Overlays
	now      func() time.Time
}

func NewAuthService(gw *gateway.Client, store session.Store, overlays *Overlays) *AuthService {
	return &AuthService{gw: gw, store: store, overlays: overlays, now: time.Now}
}

func (s *AuthService) Login(ctx context.Context, key, email, password string) (model.Session, error) {
	email = strings.TrimSpace(email)
	if validate.Var(email, "required,email") != nil {
		return model.Session{}, invalid("a valid email is required")
	}
	if password == "" {
		return model.Session{}, invalid("password is required")
	}
	resp, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return model.Session{}, err
	}
	return s.persist(ctx, key, resp)
}

func (s *AuthService) Register(ctx context.Context, key string, in RegisterInput) (model.Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return model.Session{}, invalid("username, a valid email and a password of at least 6 characters are required")
	}
	resp, err := s.gw.Register(ctx, wire.RegisterRequest{
		Username:  in.Username,
		Email:     in.Email,
		BirthDate: in.BirthDate,
		Password:  in.Password,
	})
	if err != nil {
		return model.Session{}, err
	}
	return s.persist(ctx, key, resp)
}

func (s *AuthService) persist(ctx context.Context, key string, resp wire.AuthResponse) (model.Session, error) {
	sess := model.Session{
		Key:       key,
		UserID:    resp.UserID,
		Username:  resp.Username,
		Email:     resp.Email,
		Token:     resp.AccessToken,
		ExpiresAt: session.ExpiryFromToken(resp.AccessToken),
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return model.Session{}, err
	}
	logger.InfoContext(ctx, "session stored", "key", key, "user_id", sess.UserID)
	return sess, nil
}

func (s *AuthService) Logout(ctx context.Context, key string) error {
	if sess, err := s.store.Load(ctx, key); err == nil {
		s.overlays.Drop(sess.UserID)
	}
	return s.store.Clear(ctx, key)
}

// Current returns the stored session for key. Expired tokens are cleared.
func (s *AuthService) Current(ctx context.Context, key string) (model.Session, error) {
	sess, err := s.store.Load(ctx, key)
	if errors.Is(err, session.ErrNoSession) {
		return model.Session{}, ErrNotLoggedIn
	}
	if err != nil {
		return model.Session{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.Clear(ctx, key); err != nil {
			logger.WarnContext(ctx, "clear expired session", "key", key, "error", err)
		}
		return model.Session{}, ErrNotLoggedIn
	}
	return sess, nil
}
