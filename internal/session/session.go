package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"calendar-planner/internal/model"
)

// ErrNoSession is returned by Load when nothing is stored under the key.
var ErrNoSession = errors.New("no session")

// Store persists the access token and minimal identity per local owner key.
type Store interface {
	Load(ctx context.Context, key string) (model.Session, error)
	Save(ctx context.Context, s model.Session) error
	Clear(ctx context.Context, key string) error
}

// ExpiryFromToken reads the exp claim of a JWT access token without verifying
// its signature; the client only needs it to stop using a stale token. Opaque
// tokens and tokens without exp yield nil.
func ExpiryFromToken(token string) *time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	exp := claims.ExpiresAt.Time
	return &exp
}
