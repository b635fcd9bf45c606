package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"calendar-planner/internal/gateway"
	"calendar-planner/internal/model"
	"calendar-planner/internal/reconcile"
)

// ErrInvalidInput marks input rejected before any backend call.
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Message is the short banner text for err, covering local validation as well as
// gateway failures.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrNotLoggedIn):
		return "Please log in first."
	case errors.Is(err, reconcile.ErrUnknownTask):
		return "Unknown task: refresh and try again."
	default:
		return gateway.UserMessage(err)
	}
}

func validColor(color string) bool {
	return validate.Var(color, "omitempty,hexcolor") == nil
}

// client returns the gateway bound to the session's token.
func client(gw *gateway.Client, sess model.Session) *gateway.Client {
	return gw.WithToken(sess.Token)
}

// ChangeFunc hears every completion overlay change, tagged with the owning user.
type ChangeFunc func(userID, taskID int64, e reconcile.Entry)

// Overlays holds one completion overlay per backend user.
type Overlays struct {
	mu       sync.Mutex
	byID     map[int64]*reconcile.Overlay
	opts     []reconcile.Option
	onChange ChangeFunc
}

func NewOverlays(opts ...reconcile.Option) *Overlays {
	return &Overlays{byID: make(map[int64]*reconcile.Overlay), opts: opts}
}

// OnChange installs fn as the listener for every user's overlay.
func (o *Overlays) OnChange(fn ChangeFunc) {
	o.mu.Lock()
	o.onChange = fn
	o.mu.Unlock()
}

func (o *Overlays) For(userID int64) *reconcile.Overlay {
	o.mu.Lock()
	defer o.mu.Unlock()
	ov, ok := o.byID[userID]
	if !ok {
		opts := append(o.opts[:len(o.opts):len(o.opts)], reconcile.WithObserver(func(id int64, e reconcile.Entry) {
			o.changed(userID, id, e)
		}))
		ov = reconcile.New(opts...)
		o.byID[userID] = ov
	}
	return ov
}

func (o *Overlays) changed(userID, taskID int64, e reconcile.Entry) {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn(userID, taskID, e)
	}
}

// Drop forgets the overlay of a user who logged out.
func (o *Overlays) Drop(userID int64) {
	o.mu.Lock()
	delete(o.byID, userID)
	o.mu.Unlock()
}
