// Package reconcile keeps the completion overlay: the per-task completion flag
// the surfaces render from, updated optimistically ahead of the backend.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"calendar-planner/internal/model"
)

// ErrUnknownTask is returned by Toggle for ids the overlay was never told about.
var ErrUnknownTask = errors.New("task not in overlay")

// DefaultCelebration is how long the celebratory flag stays up after completing a task.
const DefaultCelebration = time.Second

// Entry is Synced(Completed) when Pending is false and Pending(Completed, Prior) otherwise.
type Entry struct {
	Completed bool
	Pending   bool
	Prior     bool
}

// CommitFunc writes the new completion value to the backend.
type CommitFunc func(ctx context.Context, completed bool) error

// Observer is called after every overlay change, outside the overlay lock.
type Observer func(id int64, e Entry)

type Option func(*Overlay)

func WithCelebration(d time.Duration) Option {
	return func(o *Overlay) { o.celebrate = d }
}

func WithObserver(fn Observer) Option {
	return func(o *Overlay) { o.observer = fn }
}

type Overlay struct {
	mu          sync.Mutex
	entries     map[int64]Entry
	celebrating map[int64]uint64
	gen         uint64
	inflight    map[int64]chan struct{}

	celebrate time.Duration
	observer  Observer
}

func New(opts ...Option) *Overlay {
	o := &Overlay{
		entries:     make(map[int64]Entry),
		celebrating: make(map[int64]uint64),
		inflight:    make(map[int64]chan struct{}),
		celebrate:   DefaultCelebration,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Init rebuilds the overlay from task statuses. Ids missing from tasks are
// dropped, even mid-toggle; entries still listed with a toggle in flight are
// left for that toggle to settle.
func (o *Overlay) Init(tasks []model.Task) {
	o.mu.Lock()
	next := make(map[int64]Entry, len(tasks))
	for _, t := range tasks {
		if e, ok := o.entries[t.ID]; ok && e.Pending {
			next[t.ID] = e
			continue
		}
		next[t.ID] = Entry{Completed: t.Completed()}
	}
	o.entries = next
	o.mu.Unlock()
}

// Set records a synced value, e.g. for a task just created.
func (o *Overlay) Set(id int64, completed bool) {
	o.mu.Lock()
	o.entries[id] = Entry{Completed: completed}
	o.mu.Unlock()
	o.notify(id, Entry{Completed: completed})
}

// Forget drops id, e.g. after the task was deleted. A toggle in flight on id
// discards its result when it settles.
func (o *Overlay) Forget(id int64) {
	o.mu.Lock()
	delete(o.entries, id)
	delete(o.celebrating, id)
	o.mu.Unlock()
}

func (o *Overlay) Value(id int64) (completed, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	return e.Completed, ok
}

func (o *Overlay) Entry(id int64) (Entry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	return e, ok
}

// Snapshot copies the rendered completion values.
func (o *Overlay) Snapshot() map[int64]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[int64]bool, len(o.entries))
	for id, e := range o.entries {
		out[id] = e.Completed
	}
	return out
}

func (o *Overlay) Celebrating(id int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.celebrating[id]
	return ok
}

// Toggle flips the completion of id optimistically and commits it.
//
// Toggles on one id run one at a time: a second call waits for the first to
// settle, or returns ctx.Err() if ctx ends first. The value captured before the
// flip is the rollback target when commit fails. The returned bool is the value
// the overlay settled on.
func (o *Overlay) Toggle(ctx context.Context, id int64, commit CommitFunc) (bool, error) {
	if err := o.acquire(ctx, id); err != nil {
		return false, err
	}
	defer o.release(id)

	o.mu.Lock()
	cur, ok := o.entries[id]
	if !ok {
		o.mu.Unlock()
		return false, ErrUnknownTask
	}
	prior := cur.Completed
	next := !prior
	pending := Entry{Completed: next, Pending: true, Prior: prior}
	o.entries[id] = pending
	if next {
		o.startCelebration(id)
	}
	o.mu.Unlock()
	o.notify(id, pending)

	err := commit(ctx, next)

	settled := next
	if err != nil {
		settled = prior
	}
	// Forget or Init may have dropped id while commit ran; a dropped id stays dropped.
	o.mu.Lock()
	e, live := o.entries[id]
	live = live && e.Pending
	if live {
		o.entries[id] = Entry{Completed: settled}
	}
	if err != nil || !live {
		delete(o.celebrating, id)
	}
	o.mu.Unlock()
	if live {
		o.notify(id, Entry{Completed: settled})
	}
	return settled, err
}

func (o *Overlay) acquire(ctx context.Context, id int64) error {
	for {
		o.mu.Lock()
		wait, busy := o.inflight[id]
		if !busy {
			o.inflight[id] = make(chan struct{})
			o.mu.Unlock()
			return nil
		}
		o.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *Overlay) release(id int64) {
	o.mu.Lock()
	done := o.inflight[id]
	delete(o.inflight, id)
	o.mu.Unlock()
	close(done)
}

// startCelebration must be called with o.mu held.
func (o *Overlay) startCelebration(id int64) {
	if o.celebrate <= 0 {
		return
	}
	o.gen++
	gen := o.gen
	o.celebrating[id] = gen
	time.AfterFunc(o.celebrate, func() {
		o.mu.Lock()
		if o.celebrating[id] != gen {
			o.mu.Unlock()
			return
		}
		delete(o.celebrating, id)
		e := o.entries[id]
		o.mu.Unlock()
		o.notify(id, e)
	})
}

func (o *Overlay) notify(id int64, e Entry) {
	if o.observer != nil {
		o.observer(id, e)
	}
}
