// Package events is the in-process signal fabric that triggers streak
// recomputation.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/habitd/internal/logger"
)

// Type names a signal.
type Type string

const (
	StreakRefreshRequested Type = "streak.refresh_requested"
	PlannedDayUpdated      Type = "planned_day.updated"
	PlannedTaskCreated     Type = "planned_task.created"
	PlannedTaskUpdated     Type = "planned_task.updated"
	ScheduleChanged        Type = "schedule.changed"
)

// Event carries the user (and optionally the habit and day) a signal concerns.
type Event struct {
	Type    Type
	UserID  string
	HabitID string
	Day     time.Time
}

// Key identifies events that would trigger the same work.
func (e Event) Key() string {
	return string(e.Type) + "|" + e.UserID + "|" + e.HabitID
}

// Handler reacts to an event. Returned errors are logged, never retried.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events to subscribers asynchronously. While an event key is
// being handled, further events with the same key are dropped. Construct one
// per process.
type Bus struct {
	mu         sync.Mutex
	handlers   map[Type][]Handler
	processing map[string]struct{}
	wg         sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{
		handlers:   make(map[Type][]Handler),
		processing: make(map[string]struct{}),
	}
}

// Subscribe registers h for events of type t.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish hands e to its subscribers in the background and returns
// immediately. It reports false when the event was dropped because the same
// key is already in flight. Cancellation of ctx does not stop the handlers.
func (b *Bus) Publish(ctx context.Context, e Event) bool {
	key := e.Key()

	b.mu.Lock()
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	if len(handlers) == 0 {
		b.mu.Unlock()
		return true
	}
	if _, busy := b.processing[key]; busy {
		b.mu.Unlock()
		logger.Debug("Dropping duplicate event", "key", key)
		return false
	}
	b.processing[key] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer b.wg.Done()
		defer b.release(key)
		for _, h := range handlers {
			if err := h(ctx, e); err != nil {
				logger.Error("Event handler failed", "type", e.Type, "user", e.UserID, "habit", e.HabitID, "error", err)
			}
		}
	}()
	return true
}

// InFlight reports whether an event with key is currently being handled.
func (b *Bus) InFlight(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.processing[key]
	return ok
}

// Wait blocks until every published event has been handled.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) release(key string) {
	b.mu.Lock()
	delete(b.processing, key)
	b.mu.Unlock()
}
