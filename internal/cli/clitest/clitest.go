// Package clitest builds command contexts backed by a temporary SQLite store.
package clitest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitd/internal/cli"
	"github.com/julianstephens/habitd/internal/config"
	"github.com/julianstephens/habitd/internal/events"
	"github.com/julianstephens/habitd/internal/storage/sqlite"
	"github.com/julianstephens/habitd/internal/streak"
	"github.com/julianstephens/habitd/internal/tracker"
)

// Now is the fixed clock of every test context: Wednesday 2024-01-10, 18:00 UTC.
var Now = time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

// Env is a ready-to-run command context and its captured output.
type Env struct {
	*cli.Context
	Output *bytes.Buffer
	DB     *sqlite.Store
}

// New initializes a store in t.TempDir and wires the engine and tracker the
// way the binary does, without notifications.
func New(t *testing.T) *Env {
	t.Helper()

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "habitd.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	clock := func() time.Time { return Now }
	bus := events.NewBus()
	engine := streak.New(store, store, store, store, streak.WithPublisher(bus), streak.WithClock(clock))
	engine.Register(bus)

	t.Cleanup(func() {
		bus.Wait()
		store.Close()
	})

	out := &bytes.Buffer{}
	return &Env{
		Context: &cli.Context{
			Ctx:     context.Background(),
			Store:   store,
			Config:  config.Default(),
			Bus:     bus,
			Engine:  engine,
			Tracker: tracker.New(store, bus, tracker.WithClock(clock)),
			Out:     out,
			Now:     clock,
		},
		Output: out,
		DB:     store,
	}
}

// Reset clears captured output.
func (e *Env) Reset() {
	e.Output.Reset()
}
