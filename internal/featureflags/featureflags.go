package featureflags

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rollout/rox-go/v5/server"
)

// Flags is the container registered with Rollout. Field names are the flag
// names on the dashboard.
type Flags struct {
	// Offline answers 503 on everything except health checks.
	Offline server.RoxFlag
	// LogLevel is applied to the process logger when it changes.
	LogLevel server.RoxString
	// ServerSearch routes /api/search to Postgres full-text search. When off,
	// the corpus is searched in memory instead.
	ServerSearch server.RoxFlag
}

var (
	flags = &Flags{
		Offline:      server.NewRoxFlag(false),
		LogLevel:     server.NewRoxString("info", []string{"debug", "info", "warn", "error"}),
		ServerSearch: server.NewRoxFlag(true),
	}

	mu  sync.Mutex
	rox *server.Rox
)

// Init registers the flags and connects to Rollout. Without a key the flags
// keep their defaults and an error is returned so the caller can log it.
func Init(ctx context.Context, key string) error {
	mu.Lock()
	defer mu.Unlock()

	if rox != nil {
		return nil
	}
	if key == "" {
		return errors.New("featureflags: no rollout key, using defaults")
	}

	r := server.NewRox()
	r.Register("", flags)

	select {
	case err := <-r.Setup(key, server.NewRoxOptions(server.RoxOptionsBuilder{})):
		if err != nil {
			return fmt.Errorf("rollout setup: %w", err)
		}
		rox = r
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Values returns the flag container. It is usable before Init.
func Values() *Flags {
	return flags
}

// Snapshot reads every flag once, for the /_flags endpoint.
func Snapshot() map[string]any {
	return map[string]any{
		"offline":      flags.Offline.IsEnabled(nil),
		"logLevel":     flags.LogLevel.GetValue(nil),
		"serverSearch": flags.ServerSearch.IsEnabled(nil),
	}
}

// Shutdown disconnects from Rollout.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if rox != nil {
		rox.Shutdown()
		rox = nil
	}
}
