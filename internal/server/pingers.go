package server

import (
	"context"
	"fmt"
)

// Pinger is implemented by any dependency that can report its own
// reachability. provider.HealthChecker satisfies it directly; vector stores
// are adapted with [NewPinger].
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping returns nil when the dependency is reachable.
	Ping(ctx context.Context) error

	// Name returns a short label used in readiness responses
	// (e.g. "ollama", "qdrant").
	Name() string
}

// funcPinger adapts a named probe function to Pinger.
type funcPinger struct {
	name string
	ping func(context.Context) error
}

// NewPinger returns a Pinger named name that calls ping.
func NewPinger(name string, ping func(context.Context) error) Pinger {
	return &funcPinger{name: name, ping: ping}
}

func (p *funcPinger) Name() string { return p.name }

func (p *funcPinger) Ping(ctx context.Context) error {
	if err := p.ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
