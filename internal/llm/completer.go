// Package llm adapts an eino chat model to the single-prompt completion call
// used by the question-answering workflow.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sony/gobreaker"
)

// Config tunes a ChatCompleter.
type Config struct {
	// Timeout bounds each Complete call. Zero leaves the caller's deadline in charge.
	Timeout time.Duration

	// BreakerFailures is the number of consecutive backend failures that open
	// the circuit. Zero disables the breaker.
	BreakerFailures uint32

	// BreakerCooldown is how long the circuit stays open before a trial call.
	BreakerCooldown time.Duration
}

// ChatCompleter sends one user message per call and returns the reply text
// unmodified. It is safe for concurrent use.
type ChatCompleter struct {
	model   model.BaseChatModel
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewChatCompleter wraps m. log receives circuit state transitions.
func NewChatCompleter(m model.BaseChatModel, cfg Config, log *slog.Logger) (*ChatCompleter, error) {
	if m == nil {
		return nil, fmt.Errorf("llm: chat model must not be nil")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("llm: timeout must not be negative")
	}

	c := &ChatCompleter{model: m, timeout: cfg.Timeout}
	if cfg.BreakerFailures > 0 {
		cooldown := cfg.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		failures := cfg.BreakerFailures
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "llm",
			Timeout: cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// A caller giving up is not a backend fault.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("llm: circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
	}
	return c, nil
}

// Complete sends prompt as a single user message and returns the model's
// reply content verbatim.
func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.breaker == nil {
		return c.generate(ctx, prompt)
	}
	out, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("llm: backend unavailable: %w", err)
		}
		return "", err
	}
	return out.(string), nil
}

func (c *ChatCompleter) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("llm: generate returned no message")
	}
	return msg.Content, nil
}
