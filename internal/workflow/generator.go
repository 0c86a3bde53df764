package workflow

import (
	"context"
	"fmt"
)

// Generator produces the final answer from the retrieved passages.
type Generator struct {
	completer Completer
}

// NewGenerator returns a Generator backed by c.
func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

// Generate renders the answer prompt and returns the model's reply unmodified.
// Completion errors are returned to the caller.
func (g *Generator) Generate(ctx context.Context, question string, passages []string) (string, error) {
	p, err := RenderAnswerPrompt(question, passages)
	if err != nil {
		return "", err
	}
	answer, err := g.completer.Complete(ctx, p)
	if err != nil {
		return "", fmt.Errorf("workflow: generate: %w", err)
	}
	return answer, nil
}
