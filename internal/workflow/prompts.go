package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// passageSeparator joins retrieved passages inside prompts.
const passageSeparator = "\n\n"

const scoringPrompt = `You are a relevance checker. Determine if the context is relevant to answer the question.

Question: {question}
Context: {context}

Rate relevance from 0 to 1. Reply with only the number.
Relevance score:`

const answerPrompt = `You are a helpful assistant. Answer the question based on the provided context.

Context: {context}

Question: {question}

Provide a detailed and accurate answer based only on the context provided. If the context doesn't contain enough information, say so.

Answer:`

var (
	scoringTemplate = prompt.FromMessages(schema.FString, schema.UserMessage(scoringPrompt))
	answerTemplate  = prompt.FromMessages(schema.FString, schema.UserMessage(answerPrompt))
)

// RenderScoringPrompt builds the relevance-judgment prompt for question and
// passages. Output depends only on its arguments.
func RenderScoringPrompt(question string, passages []string) (string, error) {
	return render(scoringTemplate, question, passages)
}

// RenderAnswerPrompt builds the grounded-answer prompt for question and
// passages. Output depends only on its arguments.
func RenderAnswerPrompt(question string, passages []string) (string, error) {
	return render(answerTemplate, question, passages)
}

func render(tmpl prompt.ChatTemplate, question string, passages []string) (string, error) {
	msgs, err := tmpl.Format(context.Background(), map[string]any{
		"question": question,
		"context":  strings.Join(passages, passageSeparator),
	})
	if err != nil {
		return "", fmt.Errorf("workflow: render prompt: %w", err)
	}
	if len(msgs) != 1 {
		return "", fmt.Errorf("workflow: render prompt: expected 1 message, got %d", len(msgs))
	}
	return msgs[0].Content, nil
}
