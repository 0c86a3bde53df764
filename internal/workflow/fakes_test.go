package workflow

import (
	"context"
	"strings"
	"sync"
)

// fakeSearcher returns canned passages and records each query.
type fakeSearcher struct {
	mu sync.Mutex
	// passages is returned from every Search call.
	passages []string
	// err is returned instead of passages when non-nil.
	err error
	// queries records (query, k) for each call.
	queries []searchCall
}

type searchCall struct {
	query string
	k     int
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, searchCall{query: query, k: k})
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

// fakeCompleter answers scoring prompts with scoreReply and answer prompts
// with answerReply, recording the kind of every call in order.
type fakeCompleter struct {
	mu sync.Mutex
	// scoreReply is returned for prompts rendered from the scoring template.
	scoreReply string
	// scoreErr is returned for scoring prompts when non-nil.
	scoreErr error
	// answerReply is returned for prompts rendered from the answer template.
	answerReply string
	// answerErr is returned for answer prompts when non-nil.
	answerErr error
	// calls lists "score" or "generate" for each Complete call, in order.
	calls []string
	// prompts lists every prompt received, in order.
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if strings.HasPrefix(prompt, "You are a relevance checker.") {
		f.calls = append(f.calls, NodeScore)
		return f.scoreReply, f.scoreErr
	}
	f.calls = append(f.calls, NodeGenerate)
	return f.answerReply, f.answerErr
}

func (f *fakeCompleter) callKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
