package workflow

import "slices"

// State is the record carried through one workflow run. It is a value type:
// every node receives a State and returns a new one that differs only in the
// fields that node owns.
type State struct {
	// Question is the user's natural-language question. Never modified.
	Question string

	// Context holds the retrieved passages in rank order. Set once by the
	// retrieve node; empty (not nil) when nothing matched.
	Context []string

	// Answer is the generated answer. Empty unless the run took the generate branch.
	Answer string

	// RelevanceScore is the relevance judgment set by the score node. Expected
	// in [0, 1] but never clamped.
	RelevanceScore float64
}

// NewState returns the initial state for question.
func NewState(question string) State {
	return State{Question: question}
}

// withContext returns a copy of s holding its own copy of passages.
func (s State) withContext(passages []string) State {
	if passages == nil {
		s.Context = []string{}
	} else {
		s.Context = slices.Clone(passages)
	}
	return s
}

func (s State) withScore(score float64) State {
	s.RelevanceScore = score
	return s
}

func (s State) withAnswer(answer string) State {
	s.Answer = answer
	return s
}

// Outcome labels how a run terminated.
type Outcome string

const (
	// Answered means the score cleared the threshold and an answer was generated.
	Answered Outcome = "answered"
	// Ended means the run stopped after scoring without generating.
	Ended Outcome = "ended"
)

// Result is the terminal state of a successful run together with its outcome.
type Result struct {
	State
	Outcome Outcome
}
