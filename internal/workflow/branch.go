package workflow

import "math"

// RelevanceThreshold is the score a run must strictly exceed to generate an answer.
const RelevanceThreshold = 0.5

// FallbackScore is assigned when the relevance judgment cannot be obtained or
// parsed. It equals the threshold, so a fallback never leads to generation.
const FallbackScore = 0.5

// NoRelevantAnswer is shown to users whenever a run did not produce a
// trustworthy answer.
const NoRelevantAnswer = "I couldn't find relevant information to answer your question."

// ShouldGenerate reports whether a relevance score routes to answer
// generation. The comparison is strict: exactly 0.5 does not generate, and
// NaN never does.
func ShouldGenerate(score float64) bool {
	return score > RelevanceThreshold
}

// PresentAnswer returns the text a user-facing surface should display for a
// finished run. It repeats the threshold check on the score itself, so an
// answer attached to a low or NaN score is never shown.
func PresentAnswer(s State) string {
	if !ShouldGenerate(s.RelevanceScore) || math.IsNaN(s.RelevanceScore) {
		return NoRelevantAnswer
	}
	return s.Answer
}
