package workflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestShouldGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  bool
	}{
		{0, false},
		{0.3, false},
		{0.5, false},
		{math.Nextafter(0.5, 1), true},
		{0.51, true},
		{0.8, true},
		{1, true},
		{-1, false},
		{1.7, true},
		{math.NaN(), false},
		{math.Inf(1), true},
		{math.Inf(-1), false},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, ShouldGenerate(tc.score), "ShouldGenerate(%v)", tc.score)
	}
}

func TestShouldGenerate_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		score := rapid.Float64().Draw(t, "score")
		if got, want := ShouldGenerate(score), score > 0.5; got != want {
			t.Fatalf("ShouldGenerate(%v) = %v, want %v", score, got, want)
		}
	})
}

func TestFallbackNeverGenerates(t *testing.T) {
	t.Parallel()

	require.False(t, ShouldGenerate(FallbackScore))
}

func TestPresentAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"answered", State{Answer: "Paris.", RelevanceScore: 0.9}, "Paris."},
		{"boundary score hides answer", State{Answer: "leaked", RelevanceScore: 0.5}, NoRelevantAnswer},
		{"low score hides answer", State{Answer: "leaked", RelevanceScore: 0.2}, NoRelevantAnswer},
		{"nan hides answer", State{Answer: "leaked", RelevanceScore: math.NaN()}, NoRelevantAnswer},
		{"ended run", State{RelevanceScore: 0.1}, NoRelevantAnswer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, PresentAnswer(tc.state))
		})
	}
}
