package ingestion

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestSplitter_Split(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		overlap int
		in      string
		want    []string
	}{
		{
			name: "short text is one chunk",
			size: 100, overlap: 0,
			in:   "p1\n\np2",
			want: []string{"p1\n\np2"},
		},
		{
			name: "words packed without overlap",
			size: 10, overlap: 0,
			in:   "aaaa bbbb cccc",
			want: []string{"aaaa bbbb", "cccc"},
		},
		{
			name: "overlap carries the previous word",
			size: 10, overlap: 5,
			in:   "aaaa bbbb cccc",
			want: []string{"aaaa bbbb", "bbbb cccc"},
		},
		{
			name: "kept separator counts toward overlap",
			size: 10, overlap: 4,
			in:   "aaaa bbbb cccc",
			want: []string{"aaaa bbbb", "cccc"},
		},
		{
			name: "line breaks kept inside a chunk",
			size: 12, overlap: 0,
			in:   "ab\ncd\nef gh ij kl",
			want: []string{"ab\ncd", "ef gh ij kl"},
		},
		{
			name: "unbroken run falls back to characters",
			size: 3, overlap: 0,
			in:   "abcdefg",
			want: []string{"abc", "def", "g"},
		},
		{
			name: "paragraphs preferred over lines",
			size: 12, overlap: 0,
			in:   "first para\n\nsecond one",
			want: []string{"first para", "second one"},
		},
		{
			name: "whitespace only",
			size: 10, overlap: 0,
			in:   " \n\n \t",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &Splitter{Size: tt.size, Overlap: tt.overlap, Separators: DefaultSeparators}
			if got := s.Split(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewSplitter_Defaults(t *testing.T) {
	t.Parallel()

	s := NewSplitter(0, -1)
	if s.Size != 1000 || s.Overlap != 100 {
		t.Errorf("NewSplitter(0, -1) = %d/%d, want 1000/100", s.Size, s.Overlap)
	}
	s = NewSplitter(100, 150)
	if s.Overlap != 10 {
		t.Errorf("overlap >= size: got %d, want 10", s.Overlap)
	}
}

func TestSplitter_MultibyteLengths(t *testing.T) {
	t.Parallel()

	s := NewSplitter(4, 0)
	got := s.Split("ééééé")
	want := []string{"éééé", "é"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %q, want %q", got, want)
	}
}

func TestSplitter_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(2, 60).Draw(t, "size")
		overlap := rapid.IntRange(0, size-1).Draw(t, "overlap")
		text := rapid.StringOf(rapid.RuneFrom([]rune("abcxyz \n"))).Draw(t, "text")

		chunks := (&Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}).Split(text)

		for _, c := range chunks {
			if n := utf8.RuneCountInString(c); n > size {
				t.Fatalf("chunk %q has %d runes, limit %d", c, n, size)
			}
			if strings.TrimSpace(c) == "" {
				t.Fatalf("empty chunk in %q", chunks)
			}
		}

		joined := strings.Join(chunks, "\x00")
		for _, word := range strings.Fields(text) {
			if utf8.RuneCountInString(word) < size && !strings.Contains(joined, word) {
				t.Fatalf("word %q lost; chunks %q", word, chunks)
			}
		}
	})
}
