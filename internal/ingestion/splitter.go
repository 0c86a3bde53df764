package ingestion

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into chunks of at most Size characters, preferring to
// break on the earliest separator in Separators that occurs in the text and
// recursing into pieces that are still too long. Consecutive chunks share up
// to Overlap characters of trailing context.
//
// Separators are kept: each one stays at the start of the piece that follows
// it and counts toward that piece's length. Lengths are counted in runes.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a Splitter with DefaultSeparators. Size defaults to
// 1000; an Overlap outside [0, Size) is reset to a tenth of Size.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// Split returns the chunks of text. Whitespace-only input yields nil.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out, short []string
	for _, piece := range splitOn(text, sep) {
		if runeLen(piece) < s.Size {
			short = append(short, piece)
			continue
		}
		if len(short) > 0 {
			out = append(out, s.merge(short)...)
			short = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(short) > 0 {
		out = append(out, s.merge(short)...)
	}
	return out
}

// merge packs pieces into chunks no longer than Size, carrying up to Overlap
// characters of the previous chunk's tail into the next one. Pieces already
// hold their separators, so they are concatenated as is.
func (s *Splitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)
	flush := func() {
		if c := strings.TrimSpace(strings.Join(current, "")); c != "" {
			chunks = append(chunks, c)
		}
	}

	for _, p := range pieces {
		l := runeLen(p)
		if total+l > s.Size && len(current) > 0 {
			flush()
			for total > s.Overlap || (total+l > s.Size && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
	}
	flush()
	return chunks
}

// splitOn splits text on sep, or into single runes when sep is empty, and
// drops empty pieces. Every piece after the first keeps sep as its prefix.
func splitOn(text, sep string) []string {
	var raw []string
	if sep == "" {
		raw = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		raw = strings.Split(text, sep)
		for i := 1; i < len(raw); i++ {
			raw[i] = sep + raw[i]
		}
	}

	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
