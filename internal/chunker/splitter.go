// Package chunker splits document text into bounded, overlapping chunks.
//
// Each window is at most ChunkSize runes long and ends on the strongest
// boundary it contains: paragraph break, then line break, then sentence
// punctuation, then a word space, then any rune. The next window starts
// exactly ChunkOverlap runes before the previous one ended.
//
// The text is trimmed first, and any whitespace run long enough to fill a
// whole window is collapsed to its strongest break, so no window is blank
// and every pair of neighbouring chunks shares exactly ChunkOverlap runes.
package chunker

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"kbqa/internal/model"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// DefaultSeparators lists boundaries from strongest to weakest. The empty
// separator means "anywhere" and always terminates the search.
var DefaultSeparators = []string{
	"\n\n",
	"\n",
	". ", "! ", "? ",
	"。", "！", "？", "；",
	" ",
	"",
}

// Splitter is safe for concurrent use.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators [][]rune
	newID      func() string
}

type Option func(*Splitter)

func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

func WithChunkOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the boundary list. An empty separator is appended
// when missing so splitting always makes progress.
func WithSeparators(separators ...string) Option {
	return func(s *Splitter) {
		s.separators = toRunes(separators)
	}
}

// WithIDFunc overrides chunk ID generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Splitter) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: toRunes(DefaultSeparators),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

func (s *Splitter) ChunkSize() int    { return s.chunkSize }
func (s *Splitter) ChunkOverlap() int { return s.overlap }

// Split returns the chunk texts of text in order. Empty or whitespace-only
// input yields no chunks.
func (s *Splitter) Split(text string) []string {
	runes := s.normalize(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for {
		end := n
		if start+s.chunkSize < n {
			end = s.cut(runes, start)
		}
		if piece := runes[start:end]; !blank(piece) {
			chunks = append(chunks, string(piece))
		}
		if end >= n {
			break
		}
		start = end - s.overlap
	}
	return chunks
}

// SplitDocuments splits each document independently and carries its source
// metadata onto the chunks.
func (s *Splitter) SplitDocuments(docs []model.Document) []model.Chunk {
	var out []model.Chunk
	for _, doc := range docs {
		for i, text := range s.Split(doc.Content) {
			out = append(out, model.Chunk{
				ID:      s.newID(),
				Source:  doc.Source,
				Page:    doc.Page,
				Index:   i,
				Content: text,
			})
		}
	}
	return out
}

// minWindow is the shortest window cut accepts before the end of the text.
func (s *Splitter) minWindow() int {
	min := s.chunkSize / 2
	if floor := s.overlap + 1; floor > min {
		min = floor
	}
	if min > s.chunkSize {
		min = s.chunkSize
	}
	return min
}

// normalize trims text and shortens every whitespace run that could fill a
// window on its own.
func (s *Splitter) normalize(text string) []rune {
	runes := []rune(strings.TrimSpace(text))
	limit := s.minWindow() - 1
	if limit < 1 {
		limit = 1
	}

	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			out = append(out, runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		run := runes[i:j]
		if len(run) > limit {
			run = collapseRun(run, limit)
		}
		out = append(out, run...)
		i = j
	}
	return out
}

// collapseRun keeps the strongest break of a whitespace run.
func collapseRun(run []rune, limit int) []rune {
	text := string(run)
	switch {
	case limit >= 2 && strings.Contains(text, "\n\n"):
		return []rune("\n\n")
	case strings.ContainsRune(text, '\n'):
		return []rune("\n")
	default:
		return []rune(" ")
	}
}

// cut picks the end of the window starting at start. The window is
// [start, start+chunkSize); a boundary is accepted only if it keeps the
// window at least half full and past the overlap, so the next start moves
// forward.
func (s *Splitter) cut(runes []rune, start int) int {
	maxEnd := start + s.chunkSize
	minEnd := start + s.minWindow()

	for _, sep := range s.separators {
		if len(sep) == 0 {
			return maxEnd
		}
		if end := lastBoundary(runes, sep, start, minEnd, maxEnd); end > 0 {
			return end
		}
	}
	return maxEnd
}

// lastBoundary returns the largest end in [minEnd, maxEnd] such that sep
// ends at end and lies fully inside the window, or 0 when there is none.
func lastBoundary(runes, sep []rune, start, minEnd, maxEnd int) int {
	for end := maxEnd; end >= minEnd; end-- {
		begin := end - len(sep)
		if begin < start {
			break
		}
		if equalRunes(runes[begin:end], sep) {
			return end
		}
	}
	return 0
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func blank(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func toRunes(separators []string) [][]rune {
	out := make([][]rune, 0, len(separators)+1)
	hasAny := false
	for _, sep := range separators {
		if sep == "" {
			hasAny = true
		}
		out = append(out, []rune(sep))
	}
	if !hasAny {
		out = append(out, nil)
	}
	// Anything after the catch-all separator is unreachable.
	for i, sep := range out {
		if len(sep) == 0 {
			return out[:i+1]
		}
	}
	return out
}

// Preview shortens text for log lines.
func Preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
