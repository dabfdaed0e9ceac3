package chunker

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbqa/internal/model"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := New()
		assert.Equal(t, 800, s.ChunkSize())
		assert.Equal(t, 100, s.ChunkOverlap())
	})

	t.Run("custom", func(t *testing.T) {
		s := New(WithChunkSize(300), WithChunkOverlap(30))
		assert.Equal(t, 300, s.ChunkSize())
		assert.Equal(t, 30, s.ChunkOverlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		s := New(WithChunkSize(0), WithChunkOverlap(-5))
		assert.Equal(t, DefaultChunkSize, s.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, s.ChunkOverlap())
	})

	t.Run("overlap clamped below size", func(t *testing.T) {
		s := New(WithChunkSize(100), WithChunkOverlap(150))
		assert.Equal(t, 25, s.ChunkOverlap())
	})
}

func TestSplit_Empty(t *testing.T) {
	s := New()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n\t "))
}

func TestSplit_ShortText(t *testing.T) {
	s := New()
	chunks := s.Split("A short note.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short note.", chunks[0])
}

func TestSplit_TwoThousandCharacters(t *testing.T) {
	text := strings.Repeat("abcdefghij", 200)
	require.Equal(t, 2000, len(text))

	chunks := New().Split(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, text[0:800], chunks[0])
	assert.Equal(t, text[700:1500], chunks[1])
	assert.Equal(t, text[1400:2000], chunks[2])
	assertOverlaps(t, chunks, 100)
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 100) // 500 runes
	text := para + "\n\n" + para + "\n\n" + para

	chunks := New().Split(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first chunk should end on the paragraph break")
	assert.Equal(t, 502, utf8.RuneCountInString(chunks[0]))
	assertBounded(t, chunks, 800)
	assertOverlaps(t, chunks, 100)
}

func TestSplit_FallsBackToSentenceThenWord(t *testing.T) {
	sentence := strings.Repeat("x", 59) + ". " // 61 runes
	text := strings.Repeat(sentence, 40)

	chunks := New(WithChunkSize(200), WithChunkOverlap(20)).Split(text)

	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, ". "), "chunk %q should end after a sentence", c)
	}
	assertBounded(t, chunks, 200)
	assertOverlaps(t, chunks, 20)
}

func TestSplit_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("知识库问答助手。", 150) // 1200 runes
	chunks := New().Split(text)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
	assertBounded(t, chunks, 800)
	assertOverlaps(t, chunks, 100)
}

func TestSplit_Properties(t *testing.T) {
	inputs := map[string]string{
		"prose":      strings.Repeat("The index is reloaded from disk on every query. It never shrinks.\n", 60),
		"paragraphs": strings.Repeat(strings.Repeat("lorem ipsum ", 30)+"\n\n", 12),
		"no spaces":  strings.Repeat("0123456789", 333),
		"mixed":      strings.Repeat("Line one\nLine two! Line three? ", 90),
	}
	params := []struct{ size, overlap int }{{800, 100}, {300, 50}, {120, 0}, {64, 60}}

	for name, text := range inputs {
		for _, p := range params {
			t.Run(fmt.Sprintf("%s/%d-%d", name, p.size, p.overlap), func(t *testing.T) {
				s := New(WithChunkSize(p.size), WithChunkOverlap(p.overlap))
				chunks := s.Split(text)

				require.NotEmpty(t, chunks)
				assertBounded(t, chunks, p.size)
				assertOverlaps(t, chunks, s.ChunkOverlap())
				assert.Equal(t, chunks, s.Split(text), "splitting must be deterministic")
				last := strings.TrimRightFunc(chunks[len(chunks)-1], unicode.IsSpace)
				assert.True(t, strings.HasSuffix(strings.TrimRightFunc(text, unicode.IsSpace), last), "last chunk must reach the end")
			})
		}
	}
}

func TestSplit_WhitespaceRunsKeepOverlap(t *testing.T) {
	t.Run("long run inside text", func(t *testing.T) {
		text := "first words" + strings.Repeat(" ", 40) + "\n\n" + strings.Repeat("\t", 30) + "second words"
		chunks := New(WithChunkSize(12), WithChunkOverlap(4)).Split(text)

		require.NotEmpty(t, chunks)
		assertBounded(t, chunks, 12)
		assertOverlaps(t, chunks, 4)
		assert.Contains(t, strings.Join(chunks, ""), "\n\n", "paragraph break survives collapsing")
	})

	t.Run("leading and trailing whitespace", func(t *testing.T) {
		chunks := New().Split("\n\n   hello   \n")
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("short runs untouched", func(t *testing.T) {
		text := "a  b\n\nc"
		assert.Equal(t, []string{text}, New().Split(text))
	})

	t.Run("random whitespace heavy input", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		alphabet := []string{"a", "rd", ".", " ", "  ", "\n", "\n\n", "\t", "。", "   \n"}
		for round := 0; round < 500; round++ {
			var b strings.Builder
			for i := 0; i < 20+rng.Intn(200); i++ {
				b.WriteString(alphabet[rng.Intn(len(alphabet))])
			}
			size := 2 + rng.Intn(30)
			overlap := rng.Intn(size)
			s := New(WithChunkSize(size), WithChunkOverlap(overlap))
			chunks := s.Split(b.String())

			assertBounded(t, chunks, size)
			assertOverlaps(t, chunks, s.ChunkOverlap())
			for _, c := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(c))
			}
		}
	})
}

func TestSplitDocuments(t *testing.T) {
	ids := 0
	s := New(WithChunkSize(100), WithChunkOverlap(10), WithIDFunc(func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}))

	docs := []model.Document{
		{Source: "a.pdf", Page: 1, Content: strings.Repeat("a", 250)},
		{Source: "a.pdf", Page: 2, Content: ""},
		{Source: "b.txt", Content: "tiny"},
	}
	chunks := s.SplitDocuments(docs)

	require.Len(t, chunks, 4)
	for i, c := range chunks[:3] {
		assert.Equal(t, "a.pdf", c.Source)
		assert.Equal(t, 1, c.Page)
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, model.Chunk{ID: "id-4", Source: "b.txt", Index: 0, Content: "tiny"}, chunks[3])
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", Preview("a\n\tb", 10))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
}

func assertBounded(t *testing.T, chunks []string, size int) {
	t.Helper()
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk %d too long", i)
	}
}

func assertOverlaps(t *testing.T, chunks []string, overlap int) {
	t.Helper()
	for i := 1; i < len(chunks); i++ {
		prev, next := []rune(chunks[i-1]), []rune(chunks[i])
		require.GreaterOrEqual(t, len(prev), overlap)
		require.GreaterOrEqual(t, len(next), overlap)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(next[:overlap]), "chunks %d and %d", i-1, i)
	}
}
