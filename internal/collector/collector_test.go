package collector

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/corpus-cli/internal/source"
)

// memSource yields a fixed slice of records and tracks how many were pulled.
type memSource struct {
	name   string
	field  string
	recs   []source.Record
	pulled int
}

func (m *memSource) Name() string      { return m.name }
func (m *memSource) Field() string     { return m.field }
func (m *memSource) Fraction() float64 { return 1.0 }

func (m *memSource) Next(ctx context.Context) (source.Record, error) {
	if m.pulled >= len(m.recs) {
		return nil, io.EOF
	}
	rec := m.recs[m.pulled]
	m.pulled++
	return rec, nil
}

func textSource(name string, texts ...string) *memSource {
	recs := make([]source.Record, len(texts))
	for i, t := range texts {
		recs[i] = source.Record{"text": t}
	}
	return &memSource{name: name, field: "text", recs: recs}
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("x", n-len(s))
}

var wideOpts = Options{MinChars: 1, MaxChars: 1 << 20}

func TestCollect_DedupWithinRun(t *testing.T) {
	src := textSource("a",
		pad("first snippet", 60),
		pad("first snippet", 60), // byte-identical
		pad("second snippet", 60),
	)
	var sb strings.Builder
	seen := NewSeenSet()

	written, kept, err := Collect(context.Background(), src, &sb, 1<<20, wideOpts, seen)
	require.NoError(t, err)
	assert.Equal(t, int64(2), kept)
	assert.Equal(t, int64(len(pad("first snippet", 60))+1+len(pad("second snippet", 60))+1), written)
	assert.Equal(t, 2, seen.Len())
}

func TestCollect_CaseInsensitiveDedup(t *testing.T) {
	lower := pad("hello world snippet", 60)
	src := textSource("a", lower, strings.ToUpper(lower))
	var sb strings.Builder

	_, kept, err := Collect(context.Background(), src, &sb, 1<<20, wideOpts, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept)
	// The original-case first occurrence is what gets written.
	assert.Equal(t, lower+"\n", sb.String())
}

func TestCollect_LengthWindowEdges(t *testing.T) {
	opts := Options{MinChars: 50, MaxChars: 50000}
	tests := []struct {
		name   string
		length int
		kept   int64
	}{
		{"one below min", 49, 0},
		{"at min", 50, 1},
		{"at max", 50000, 1},
		{"one above max", 50001, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := textSource("a", strings.Repeat("a", tt.length))
			var sb strings.Builder
			_, kept, err := Collect(context.Background(), src, &sb, 1<<30, opts, NewSeenSet())
			require.NoError(t, err)
			assert.Equal(t, tt.kept, kept)
		})
	}
}

func TestCollect_LengthIsRunes(t *testing.T) {
	// 50 runes but 100 UTF-8 bytes: passes a 50-char minimum.
	text := strings.Repeat("é", 50)
	src := textSource("a", text)
	var sb strings.Builder

	written, kept, err := Collect(context.Background(), src, &sb, 1<<20, Options{MinChars: 50, MaxChars: 50000}, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept)
	assert.Equal(t, int64(100+1), written)
}

func TestCollect_QuotaRespected(t *testing.T) {
	// Each record contributes 61 bytes (60 + newline). Quota of 150 is
	// crossed during the third write; the fourth must stay unconsumed.
	src := textSource("a",
		pad("one", 60), pad("two", 60), pad("three", 60), pad("four", 60),
	)
	var sb strings.Builder

	written, kept, err := Collect(context.Background(), src, &sb, 150, wideOpts, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(3), kept)
	assert.Equal(t, int64(183), written)
	assert.GreaterOrEqual(t, written, int64(150))
	assert.Equal(t, 3, src.pulled, "no records pulled past the quota")
}

func TestCollect_ZeroQuota(t *testing.T) {
	src := textSource("a", pad("anything", 60))
	var sb strings.Builder

	written, kept, err := Collect(context.Background(), src, &sb, 0, wideOpts, NewSeenSet())
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Zero(t, kept)
	assert.Zero(t, src.pulled)
}

func TestCollect_CrossSourceDedup(t *testing.T) {
	shared := pad("shared across sources", 60)
	first := textSource("a", shared)
	second := textSource("b", strings.ToUpper(shared), pad("fresh text", 60))

	var sb strings.Builder
	seen := NewSeenSet()

	_, kept1, err := Collect(context.Background(), first, &sb, 1<<20, wideOpts, seen)
	require.NoError(t, err)
	_, kept2, err := Collect(context.Background(), second, &sb, 1<<20, wideOpts, seen)
	require.NoError(t, err)

	assert.Equal(t, int64(1), kept1)
	assert.Equal(t, int64(1), kept2, "repeat from the first source must be skipped")
}

func TestCollect_OrderPreserved(t *testing.T) {
	texts := []string{pad("alpha", 60), pad("bravo", 60), pad("charlie", 60)}
	src := textSource("a", texts...)
	var sb strings.Builder

	_, _, err := Collect(context.Background(), src, &sb, 1<<20, wideOpts, NewSeenSet())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	assert.Equal(t, texts, lines)
}

func TestCollect_SkipsWhitespaceOnlyAndMissingField(t *testing.T) {
	src := &memSource{
		name:  "a",
		field: "text",
		recs: []source.Record{
			{"text": "   \n  "},          // empty after stripping
			{"other": pad("orphan", 60)}, // field absent
			{"text": 42},                 // field not a string
			{"text": pad("valid", 60)},
		},
	}
	var sb strings.Builder

	_, kept, err := Collect(context.Background(), src, &sb, 1<<20, wideOpts, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept)
}

func TestCollect_EndToEndScenario(t *testing.T) {
	src := textSource("a",
		"hello world padded to fifty chars exactly!!",
		"HELLO WORLD PADDED TO FIFTY CHARS EXACTLY!!",
		"short",
	)
	var sb strings.Builder

	_, kept, err := Collect(context.Background(), src, &sb, 1<<20, Options{MinChars: 10, MaxChars: 50000}, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept)
	assert.Equal(t, "hello world padded to fifty chars exactly!!\n", sb.String())
}

func TestCollect_CRLFNormalized(t *testing.T) {
	src := textSource("a", "line one\r\nline two"+strings.Repeat("x", 50))
	var sb strings.Builder

	_, kept, err := Collect(context.Background(), src, &sb, 1<<20, wideOpts, NewSeenSet())
	require.NoError(t, err)
	assert.Equal(t, int64(1), kept)
	assert.NotContains(t, sb.String(), "\r\n")
	assert.Contains(t, sb.String(), "line one\nline two")
}

func TestCollect_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := textSource("a", pad("anything", 60))
	_, _, err := Collect(ctx, src, io.Discard, 1<<20, wideOpts, NewSeenSet())
	assert.Error(t, err)
}

type failingSource struct{ memSource }

func (f *failingSource) Next(ctx context.Context) (source.Record, error) {
	return nil, io.ErrUnexpectedEOF
}

func TestCollect_SourceErrorIsFatal(t *testing.T) {
	src := &failingSource{memSource{name: "broken", field: "text"}}
	_, _, err := Collect(context.Background(), src, io.Discard, 1<<20, wideOpts, NewSeenSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestCollect_WriteErrorIsFatal(t *testing.T) {
	src := textSource("a", pad("anything", 60))
	_, _, err := Collect(context.Background(), src, failingWriter{}, 1<<20, wideOpts, NewSeenSet())
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb", Normalize("  a\r\nb \n"))
	assert.Equal(t, "", Normalize("   \n  "))
}

func TestFingerprintOf(t *testing.T) {
	assert.Equal(t, FingerprintOf("Hello"), FingerprintOf("hello"))
	// NFC equivalence: precomposed vs combining form of é.
	assert.Equal(t, FingerprintOf("café"), FingerprintOf("café"))
	assert.NotEqual(t, FingerprintOf("hello"), FingerprintOf("hello "))
}
