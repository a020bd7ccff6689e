package corpus

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_WriteAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")

	sink, err := NewSink(path)
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	n, err := io.WriteString(sink, "first\n")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = io.WriteString(sink, "second\n")
	require.NoError(t, err)

	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestSink_TruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	sink, err := NewSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSink_BadPath(t *testing.T) {
	_, err := NewSink(filepath.Join(t.TempDir(), "no-such-dir", "corpus.txt"))
	assert.Error(t, err)
}

func TestCheckPath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckPath(filepath.Join(dir, "corpus.txt")))
	assert.Error(t, CheckPath(filepath.Join(dir, "no-such-dir", "corpus.txt")))

	// A file where the parent directory should be is just as bad.
	file := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, CheckPath(filepath.Join(file, "corpus.txt")))
}
