package corpus

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Sink is the output corpus file: newline-delimited UTF-8 text, opened
// once per run, truncating any previous corpus of the same name. Runs
// are never additive.
type Sink struct {
	path string
	file *os.File
	w    *bufio.Writer
}

// CheckPath verifies the corpus path's parent directory exists without
// touching the file itself, so a dry run fails on a bad output path the
// same way a real run would.
func CheckPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return eris.Wrapf(err, "sink: output directory %s", dir)
	}
	if !info.IsDir() {
		return eris.Errorf("sink: %s is not a directory", dir)
	}
	return nil
}

// NewSink creates (or truncates) the corpus file at path.
func NewSink(path string) (*Sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: create %s", path)
	}
	return &Sink{
		path: path,
		file: file,
		w:    bufio.NewWriterSize(file, 1<<20),
	}, nil
}

// Write appends to the corpus.
func (s *Sink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// Path returns the corpus file path.
func (s *Sink) Path() string {
	return s.path
}

// Close flushes buffered writes and closes the file.
func (s *Sink) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return eris.Wrapf(flushErr, "sink: flush %s", s.path)
	}
	if closeErr != nil {
		return eris.Wrapf(closeErr, "sink: close %s", s.path)
	}
	return nil
}
