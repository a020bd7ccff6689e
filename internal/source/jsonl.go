package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

// maxLineBytes bounds a single JSONL line. Records above the character
// ceiling get filtered downstream anyway, so 16 MiB is generous.
const maxLineBytes = 16 << 20

// JSONL streams records from a newline-delimited JSON file. The
// location may be a local path, an http(s) or ftp URL, or a .zip
// containing a single dump file. Locations ending in .json are treated
// as one JSON array instead of line-delimited records.
type JSONL struct {
	spec    config.SourceConfig
	fetcher fetcher.Fetcher

	started bool
	body    io.ReadCloser
	scanner *bufio.Scanner
	scratch string // scratch dir for unpacked dumps, removed at EOF

	// array mode
	arrayCh <-chan Record
	arrayEr <-chan error
}

// NewJSONL creates a JSONL source for the given spec.
func NewJSONL(spec config.SourceConfig, f fetcher.Fetcher) *JSONL {
	return &JSONL{spec: spec, fetcher: f}
}

// Name returns the configured source name.
func (j *JSONL) Name() string { return j.spec.Name }

// Field returns the record field holding the text payload.
func (j *JSONL) Field() string { return j.spec.Field }

// Fraction returns this source's share of the byte budget.
func (j *JSONL) Fraction() float64 { return j.spec.Fraction }

func (j *JSONL) open(ctx context.Context) error {
	location := j.spec.Location

	if strings.HasSuffix(location, ".zip") {
		extracted, scratch, err := fetchAndUnzip(ctx, j.fetcher, location)
		if err != nil {
			return eris.Wrapf(err, "jsonl: unpack %s", location)
		}
		j.scratch = scratch
		location = extracted
	}

	body, err := fetcher.OpenLocation(ctx, j.fetcher, location)
	if err != nil {
		j.cleanup()
		return eris.Wrapf(err, "jsonl: open %s", j.spec.Location)
	}
	j.body = body

	if strings.HasSuffix(location, ".json") {
		j.arrayCh, j.arrayEr = fetcher.DecodeJSONArray[Record](ctx, body)
		return nil
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	j.scanner = scanner
	return nil
}

// Next returns the next record. Blank and malformed lines are skipped
// silently; read failures are fatal.
func (j *JSONL) Next(ctx context.Context) (Record, error) {
	if !j.started {
		if err := j.open(ctx); err != nil {
			return nil, err
		}
		j.started = true
	}

	if j.arrayCh != nil {
		return j.nextFromArray()
	}

	for j.scanner.Scan() {
		line := strings.TrimSpace(j.scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		return rec, nil
	}

	if err := j.scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "jsonl: scan %s", j.spec.Location)
	}

	_ = j.body.Close()
	j.cleanup()
	return nil, io.EOF
}

// cleanup removes the scratch dir holding an unpacked dump, if any.
func (j *JSONL) cleanup() {
	if j.scratch != "" {
		_ = os.RemoveAll(j.scratch)
		j.scratch = ""
	}
}

func (j *JSONL) nextFromArray() (Record, error) {
	rec, ok := <-j.arrayCh
	if ok {
		return rec, nil
	}
	for err := range j.arrayEr {
		if err != nil {
			return nil, eris.Wrapf(err, "jsonl: decode %s", j.spec.Location)
		}
	}
	_ = j.body.Close()
	j.cleanup()
	return nil, io.EOF
}

// fetchAndUnzip downloads (or copies) a .zip dump into a scratch
// directory and extracts its single file. Returns the extracted path
// and the scratch dir, which the caller must remove when done; on
// error the scratch dir is already gone.
func fetchAndUnzip(ctx context.Context, f fetcher.Fetcher, location string) (string, string, error) {
	dir, err := os.MkdirTemp("", "corpus-src-*")
	if err != nil {
		return "", "", eris.Wrap(err, "create scratch dir")
	}

	extracted, err := fetchAndUnzipInto(ctx, f, location, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", "", err
	}
	return extracted, dir, nil
}

func fetchAndUnzipInto(ctx context.Context, f fetcher.Fetcher, location, dir string) (string, error) {
	zipPath := location
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") || strings.HasPrefix(location, "ftp://") {
		zipPath = filepath.Join(dir, "dump.zip")
		body, err := fetcher.OpenLocation(ctx, f, location)
		if err != nil {
			return "", err
		}
		defer body.Close() //nolint:errcheck

		out, err := os.Create(zipPath)
		if err != nil {
			return "", eris.Wrap(err, "create scratch file")
		}
		if _, err := io.Copy(out, body); err != nil {
			out.Close() //nolint:errcheck
			return "", eris.Wrap(err, "download dump")
		}
		if err := out.Close(); err != nil {
			return "", eris.Wrap(err, "close scratch file")
		}
	}

	extracted, err := fetcher.ExtractZIPSingle(zipPath, dir)
	if err != nil {
		return "", err
	}

	// The dump is unpacked; drop the downloaded archive to halve the
	// scratch footprint while the pass runs.
	if zipPath != location {
		_ = os.Remove(zipPath)
	}
	return extracted, nil
}
