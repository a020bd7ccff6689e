package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

// XLSX streams one column of a worksheet as text records. The first row
// must be a header naming the configured field. Remote workbooks are
// downloaded to a scratch file first; the xlsx format is not
// stream-parseable from a network reader.
type XLSX struct {
	spec    config.SourceConfig
	fetcher fetcher.Fetcher

	started bool
	rowCh   <-chan []string
	errCh   <-chan error
	col     int
	scratch string // scratch dir for downloaded workbooks, removed at EOF
}

// NewXLSX creates an XLSX source for the given spec.
func NewXLSX(spec config.SourceConfig, f fetcher.Fetcher) *XLSX {
	return &XLSX{spec: spec, fetcher: f, col: -1}
}

// Name returns the configured source name.
func (x *XLSX) Name() string { return x.spec.Name }

// Field returns the record field holding the text payload.
func (x *XLSX) Field() string { return x.spec.Field }

// Fraction returns this source's share of the byte budget.
func (x *XLSX) Fraction() float64 { return x.spec.Fraction }

func (x *XLSX) open(ctx context.Context) error {
	path := x.spec.Location
	if strings.Contains(path, "://") {
		dir, err := os.MkdirTemp("", "corpus-src-*")
		if err != nil {
			return eris.Wrap(err, "xlsx: create scratch dir")
		}
		x.scratch = dir
		path = filepath.Join(dir, "workbook.xlsx")
		if _, err := x.fetcher.DownloadToFile(ctx, x.spec.Location, path); err != nil {
			x.cleanup()
			return eris.Wrapf(err, "xlsx: download %s", x.spec.Location)
		}
	}

	headerCh := make(chan []string, 1)
	x.rowCh, x.errCh = fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{
		SheetName: x.spec.Sheet,
		SkipRows:  1,
		HeaderCh:  headerCh,
	})

	select {
	case header := <-headerCh:
		for i, name := range header {
			if name == x.spec.Field {
				x.col = i
				break
			}
		}
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "xlsx: context cancelled reading header")
	case err := <-x.errCh:
		if err != nil {
			return eris.Wrapf(err, "xlsx: read header of %s", x.spec.Location)
		}
	}

	if x.col < 0 {
		return eris.Errorf("xlsx: column %q not found in %s", x.spec.Field, x.spec.Location)
	}

	return nil
}

// Next returns the next row's configured column as a record. Rows too
// short to carry the column are skipped silently.
func (x *XLSX) Next(ctx context.Context) (Record, error) {
	if !x.started {
		if err := x.open(ctx); err != nil {
			return nil, err
		}
		x.started = true
	}

	for {
		row, ok := <-x.rowCh
		if !ok {
			for err := range x.errCh {
				if err != nil {
					return nil, eris.Wrapf(err, "xlsx: read %s", x.spec.Location)
				}
			}
			x.cleanup()
			return nil, io.EOF
		}
		if x.col >= len(row) {
			continue
		}
		return Record{x.spec.Field: row[x.col]}, nil
	}
}

// cleanup removes the scratch dir holding a downloaded workbook, if any.
func (x *XLSX) cleanup() {
	if x.scratch != "" {
		_ = os.RemoveAll(x.scratch)
		x.scratch = ""
	}
}
