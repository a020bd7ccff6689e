package source

import (
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

// CSV streams one column of a CSV file as text records. The first row
// must be a header naming the configured field.
type CSV struct {
	spec    config.SourceConfig
	fetcher fetcher.Fetcher

	started bool
	body    io.ReadCloser
	rowCh   <-chan []string
	errCh   <-chan error
	col     int
}

// NewCSV creates a CSV source for the given spec.
func NewCSV(spec config.SourceConfig, f fetcher.Fetcher) *CSV {
	return &CSV{spec: spec, fetcher: f, col: -1}
}

// Name returns the configured source name.
func (c *CSV) Name() string { return c.spec.Name }

// Field returns the record field holding the text payload.
func (c *CSV) Field() string { return c.spec.Field }

// Fraction returns this source's share of the byte budget.
func (c *CSV) Fraction() float64 { return c.spec.Fraction }

func (c *CSV) open(ctx context.Context) error {
	body, err := fetcher.OpenLocation(ctx, c.fetcher, c.spec.Location)
	if err != nil {
		return eris.Wrapf(err, "csv: open %s", c.spec.Location)
	}
	c.body = body

	headerCh := make(chan []string, 1)
	c.rowCh, c.errCh = fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})

	select {
	case header := <-headerCh:
		for i, name := range header {
			if name == c.spec.Field {
				c.col = i
				break
			}
		}
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "csv: context cancelled reading header")
	case err := <-c.errCh:
		if err != nil {
			return eris.Wrapf(err, "csv: read header of %s", c.spec.Location)
		}
	}

	if c.col < 0 {
		return eris.Errorf("csv: column %q not found in %s", c.spec.Field, c.spec.Location)
	}

	return nil
}

// Next returns the next row's configured column as a record. Rows too
// short to carry the column are skipped silently.
func (c *CSV) Next(ctx context.Context) (Record, error) {
	if !c.started {
		if err := c.open(ctx); err != nil {
			return nil, err
		}
		c.started = true
	}

	for {
		row, ok := <-c.rowCh
		if !ok {
			for err := range c.errCh {
				if err != nil {
					return nil, eris.Wrapf(err, "csv: read %s", c.spec.Location)
				}
			}
			_ = c.body.Close()
			return nil, io.EOF
		}
		if c.col >= len(row) {
			continue
		}
		return Record{c.spec.Field: row[c.col]}, nil
	}
}
