package source

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

// rowsPage mirrors one page of the datasets-server /rows response.
// Fields we don't read (features, num_rows_total) are left out; the
// stream deliberately never assumes a known total length.
type rowsPage struct {
	Rows []struct {
		RowIdx int64          `json:"row_idx"`
		Row    map[string]any `json:"row"`
	} `json:"rows"`
}

// HuggingFace streams a dataset split through the datasets-server rows
// endpoint, pulling pages of rows on demand. Forward-only: the offset
// advances monotonically and is never reset.
type HuggingFace struct {
	spec    config.SourceConfig
	fetcher fetcher.Fetcher
	baseURL string
	pageLen int

	offset int64
	buf    []Record
	done   bool
}

// NewHuggingFace creates a streaming source for the given dataset spec.
func NewHuggingFace(spec config.SourceConfig, f fetcher.Fetcher, fetchCfg config.FetchConfig) *HuggingFace {
	pageLen := fetchCfg.PageSize
	if pageLen <= 0 {
		pageLen = 100
	}
	baseURL := fetchCfg.RowsBaseURL
	if baseURL == "" {
		baseURL = "https://datasets-server.huggingface.co/rows"
	}
	return &HuggingFace{
		spec:    spec,
		fetcher: f,
		baseURL: baseURL,
		pageLen: pageLen,
	}
}

// Name returns the configured source name.
func (h *HuggingFace) Name() string { return h.spec.Name }

// Field returns the record field holding the text payload.
func (h *HuggingFace) Field() string { return h.spec.Field }

// Fraction returns this source's share of the byte budget.
func (h *HuggingFace) Fraction() float64 { return h.spec.Fraction }

// Next returns the next row, fetching a new page when the buffer runs
// dry. Returns io.EOF once the server yields an empty page.
func (h *HuggingFace) Next(ctx context.Context) (Record, error) {
	if len(h.buf) == 0 {
		if h.done {
			return nil, io.EOF
		}
		if err := h.fetchPage(ctx); err != nil {
			return nil, err
		}
		if len(h.buf) == 0 {
			h.done = true
			return nil, io.EOF
		}
	}

	rec := h.buf[0]
	h.buf = h.buf[1:]
	return rec, nil
}

func (h *HuggingFace) fetchPage(ctx context.Context) error {
	q := url.Values{}
	q.Set("dataset", h.spec.Location)
	if h.spec.Config != "" {
		q.Set("config", h.spec.Config)
	}
	if h.spec.Split != "" {
		q.Set("split", h.spec.Split)
	}
	q.Set("offset", strconv.FormatInt(h.offset, 10))
	q.Set("length", strconv.Itoa(h.pageLen))
	pageURL := h.baseURL + "?" + q.Encode()

	body, err := h.fetcher.Download(ctx, pageURL)
	if err != nil {
		return err
	}
	defer body.Close() //nolint:errcheck

	page, err := fetcher.DecodeJSONObject[rowsPage](body)
	if err != nil {
		return err
	}

	zap.L().Debug("huggingface: fetched page",
		zap.String("source", h.spec.Name),
		zap.Int64("offset", h.offset),
		zap.Int("rows", len(page.Rows)),
	)

	h.buf = make([]Record, 0, len(page.Rows))
	for _, row := range page.Rows {
		h.buf = append(h.buf, Record(row.Row))
	}
	h.offset += int64(len(page.Rows))

	// A short page means the split is exhausted; don't ask again.
	if len(page.Rows) < h.pageLen {
		h.done = true
	}

	return nil
}
