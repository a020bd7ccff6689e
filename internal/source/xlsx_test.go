package source

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/corpus-cli/internal/config"
	"github.com/sells-group/corpus-cli/internal/fetcher"
)

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestXLSX_ColumnByHeader(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"id", "body"},
		{"1", "first text"},
		{"2", "second text"},
	})
	src := NewXLSX(config.SourceConfig{
		Name:     "sheet",
		Type:     "xlsx",
		Location: path,
		Field:    "body",
		Fraction: 1.0,
	}, nil)

	recs := drain(t, src)
	require.Len(t, recs, 2)
	text, ok := recs[0].Text("body")
	require.True(t, ok)
	assert.Equal(t, "first text", text)
}

func TestXLSX_RemoteWorkbook(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"id", "body"},
		{"1", "remote text"},
	})
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	src := NewXLSX(config.SourceConfig{
		Name:     "remote-sheet",
		Type:     "xlsx",
		Location: srv.URL + "/records.xlsx",
		Field:    "body",
		Fraction: 1.0,
	}, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1}))

	rec, err := src.Next(context.Background())
	require.NoError(t, err)
	text, _ := rec.Text("body")
	assert.Equal(t, "remote text", text)

	scratch := src.scratch
	require.NotEmpty(t, scratch)

	_, err = src.Next(context.Background())
	require.Equal(t, io.EOF, err)
	_, statErr := os.Stat(scratch)
	assert.True(t, os.IsNotExist(statErr), "scratch dir must be removed at exhaustion")
}

func TestXLSX_MissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]string{{"id", "content"}, {"1", "x"}})
	src := NewXLSX(config.SourceConfig{
		Name:     "sheet",
		Type:     "xlsx",
		Location: path,
		Field:    "body",
		Fraction: 1.0,
	}, nil)

	_, err := src.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body")
}
