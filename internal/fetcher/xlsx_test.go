package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	err := f.Save(path)
	require.NoError(t, err)
	return path
}

func collectXLSXRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"id", "body"},
			{"1", "first text"},
			{"2", "second text"},
		},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{})
	rows, err := collectXLSXRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "body"}, rows[0])
	assert.Equal(t, []string{"1", "first text"}, rows[1])
}

func TestStreamXLSX_SkipRowsAndHeader(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"id", "body"},
			{"1", "kept"},
		},
	})

	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{
		SkipRows: 1,
		HeaderCh: headerCh,
	})
	rows, err := collectXLSXRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "kept"}, rows[0])
	assert.Equal(t, []string{"id", "body"}, <-headerCh)
}

func TestStreamXLSX_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"First":  {{"a"}},
		"Second": {{"x"}, {"1"}},
	})

	rowCh, errCh := StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Second"})
	rows, err := collectXLSXRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x"}, rows[0])

	rowCh, errCh = StreamXLSX(context.Background(), path, XLSXOptions{SheetName: "Missing"})
	_, err = collectXLSXRows(t, rowCh, errCh)
	assert.Error(t, err)
}

func TestStreamXLSX_MissingFile(t *testing.T) {
	rowCh, errCh := StreamXLSX(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	_, err := collectXLSXRows(t, rowCh, errCh)
	assert.Error(t, err)
}
