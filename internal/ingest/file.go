// Package ingest streams batch CSV/XLSX uploads and parses them into typed
// raw source rows. Readers are streaming: rows flow through a channel so a
// large export never has to fit in memory, and errors arrive on a companion
// channel closed together with the row channel.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one spreadsheet row keyed by lower-cased, trimmed header name.
type Row map[string]string

// Get returns the first non-empty value among the given column synonyms.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// StreamRows opens path and streams header-mapped rows. The format is picked
// by extension: .xlsx uses the first sheet, anything else is parsed as CSV.
// Caller must consume the row channel; both channels are closed when done.
func StreamRows(ctx context.Context, path string) (<-chan Row, <-chan error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return streamXLSX(ctx, path)
	}
	return streamCSV(ctx, path)
}

func streamCSV(ctx context.Context, path string) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrap(err, "ingest: open csv")
			return
		}
		defer f.Close()

		reader := csv.NewReader(f)
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // allow variable fields

		var header []string
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: read csv row")
				return
			}

			if header == nil {
				header = normalizeHeader(record)
				continue
			}

			select {
			case rowCh <- zipRow(header, record):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func streamXLSX(ctx context.Context, path string) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrap(err, "ingest: open xlsx")
			return
		}
		if len(f.Sheets) == 0 {
			errCh <- eris.New("ingest: xlsx has no sheets")
			return
		}

		var header []string
		for _, row := range f.Sheets[0].Rows {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}

			if header == nil {
				header = normalizeHeader(cells)
				continue
			}

			select {
			case rowCh <- zipRow(header, cells):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

func zipRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		if h == "" || i >= len(record) {
			continue
		}
		row[h] = record[i]
	}
	return row
}
