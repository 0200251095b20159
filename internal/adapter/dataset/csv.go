// Package dataset loads the trigger values, adjusted results and province
// polygons from disk into domain tables.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadCSV reads a delimited file with a header row into a table named name.
func LoadCSV(ctx context.Context, path, name string) (*domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	t, err := ParseCSV(ctx, bytes.NewReader(data), name)
	if err != nil {
		return nil, fmt.Errorf("parse csv %q: %w", path, err)
	}
	return t, nil
}

// ParseCSV reads delimited text with a header row. The delimiter is ',' unless
// the header line holds more ';' than ','. Cells are typed with
// domain.ParseValue; rows shorter than the header are padded with nulls.
// Repeated header names get a ".1", ".2" suffix so no column is lost.
func ParseCSV(ctx context.Context, r io.Reader, name string) (*domain.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := headerColumns(header)
	t := domain.NewTable(name, columns)

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) > len(columns) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(columns), len(record))
		}

		values := make(map[string]domain.Value, len(columns))
		for i, col := range columns {
			if i < len(record) {
				values[col] = domain.ParseValue(record[i])
			} else {
				values[col] = domain.Null()
			}
		}
		t.Append(values, nil)
	}
	return t, nil
}

func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// headerColumns trims names, names blank headers by position and suffixes
// repeats with ".1", ".2", skipping any suffix the header already uses.
func headerColumns(header []string) []string {
	used := make(map[string]struct{}, len(header))
	next := make(map[string]int)
	columns := make([]string, len(header))
	for i, h := range header {
		col := strings.TrimSpace(h)
		if col == "" {
			col = "Unnamed: " + strconv.Itoa(i)
		}
		if _, dup := used[col]; dup {
			base, n := col, next[col]
			for {
				n++
				col = base + "." + strconv.Itoa(n)
				if _, taken := used[col]; !taken {
					break
				}
			}
			next[base] = n
		}
		used[col] = struct{}{}
		columns[i] = col
	}
	return columns
}
