package batch

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Row is one incoming CSV record, keyed by header name. Missing fields read
// as empty strings; fields not present in the header are ignored on write so
// the output keeps the input's column layout.
type Row map[string]string

// RowReader streams header-mapped rows from an incoming CSV export.
type RowReader struct {
	header []string
	reader *csv.Reader
}

func NewRowReader(r io.Reader) (*RowReader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return &RowReader{header: header, reader: reader}, nil
}

// Header returns the input column names in file order.
func (rr *RowReader) Header() []string {
	return rr.header
}

// Next returns the next row, or io.EOF when the input is exhausted.
func (rr *RowReader) Next() (Row, error) {
	fields, err := rr.reader.Read()
	if err != nil {
		return nil, err
	}
	row := make(Row, len(rr.header))
	for i, name := range rr.header {
		if i < len(fields) {
			row[name] = fields[i]
		} else {
			row[name] = ""
		}
	}
	return row, nil
}

// RowWriter writes rows back out under the original header.
type RowWriter struct {
	header []string
	writer *csv.Writer
}

func NewRowWriter(w io.Writer, header []string) (*RowWriter, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &RowWriter{header: header, writer: writer}, nil
}

func (rw *RowWriter) Write(row Row) error {
	fields := make([]string, len(rw.header))
	for i, name := range rw.header {
		fields[i] = row[name]
	}
	return rw.writer.Write(fields)
}

// Flush drains buffered rows and reports any deferred write error.
func (rw *RowWriter) Flush() error {
	rw.writer.Flush()
	return rw.writer.Error()
}
