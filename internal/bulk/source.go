package bulk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// InputError means the input could not be read. Before the first row it aborts the run
// without touching the directory.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %s", e.Path, e.Err.Error())
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// InputRow is one data row keyed by header name. Number counts data rows from 1.
type InputRow struct {
	Number int
	Values map[string]string
}

// Get returns the named cell with surrounding whitespace removed, or "" when the column is absent.
func (r InputRow) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// Source yields rows in file order. Next returns io.EOF after the last row.
type Source interface {
	Header() []string
	Next() (InputRow, error)
	Close() error
}

// OpenSource opens a .xlsx workbook (first sheet) or, for any other extension, a CSV file.
func OpenSource(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		src, err := openXlsxSource(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := openCsvSource(path)
	if err != nil {
		return nil, err
	}
	return src, nil
}

type csvSource struct {
	path   string
	file   *os.File
	reader *csv.Reader
	header []string
	count  int
}

func openCsvSource(path string) (*csvSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	src, err := newCsvSource(path, file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	src.file = file
	return src, nil
}

// NewCsvSource reads CSV from r; path is only used in errors.
func NewCsvSource(path string, r io.Reader) (Source, error) {
	src, err := newCsvSource(path, r)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func newCsvSource(path string, r io.Reader) (*csvSource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &InputError{Path: path, Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &csvSource{path: path, reader: reader, header: header}, nil
}

func (s *csvSource) Header() []string {
	return s.header
}

func (s *csvSource) Next() (InputRow, error) {
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return InputRow{}, io.EOF
	}
	if err != nil {
		return InputRow{}, &InputError{Path: s.path, Err: err}
	}
	s.count++
	return newInputRow(s.count, s.header, record), nil
}

func (s *csvSource) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

type xlsxSource struct {
	header []string
	rows   [][]string
	pos    int
	count  int
}

func openXlsxSource(path string) (*xlsxSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &InputError{Path: path, Err: errors.New("workbook contains no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &InputError{Path: path, Err: fmt.Errorf("reading sheet %s: %w", sheets[0], err)}
	}
	if len(rows) == 0 {
		return nil, &InputError{Path: path, Err: errors.New("file is empty")}
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &xlsxSource{header: header, rows: rows[1:]}, nil
}

func (s *xlsxSource) Header() []string {
	return s.header
}

func (s *xlsxSource) Next() (InputRow, error) {
	for s.pos < len(s.rows) {
		record := s.rows[s.pos]
		s.pos++
		if blankRecord(record) {
			continue
		}
		s.count++
		return newInputRow(s.count, s.header, record), nil
	}
	return InputRow{}, io.EOF
}

func (s *xlsxSource) Close() error {
	return nil
}

func newInputRow(number int, header []string, record []string) InputRow {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			values[name] = record[i]
		}
	}
	return InputRow{Number: number, Values: values}
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
