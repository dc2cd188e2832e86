package bulk

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readAll(t *testing.T, src Source) []InputRow {
	var rows []InputRow
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCsvSource(t *testing.T) {
	data := "\ufeffprimary_email, alternate_email ,note\n" +
		"alice@example.com,alice.alt@example.com,first\n" +
		"\n" +
		",x@example.com\n" +
		"bob@example.com\n"
	src, err := NewCsvSource("users.csv", strings.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, []string{"primary_email", "alternate_email", "note"}, src.Header())
	rows := readAll(t, src)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, "alice@example.com", rows[0].Get("primary_email"))
	assert.Equal(t, "alice.alt@example.com", rows[0].Get("alternate_email"))

	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, "", rows[1].Get("primary_email"))

	assert.Equal(t, 3, rows[2].Number)
	assert.Equal(t, "", rows[2].Get("alternate_email"))
	assert.Equal(t, "", rows[2].Get("no_such_column"))
}

var errDiskRead = errors.New("disk read failed")

// brokenInput yields data and then fails the next read.
func brokenInput(data string) io.Reader {
	return io.MultiReader(strings.NewReader(data), iotest.ErrReader(errDiskRead))
}

func TestCsvSourceReadError(t *testing.T) {
	src, err := NewCsvSource("bad.csv", brokenInput("primary_email,alternate_email\na@example.com,b@example.com\n"))
	require.NoError(t, err)

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", row.Get("primary_email"))

	_, err = src.Next()
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "bad.csv", inputErr.Path)
	assert.ErrorIs(t, err, errDiskRead)
}

func TestCsvSourceStrayQuotes(t *testing.T) {
	data := "primary_email,alternate_email\n" +
		"odd\"name@example.com,alt@example.com\n" +
		"\"quoted@example.com\",\"x\"y@example.com\"\n"
	src, err := NewCsvSource("quotes.csv", strings.NewReader(data))
	require.NoError(t, err)

	rows := readAll(t, src)
	require.Len(t, rows, 2)
	assert.Equal(t, `odd"name@example.com`, rows[0].Get("primary_email"))
	assert.Equal(t, "alt@example.com", rows[0].Get("alternate_email"))
	assert.Equal(t, "quoted@example.com", rows[1].Get("primary_email"))
	assert.Equal(t, `x"y@example.com`, rows[1].Get("alternate_email"))
}

func TestInputRowGetTrims(t *testing.T) {
	row := InputRow{Number: 1, Values: map[string]string{"primary_email": "  a@example.com\t"}}
	assert.Equal(t, "a@example.com", row.Get("primary_email"))
	assert.Equal(t, "", row.Get("alternate_email"))
}

func TestOpenSourceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenSource(filepath.Join(dir, "missing.csv"))
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	_, err = OpenSource(empty)
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, err.Error(), "file is empty")

	_, err = OpenSource(filepath.Join(dir, "missing.xlsx"))
	require.ErrorAs(t, err, &inputErr)
}

func TestOpenCsvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("primary_email,alternate_email\na@example.com,b@example.com\n"), 0600))

	src, err := OpenSource(path)
	require.NoError(t, err)
	rows := readAll(t, src)
	require.NoError(t, src.Close())
	require.Len(t, rows, 1)
	assert.Equal(t, "b@example.com", rows[0].Get("alternate_email"))
}

func TestXlsxSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"primary_email", "alternate_email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"alice@example.com", "alice.alt@example.com"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"bob@example.com"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, []string{"primary_email", "alternate_email"}, src.Header())
	rows := readAll(t, src)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice.alt@example.com", rows[0].Get("alternate_email"))
	assert.Equal(t, 2, rows[1].Number)
	assert.Equal(t, "bob@example.com", rows[1].Get("primary_email"))
	assert.Equal(t, "", rows[1].Get("alternate_email"))
}
