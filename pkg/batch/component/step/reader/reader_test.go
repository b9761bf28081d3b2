package reader_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reader "github.com/tigerroll/surfbatch/pkg/batch/component/step/reader"
	port "github.com/tigerroll/surfbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/surfbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/surfbatch/pkg/batch/support/util/exception"
)

const movies = `title|year|rating|released
Toy Story|1995|8.3|1995-11-22
Fargo|1996|8.1|1996-03-08
Unreleased|N/A|NA|NA
Heat|1995|8.3|1995-12-15
Se7en|1995|8.6|1995-09-22
`

var movieColumns = []reader.Column{
	{Name: "title", Type: reader.FieldString},
	{Name: "year", Type: reader.FieldInt},
	{Name: "rating", Type: reader.FieldFloat},
	{Name: "released", Type: reader.FieldDate},
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.psv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readAll[T any](t *testing.T, r interface {
	Open(context.Context) error
	Read(context.Context) (T, error)
	Close(context.Context) error
}) ([]T, error) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Open(ctx))
	defer r.Close(ctx)
	var out []T
	for {
		item, err := r.Read(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
}

func TestListItemReader(t *testing.T) {
	src := []int{1, 2, 3}
	r := reader.NewListItemReader(src)
	src[0] = 99

	items, err := readAll[int](t, r)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)

	items, err = readAll[int](t, r)
	require.NoError(t, err)
	assert.Len(t, items, 3, "Open rewinds")
}

func TestDelimitedReader_CoercesFields(t *testing.T) {
	r, err := reader.NewDelimitedFileRecordReader("movies", writeFile(t, movies), reader.DelimitedOptions{
		Delimiter: '|',
		Columns:   movieColumns,
		SkipLines: 1,
		Strict:    true,
	})
	require.NoError(t, err)

	records, err := readAll[reader.Record](t, r)
	require.NoError(t, err)
	require.Len(t, records, 5)

	assert.Equal(t, "Fargo", records[1]["title"])
	assert.Equal(t, 1996, records[1]["year"])
	assert.Equal(t, 8.1, records[1]["rating"])
	assert.Equal(t, time.Date(1996, 3, 8, 0, 0, 0, 0, time.UTC), records[1]["released"])

	assert.Equal(t, 0, records[2]["year"], "N/A reads as 0")
	assert.Equal(t, float64(0), records[2]["rating"], "NA reads as 0")
}

func TestDelimitedReader_InvalidIntegerFails(t *testing.T) {
	r, err := reader.NewDelimitedFileRecordReader("movies", writeFile(t, "Fargo|nineteen|1|1996-03-08\n"), reader.DelimitedOptions{
		Delimiter: '|',
		Columns:   movieColumns,
	})
	require.NoError(t, err)

	_, err = readAll[reader.Record](t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), `"year"`)
}

func TestDelimitedReader_StrictFieldCount(t *testing.T) {
	path := writeFile(t, "Fargo|1996\n")
	opts := reader.DelimitedOptions{Delimiter: '|', Columns: movieColumns[:3], Strict: true}

	r, err := reader.NewDelimitedFileRecordReader("movies", path, opts)
	require.NoError(t, err)
	_, err = readAll[reader.Record](t, r)
	assert.ErrorIs(t, err, reader.ErrFieldCount)

	opts.Strict = false
	r, err = reader.NewDelimitedFileRecordReader("movies", path, opts)
	require.NoError(t, err)
	records, err := readAll[reader.Record](t, r)
	require.NoError(t, err)
	assert.Equal(t, float64(0), records[0]["rating"])
}

type movie struct {
	Title string
	Year  int
}

func TestDelimitedReader_Mapper(t *testing.T) {
	open := func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("title,year\nFargo,1996\n")), nil
	}
	r, err := reader.NewDelimitedFileItemReader("movies", open, reader.DelimitedOptions{
		Columns:   []reader.Column{{Name: "title"}, {Name: "year", Type: reader.FieldInt}},
		SkipLines: 1,
	}, func(rec reader.Record) (movie, error) {
		return movie{Title: rec["title"].(string), Year: rec["year"].(int)}, nil
	})
	require.NoError(t, err)

	items, err := readAll[movie](t, r)
	require.NoError(t, err)
	assert.Equal(t, []movie{{Title: "Fargo", Year: 1996}}, items)
}

func TestDelimitedReader_InvalidDefinition(t *testing.T) {
	_, err := reader.NewDelimitedFileRecordReader("x", "x.csv", reader.DelimitedOptions{})
	assert.ErrorIs(t, err, exception.ErrInvalidDefinition)

	_, err = reader.NewDelimitedFileRecordReader("x", "x.csv", reader.DelimitedOptions{
		Columns: []reader.Column{{Name: "a", Type: "uuid"}},
	})
	assert.ErrorIs(t, err, exception.ErrInvalidDefinition)
}

func TestSqlCursorReader(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT title, year FROM movies").
		WillReturnRows(sqlmock.NewRows([]string{"title", "year"}).AddRow("Fargo", 1996).AddRow("Heat", 1995))

	r := reader.NewSqlCursorReader(db, "movies", "SELECT title, year FROM movies", nil, func(rows *sql.Rows) (movie, error) {
		var m movie
		err := rows.Scan(&m.Title, &m.Year)
		return m, err
	})

	items, err := readAll[movie](t, r)
	require.NoError(t, err)
	assert.Equal(t, []movie{{"Fargo", 1996}, {"Heat", 1995}}, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFileOpener_ResolvesJobParameter(t *testing.T) {
	path := writeFile(t, movies)
	params := model.NewJobParameters().WithString("input.file", path)
	je := model.NewJobExecution(model.NewJobInstance("importJob", params))
	ctx := port.WithStepExecution(context.Background(), model.NewStepExecution("load", je))

	rc, err := reader.FileOpener("#{jobParameters['input.file']}")(ctx)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, movies, string(data))

	_, err = reader.FileOpener("#{jobParameters['input.file']}")(context.Background())
	assert.Error(t, err)
}
