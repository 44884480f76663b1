package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/repository"
)

func TestReadBookRowsCSV(t *testing.T) {
	csv := strings.Join([]string{
		"title,authors,description,price_cents,stock,currency,availability,isbn,language,format,pages,publisher,categories",
		`Clean Code,"Robert Martin",A handbook of agile craftsmanship,249900,10,INR,IN_STOCK,9780132350884,English,Paperback,464,Prentice Hall,"Programming; Software"`,
		`,Anonymous,No title so this row is dropped,100,1,,,,,,,,`,
		`Gateless Gate,,Missing authors so dropped,100,1,,,,,,,,`,
		`Bare Minimum,"Solo Author",Only the required fields,,,,,,,,,,`,
	}, "\n")

	rows, err := readBookRows(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Len(t, rows, 2, "incomplete rows are dropped before the attempt set")

	first := rows[0]
	assert.Equal(t, "Clean Code", first.Title)
	assert.Equal(t, []string{"Robert Martin"}, first.Authors)
	assert.Equal(t, int64(249900), first.PriceCents)
	assert.Equal(t, int64(10), first.Stock)
	assert.Equal(t, 464, first.Pages)
	assert.Equal(t, []string{"Programming", "Software"}, first.Categories)

	second := rows[1]
	assert.Equal(t, "Bare Minimum", second.Title)
	assert.Zero(t, second.PriceCents)
	assert.Zero(t, second.Stock)
	assert.Empty(t, second.Categories)
}

func TestBookRowFromRecordBadNumber(t *testing.T) {
	cols := headerIndex([]string{"title", "authors", "description", "price_cents", "stock"})

	bad := bookRowFromRecord(cols, []string{"T", "A", "d", "12x", "5"})
	assert.NotEmpty(t, bad.parseErr)
	assert.Contains(t, bad.parseErr, "price_cents")

	ok := bookRowFromRecord(cols, []string{"T", "A", "d", "1200", "5"})
	assert.Empty(t, ok.parseErr)
	assert.Equal(t, int64(1200), ok.PriceCents)
	assert.Equal(t, int64(5), ok.Stock)
}

func TestReadBookRowsCSVHeaderOrderIrrelevant(t *testing.T) {
	csv := "authors,title,description\nJane Doe,Reordered,Columns located by header name\n"
	rows, err := readBookRows(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Reordered", rows[0].Title)
	assert.Equal(t, []string{"Jane Doe"}, rows[0].Authors)
}

func TestReadBookRowsEmptyCSV(t *testing.T) {
	_, err := readBookRows(strings.NewReader(""), true)
	assert.Error(t, err)
}

func TestReadBookRowsJSON(t *testing.T) {
	payload := `[
		{"title":"One","authors":["A"],"description":"d","price_cents":1000,"stock":5},
		{"title":"","authors":["A"],"description":"dropped"},
		{"title":"Two","authors":[],"description":"also dropped"}
	]`
	rows, err := readBookRows(strings.NewReader(payload), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "One", rows[0].Title)
	assert.Equal(t, int64(1000), rows[0].PriceCents)
}

func TestReadBookRowsBadJSON(t *testing.T) {
	_, err := readBookRows(strings.NewReader("{not an array"), false)
	assert.Error(t, err)
}

func TestReadCategoryRows(t *testing.T) {
	csv := "name,description\nProgramming,Software books\n,missing name dropped\nFiction,\n"
	rows, err := readCategoryRows(strings.NewReader(csv), true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Programming", rows[0].Name)
	assert.Equal(t, "Software books", rows[0].Description)
	assert.Equal(t, "Fiction", rows[1].Name)

	jsonRows, err := readCategoryRows(strings.NewReader(`[{"name":"History"},{"name":""}]`), false)
	require.NoError(t, err)
	require.Len(t, jsonRows, 1)
	assert.Equal(t, "History", jsonRows[0].Name)
}

// Rows fail independently and the per-row report never carries raw
// driver error text.
func TestImportBooksRowErrorsSanitized(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewImportHandler(repository.NewBookRepo(db), repository.NewCategoryRepo(db))

	// Row 0 inserts cleanly.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO books").WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectExec("DELETE FROM book_categories").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT created_at, updated_at FROM books WHERE id=\\?").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit()

	// Row 1 trips the ISBN unique key.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO books").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '9780132350884' for key 'uq_isbn'"))
	mock.ExpectRollback()

	// Row 2 fails with an arbitrary driver error.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO books").
		WillReturnError(errors.New("Error 1406 (22001): Data too long for column 'title' at row 1"))
	mock.ExpectRollback()

	rows := []bookImportRow{
		{Title: "First", Authors: []string{"A"}, Description: "d", PriceCents: 1000},
		{Title: "Second", Authors: []string{"B"}, Description: "d", PriceCents: 2000},
		{Title: "Third", Authors: []string{"C"}, Description: "d", PriceCents: 3000},
	}
	result := importResult{JobID: "job", Errors: []importError{}}
	h.importBooks(context.Background(), rows, &result)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, importError{Row: 1, Error: "book already exists: Second"}, result.Errors[0])
	assert.Equal(t, importError{Row: 2, Error: "insert failed"}, result.Errors[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSplitMulti(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitMulti("a; b"))
	assert.Equal(t, []string{"solo"}, splitMulti("solo"))
	assert.Nil(t, splitMulti("  "))
	assert.Equal(t, []string{"x"}, splitMulti(";x;;"))
}
