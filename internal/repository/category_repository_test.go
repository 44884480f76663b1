package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteCategoryStillReferenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM book_categories WHERE category_id=\\?").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrCategoryInUse)
	// No DELETE was expected; a referenced category must survive untouched.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryUnreferenced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM book_categories WHERE category_id=\\?").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM categories WHERE id=\\?").
		WithArgs(uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCategoryMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM book_categories WHERE category_id=\\?").
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM categories WHERE id=\\?").
		WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 8)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
