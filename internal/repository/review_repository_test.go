package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/bookstore-api/internal/model"
)

func TestCreateReviewDuplicateRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(uint64(3), uint64(9), 4, "Great", "Loved it").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '3-9' for key 'uq_book_user'"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &model.Review{
		BookID: 3, UserID: 9, Rating: 4, Title: "Great", Body: "Loved it",
	})
	assert.ErrorIs(t, err, ErrDuplicateReview)
	// The rating recompute must not run when the insert is rejected.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReviewRecomputesRating(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReviewRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(uint64(3), uint64(9), 5, "Superb", "").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE books SET").
		WithArgs(uint64(3), uint64(3), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.Create(context.Background(), &model.Review{
		BookID: 3, UserID: 9, Rating: 5, Title: "Superb",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
