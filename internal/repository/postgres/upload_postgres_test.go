package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"trackify/internal/model"
	"trackify/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uploadCols = []string{"id", "original_filename", "stored_filename", "extension", "size", "content_type", "created_at"}

func TestUploadPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUploadPostgres(db)
	now := time.Now().UTC()
	u := &model.Upload{
		ID:               "0f8fad5b-d9cb-469f-a165-70867728950e",
		OriginalFilename: "Report.PDF",
		StoredFilename:   "0f8fad5bd9cb469fa16570867728950e.pdf",
		Extension:        "pdf",
		Size:             42,
		ContentType:      "application/pdf",
		CreatedAt:        now,
	}

	mock.ExpectQuery("INSERT INTO uploads").
		WithArgs(u.ID, u.OriginalFilename, u.StoredFilename, u.Extension, u.Size, u.ContentType, u.CreatedAt).
		WillReturnRows(sqlmock.NewRows(uploadCols).
			AddRow(u.ID, u.OriginalFilename, u.StoredFilename, u.Extension, u.Size, u.ContentType, u.CreatedAt))

	got, err := repo.Create(context.Background(), u)

	require.NoError(t, err)
	assert.Equal(t, u.StoredFilename, got.StoredFilename)
	assert.Equal(t, u.OriginalFilename, got.OriginalFilename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadPostgres_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO uploads").WillReturnError(errors.New("unique violation"))

	got, err := NewUploadPostgres(db).Create(context.Background(), &model.Upload{})

	assert.EqualError(t, err, "unique violation")
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUploadPostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM uploads").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT (.+) FROM uploads ORDER BY").
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(uploadCols).
				AddRow("id-2", "b.txt", "bb.txt", "txt", 2, "text/plain", time.Now()).
				AddRow("id-1", "a.txt", "aa.txt", "txt", 1, "text/plain", time.Now()))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "id-2", res.Items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM uploads").
			WillReturnError(errors.New("db down"))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})

		assert.Error(t, err)
		assert.Nil(t, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
