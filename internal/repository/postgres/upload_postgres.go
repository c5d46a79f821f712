package postgres

import (
	"context"
	"database/sql"

	"trackify/internal/model"
	"trackify/internal/repository"
)

// UploadPostgres is a PostgreSQL implementation of repository.UploadRepository.
type UploadPostgres struct {
	db *sql.DB
}

// NewUploadPostgres creates a new UploadPostgres repository.
func NewUploadPostgres(db *sql.DB) *UploadPostgres {
	return &UploadPostgres{db: db}
}

var _ repository.UploadRepository = (*UploadPostgres)(nil)

const uploadColumns = `id, original_filename, stored_filename, extension, size, content_type, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*model.Upload, error) {
	var u model.Upload
	if err := row.Scan(
		&u.ID,
		&u.OriginalFilename,
		&u.StoredFilename,
		&u.Extension,
		&u.Size,
		&u.ContentType,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts an upload row and returns the stored record.
func (r *UploadPostgres) Create(ctx context.Context, u *model.Upload) (*model.Upload, error) {
	const q = `
		INSERT INTO uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + uploadColumns
	row := r.db.QueryRowContext(ctx, q,
		u.ID,
		u.OriginalFilename,
		u.StoredFilename,
		u.Extension,
		u.Size,
		u.ContentType,
		u.CreatedAt,
	)
	return scanUpload(row)
}

// List returns uploads using LIMIT/OFFSET pagination and a total count.
func (r *UploadPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Upload], error) {
	const qCount = `SELECT COUNT(*) FROM uploads`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + uploadColumns + `
		FROM uploads
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Upload]{
		Items: items,
		Total: total,
	}, nil
}
