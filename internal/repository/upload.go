package repository

import (
	"context"

	"trackify/internal/model"
)

// UploadRepository records accepted uploads. Persistence only, no validation.
type UploadRepository interface {
	// Create inserts a new upload row and returns it as stored.
	Create(ctx context.Context, u *model.Upload) (*model.Upload, error)

	// List returns a page of uploads, newest first, with the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Upload], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}
