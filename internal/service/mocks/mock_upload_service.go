package mocks

import (
	"context"
	"io"

	"trackify/internal/model"
	"trackify/internal/service"
	"trackify/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Upload(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*model.Upload, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Upload), args.Error(1)
}

func (m *MockUploadService) List(ctx context.Context, limit, offset int) (*service.UploadListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadListResult), args.Error(1)
}

func (m *MockUploadService) Open(ctx context.Context, storedFilename string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, storedFilename)
	rc, _ := args.Get(0).(io.ReadCloser)
	info, _ := args.Get(1).(storage.ObjectInfo)
	return rc, info, args.Error(2)
}
