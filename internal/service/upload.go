package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trackify/internal/model"
	"trackify/internal/repository"
	"trackify/internal/storage"
)

// PublicPrefix is the URL path under which stored uploads are served.
const PublicPrefix = "/static/uploads/"

var (
	ErrReaderNil          = errors.New("reader is nil")
	ErrNoFileSelected     = errors.New("no file selected")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrLedgerDisabled     = errors.New("upload ledger is not configured")
	ErrNotFound           = errors.New("upload not found")
)

// allowedExtensions is the upload allow-list, compared lower-cased.
var allowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
	"ppt":  {},
	"pptx": {},
	"txt":  {},
}

var tracer = otel.Tracer("trackify/internal/service")

// Extension returns the lower-cased text after the last '.' of filename,
// or "" when there is no dot.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Allowed reports whether ext is on the allow-list.
func Allowed(ext string) bool {
	_, ok := allowedExtensions[ext]
	return ok
}

// NewStoredFilename returns 32 hex chars of a random UUID followed by ".<ext>".
func NewStoredFilename(ext string) string {
	id := uuid.New()
	return hex.EncodeToString(id[:]) + "." + ext
}

// UploadListResult is the service-level DTO for paginated uploads.
type UploadListResult struct {
	Items []model.Upload `json:"data"`
	Total int            `json:"total"`
}

// UploadService defines the use cases around uploaded files.
type UploadService interface {
	// Upload validates the client filename, stores the content under a fresh
	// random name and records it in the ledger when one is configured.
	Upload(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*model.Upload, error)

	// List returns recorded uploads using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*UploadListResult, error)

	// Open streams a stored upload by its stored filename.
	Open(ctx context.Context, storedFilename string) (io.ReadCloser, storage.ObjectInfo, error)
}

type uploadService struct {
	store storage.Storage
	repo  repository.UploadRepository
	now   func() time.Time
}

// NewUploadService constructs an UploadService. repo may be nil, in which
// case uploads are only written to storage.
func NewUploadService(store storage.Storage, repo repository.UploadRepository) UploadService {
	return &uploadService{store: store, repo: repo, now: time.Now}
}

func (s *uploadService) Upload(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (_ *model.Upload, err error) {
	ctx, span := tracer.Start(ctx, "UploadService.Upload", trace.WithAttributes(
		attribute.String("upload.original_filename", originalFilename),
		attribute.Int64("upload.size", size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if r == nil {
		return nil, ErrReaderNil
	}
	if originalFilename == "" {
		return nil, ErrNoFileSelected
	}
	ext := Extension(originalFilename)
	if !Allowed(ext) {
		return nil, ErrFileTypeNotAllowed
	}

	stored := NewStoredFilename(ext)
	span.SetAttributes(attribute.String("upload.stored_filename", stored))

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.store.Put(ctx, stored, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	u := &model.Upload{
		ID:               uuid.NewString(),
		OriginalFilename: originalFilename,
		StoredFilename:   stored,
		Extension:        ext,
		Size:             info.Size,
		ContentType:      contentType,
		URL:              PublicPrefix + stored,
		CreatedAt:        s.now().UTC(),
	}
	if s.repo == nil {
		return u, nil
	}

	rec, err := s.repo.Create(ctx, u)
	if err != nil {
		if delErr := s.store.Delete(ctx, stored); delErr != nil {
			return nil, fmt.Errorf("ledger save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("ledger save failed: %w", err)
	}
	rec.URL = PublicPrefix + rec.StoredFilename
	return rec, nil
}

func (s *uploadService) List(ctx context.Context, limit, offset int) (*UploadListResult, error) {
	if s.repo == nil {
		return nil, ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	for i := range res.Items {
		res.Items[i].URL = PublicPrefix + res.Items[i].StoredFilename
	}
	return &UploadListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *uploadService) Open(ctx context.Context, storedFilename string) (io.ReadCloser, storage.ObjectInfo, error) {
	rc, info, err := s.store.Get(ctx, storedFilename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}
