package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"trackify/internal/http/middleware"
	"trackify/internal/service"
)

const (
	msgNoFilePart      = "No file part"
	msgNoFileSelected  = "No file selected"
	msgTypeNotAllowed  = "File type not allowed"
	msgUploadSucceeded = "File uploaded successfully"
)

var msgInternal = utils.StatusMessage(fiber.StatusInternalServerError)

var (
	errNoFilePart     = errors.New("no file part")
	errNoFileSelected = errors.New("no file selected")
)

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	FileURL  string `json:"fileUrl"`
}

// clientFilename returns the filename exactly as the client sent it.
// FileHeader.Filename has directories stripped ("reports/Q1.pdf" becomes
// "Q1.pdf", "a.pdf/" becomes "a.pdf"), so the raw Content-Disposition
// parameter is used for validation and the response.
func clientFilename(fh *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(fh.Header.Get(fiber.HeaderContentDisposition))
	if err != nil {
		return fh.Filename
	}
	if name, ok := params["filename"]; ok {
		return name
	}
	return fh.Filename
}

// formFile returns the first file under field. A field sent without a
// filename is parsed as a plain value, which means "present but nothing
// selected".
func formFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errNoFilePart
	}
	if files := form.File[field]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, errNoFileSelected
		}
		return files[0], nil
	}
	if _, ok := form.Value[field]; ok {
		return nil, errNoFileSelected
	}
	return nil, errNoFilePart
}

// UploadFile handles POST /upload-file (multipart/form-data, field name: file).
//
// @Summary  Upload a file
// @Accept   multipart/form-data
// @Produce  json
// @Param    file formData file true "pdf, docx, ppt, pptx or txt"
// @Success  200 {object} uploadResponse
// @Failure  400 {object} errorPayload
// @Failure  413 {object} errorPayload
// @Router   /upload-file [post]
func UploadFile(svc service.UploadService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := formFile(c, "file")
		switch {
		case errors.Is(err, errNoFilePart):
			return writeError(c, fiber.StatusBadRequest, msgNoFilePart)
		case errors.Is(err, errNoFileSelected):
			return writeError(c, fiber.StatusBadRequest, msgNoFileSelected)
		}

		name := clientFilename(fh)

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, msgNoFilePart)
		}
		defer f.Close()

		u, err := svc.Upload(c.UserContext(), f, name, fh.Header.Get(fiber.HeaderContentType), fh.Size)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNoFileSelected):
				return writeError(c, fiber.StatusBadRequest, msgNoFileSelected)
			case errors.Is(err, service.ErrFileTypeNotAllowed):
				return writeError(c, fiber.StatusBadRequest, msgTypeNotAllowed)
			}
			log.WithFields(logrus.Fields{
				"request_id": middleware.RequestIDFromCtx(c),
				"filename":   name,
			}).WithError(err).Error("upload failed")
			return writeError(c, fiber.StatusInternalServerError, msgInternal)
		}

		log.WithFields(logrus.Fields{
			"request_id":      middleware.RequestIDFromCtx(c),
			"filename":        u.OriginalFilename,
			"stored_filename": u.StoredFilename,
			"size":            u.Size,
		}).Debug("file uploaded")

		return c.JSON(uploadResponse{
			Message:  msgUploadSucceeded,
			Filename: name,
			FileURL:  u.URL,
		})
	}
}

// ServeUpload streams a stored upload by its stored filename.
func ServeUpload(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.Open(c.UserContext(), c.Params("name"))
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		return c.SendStream(rc, int(info.Size))
	}
}

// ListUploads returns recorded uploads with limit & offset query parameters.
//
// @Summary  List recorded uploads
// @Produce  json
// @Param    limit  query int false "page size" default(10)
// @Param    offset query int false "rows to skip" default(0)
// @Success  200 {object} service.UploadListResult
// @Failure  400 {object} errorPayload
// @Router   /uploads [get]
func ListUploads(svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			if errors.Is(err, service.ErrLedgerDisabled) {
				return fiber.ErrNotFound
			}
			return writeError(c, fiber.StatusInternalServerError, msgInternal)
		}
		return c.JSON(res)
	}
}
