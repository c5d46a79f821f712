package model

import "time"

// Upload describes one file accepted by the upload endpoint.
// OriginalFilename is client supplied and untrusted; StoredFilename is
// generated server side and is the only name used on disk.
type Upload struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	Extension        string    `json:"extension"`
	Size             int64     `json:"size"`
	ContentType      string    `json:"content_type"`
	URL              string    `json:"url"`
	CreatedAt        time.Time `json:"created_at"`
}
