package models

import "time"

// FileInfo represents metadata about a stored document.
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	Location    string    `json:"location,omitempty"` // path or s3://bucket/key
	UploadedAt  time.Time `json:"uploadedAt"`
	Status      string    `json:"status"` // "uploaded"
}
