package models

import "time"

// UploadStatus represents where a tracked upload is in its lifecycle.
type UploadStatus string

const (
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusSuccess    UploadStatus = "success"
	UploadStatusError      UploadStatus = "error"
)

// Terminal reports whether no further transition can happen from s.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusSuccess || s == UploadStatusError
}

// TrackedUpload is one accepted file on its way from intake to success or error.
type TrackedUpload struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	MIMEType    string       `json:"mimeType"`
	Status      UploadStatus `json:"status"`
	Progress    float64      `json:"progress"` // 0-100, only meaningful while uploading
	Error       string       `json:"error,omitempty"`
	StoredID    string       `json:"storedId,omitempty"`
	AddedAt     time.Time    `json:"addedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// NewTrackedUpload creates a record in the uploading state with zero progress.
func NewTrackedUpload(id, name string, size int64, mimeType string) TrackedUpload {
	return TrackedUpload{
		ID:       id,
		Name:     name,
		Size:     size,
		MIMEType: mimeType,
		Status:   UploadStatusUploading,
		Progress: 0,
		AddedAt:  time.Now(),
	}
}
