// handlers_upload.go - Document intake and removal handlers
package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/efiling-portal/backend/internal/intake"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// sniffLen is how much of an oversized file is read for type detection
const sniffLen = 3072

// uploadFields are the multipart fields carrying documents. The drop zone sends
// "files", the picker may send "file"; both land in the same batch.
var uploadFields = []string{"files", "file"}

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	sessionMgr *session.Manager
	uploadMgr  *upload.Manager
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(sessionMgr *session.Manager, uploadMgr *upload.Manager) UploadHandler {
	return &UploadHandlerImpl{
		sessionMgr: sessionMgr,
		uploadMgr:  uploadMgr,
	}
}

// uploadResponse is returned for every intake batch
type uploadResponse struct {
	upload.Result
	Session session.Snapshot `json:"session"`
}

// HandleUploadFiles accepts a multipart batch of documents. Files failing the type
// or size rule are reported back and never enter the session; the rest start
// uploading immediately.
func (h *UploadHandlerImpl) HandleUploadFiles(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart/form-data", err)
	}
	defer form.RemoveAll()

	maxSize := h.uploadMgr.Validator().MaxSize()
	var batch []intake.Candidate
	for _, field := range uploadFields {
		for _, fh := range form.File[field] {
			cand, err := readCandidate(fh, maxSize)
			if err != nil {
				return NewBadRequestError("failed to read uploaded file", err)
			}
			batch = append(batch, cand)
		}
	}

	result, err := h.uploadMgr.Accept(sess, batch)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			return NewNotFoundError("session", sess.ID)
		}
		return NewInternalError("failed to accept files", err)
	}

	status := http.StatusOK
	if len(result.Accepted) > 0 {
		status = http.StatusAccepted
	}
	return c.JSON(status, uploadResponse{Result: result, Session: sess.Snapshot()})
}

// readCandidate reads a multipart file into an intake candidate. Files over
// maxSize are only read far enough to detect their type.
func readCandidate(fh *multipart.FileHeader, maxSize int64) (intake.Candidate, error) {
	cand := intake.Candidate{
		Name:     fh.Filename,
		Size:     fh.Size,
		MIMEType: fh.Header.Get(echo.HeaderContentType),
	}

	src, err := fh.Open()
	if err != nil {
		return cand, err
	}
	defer src.Close()

	limit := fh.Size
	if limit > maxSize {
		limit = sniffLen
	}
	content, err := io.ReadAll(io.LimitReader(src, limit))
	if err != nil {
		return cand, err
	}
	cand.Content = content
	return cand, nil
}

// HandleRemoveFile removes a document from the session in any state
func (h *UploadHandlerImpl) HandleRemoveFile(c echo.Context) error {
	sess, err := lookupSession(h.sessionMgr, c)
	if err != nil {
		return err
	}

	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId", "")
	}
	if !h.uploadMgr.Remove(sess, fileID) {
		return NewNotFoundError("file", fileID)
	}
	return c.NoContent(http.StatusNoContent)
}
