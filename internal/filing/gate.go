// Package filing implements the submission gate: it refuses to file a batch that
// is empty, still uploading or missing case details, and otherwise files it and
// clears the session.
package filing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/google/uuid"
)

// DefaultLatency is the simulated round trip to the filing service.
const DefaultLatency = 2 * time.Second

var (
	// ErrNoFiles is returned when the session holds no uploads.
	ErrNoFiles = errors.New("please upload at least one document")
	// ErrSubmissionInProgress is returned while another submit on the session runs.
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
)

// IncompleteUploadsError is returned while any upload has not reached success.
type IncompleteUploadsError struct {
	Pending int
}

func (e *IncompleteUploadsError) Error() string {
	return fmt.Sprintf("please wait for all uploads to complete (%d pending)", e.Pending)
}

// MissingMetadataError lists the required case fields that are blank.
type MissingMetadataError struct {
	Fields []string
}

func (e *MissingMetadataError) Error() string {
	return "please fill in all required fields: " + strings.Join(e.Fields, ", ")
}

var logger = logging.New("filing")

// Gate files ready batches.
type Gate struct {
	latency time.Duration
	now     func() time.Time
}

// NewGate creates a gate that waits latency before filing. A negative latency
// disables the wait; zero selects DefaultLatency.
func NewGate(latency time.Duration) *Gate {
	if latency == 0 {
		latency = DefaultLatency
	}
	if latency < 0 {
		latency = 0
	}
	return &Gate{latency: latency, now: time.Now}
}

// Submit files every upload in sess under meta. Checks run in a fixed order:
// a submit already in flight, no uploads, uploads not all successful, then
// missing case fields. On success the session's uploads and metadata are cleared.
// Cancelling ctx during the wait leaves the session untouched.
func (g *Gate) Submit(ctx context.Context, sess *session.Session, meta models.CaseMetadata) (*models.Confirmation, error) {
	if !sess.BeginSubmit() {
		if sess.Closed() {
			return nil, session.ErrClosed
		}
		return nil, ErrSubmissionInProgress
	}
	defer sess.EndSubmit()

	tag := logging.ShortID(sess.ID)

	if err := precheck(sess.Snapshot(), meta); err != nil {
		logger.Warnf("[Session %s] Submit refused: %v", tag, err)
		return nil, err
	}

	logger.Infof("[Session %s] Submitting case %s", tag, meta.CaseNumber)

	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			logger.Warnf("[Session %s] Submit cancelled: %v", tag, ctx.Err())
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	// The batch may have changed while waiting; re-check and clear atomically.
	filed, _, err := sess.TakeForFiling()
	switch {
	case errors.Is(err, session.ErrEmpty):
		return nil, ErrNoFiles
	case errors.Is(err, session.ErrNotReady):
		return nil, &IncompleteUploadsError{Pending: sess.Snapshot().Pending()}
	case err != nil:
		return nil, err
	}

	conf := g.confirm(meta, filed)
	logger.Infof("[Session %s] Filed %s: %s", tag, conf.Reference, conf.Message)
	return conf, nil
}

func precheck(snap session.Snapshot, meta models.CaseMetadata) error {
	if len(snap.Uploads) == 0 {
		return ErrNoFiles
	}
	if !snap.Ready {
		return &IncompleteUploadsError{Pending: snap.Pending()}
	}
	if missing := meta.MissingFields(); len(missing) > 0 {
		return &MissingMetadataError{Fields: missing}
	}
	return nil
}

func (g *Gate) confirm(meta models.CaseMetadata, filed []models.TrackedUpload) *models.Confirmation {
	docs := make([]models.FiledDocument, 0, len(filed))
	for _, u := range filed {
		docs = append(docs, models.FiledDocument{
			ID:       u.ID,
			Name:     u.Name,
			Size:     u.Size,
			MIMEType: u.MIMEType,
			StoredID: u.StoredID,
		})
	}

	return &models.Confirmation{
		Reference:     uuid.New().String(),
		CaseNumber:    meta.CaseNumber,
		Court:         meta.Court,
		DocumentType:  meta.DocumentType,
		Description:   meta.Description,
		DocumentCount: len(docs),
		Documents:     docs,
		FiledAt:       g.now(),
		Message:       models.ConfirmationMessage(meta.CaseNumber, len(docs)),
	}
}
