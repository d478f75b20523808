package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/efiling-portal/backend/internal/intake"
	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/models"
	"github.com/efiling-portal/backend/internal/session"
	"github.com/efiling-portal/backend/internal/transfer"
	"github.com/google/uuid"
)

// DefaultSettleDelay is the pause between a finished transfer and success.
const DefaultSettleDelay = 1500 * time.Millisecond

var (
	// ErrTransferTimeout marks an upload that stayed in uploading past the watchdog limit.
	ErrTransferTimeout = errors.New("transfer timed out")
	// ErrTransferInterrupted marks a transfer that stopped reporting before 100%.
	ErrTransferInterrupted = errors.New("transfer ended before completion")
)

var logger = logging.New("upload")

// TransferError is the detail attached to an upload in the error state.
type TransferError struct {
	UploadID string
	Cause    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed: %v", e.Cause)
}

func (e *TransferError) Unwrap() error {
	return e.Cause
}

// Options configures a Manager.
type Options struct {
	Transport transfer.Transport
	Validator *intake.Validator
	// SettleDelay defaults to DefaultSettleDelay when zero.
	SettleDelay time.Duration
	// TransferTimeout bounds the uploading phase; zero disables the watchdog.
	TransferTimeout time.Duration
}

// Result reports the outcome of one intake batch.
type Result struct {
	Accepted []models.TrackedUpload   `json:"accepted"`
	Rejected []*intake.ValidationError `json:"rejected"`
}

// Manager drives every tracked upload through
// uploading -> processing -> success (or error), each on its own goroutine.
type Manager struct {
	transport       transfer.Transport
	validator       *intake.Validator
	settleDelay     time.Duration
	transferTimeout time.Duration

	wg sync.WaitGroup
}

// NewManager creates an upload manager. A nil transport or validator selects the
// simulated transport and the default validator.
func NewManager(opts Options) *Manager {
	if opts.Transport == nil {
		opts.Transport = transfer.NewSimulated(transfer.SimulatedOptions{})
	}
	if opts.Validator == nil {
		opts.Validator = intake.NewValidator(nil, 0)
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}

	return &Manager{
		transport:       opts.Transport,
		validator:       opts.Validator,
		settleDelay:     opts.SettleDelay,
		transferTimeout: opts.TransferTimeout,
	}
}

// Validator returns the validator applied at intake.
func (m *Manager) Validator() *intake.Validator {
	return m.validator
}

// Accept validates a batch, appends the accepted files to sess in input order and
// starts their transfers immediately. Rejected files never touch the session.
func (m *Manager) Accept(sess *session.Session, batch []intake.Candidate) (Result, error) {
	accepted, rejected := m.validator.Split(batch)
	result := Result{
		Accepted: make([]models.TrackedUpload, 0, len(accepted)),
		Rejected: rejected,
	}

	for _, r := range rejected {
		logger.Warnf("[Session %s] Rejected %q: %s", logging.ShortID(sess.ID), r.File, r.Rule)
	}

	for _, c := range accepted {
		rec := models.NewTrackedUpload(uuid.New().String(), c.Name, c.Size, c.MIMEType)
		tr := m.transport.Open(transfer.Source{
			ID:       rec.ID,
			Name:     c.Name,
			Size:     c.Size,
			MIMEType: c.MIMEType,
			Content:  c.Content,
		})

		ctx, cancel := context.WithCancel(context.Background())
		abort := func() {
			cancel()
			tr.Cancel()
		}
		if err := sess.Add(rec, abort); err != nil {
			cancel()
			return result, err
		}
		result.Accepted = append(result.Accepted, rec)

		logger.Infof("[Upload %s] Accepted %s (%d bytes, %s) via %s transport",
			logging.ShortID(rec.ID), rec.Name, rec.Size, rec.MIMEType, m.transport.Name())

		m.wg.Add(1)
		go m.run(ctx, cancel, sess, rec.ID, tr)
	}

	return result, nil
}

// Remove deletes an upload from sess and stops any further transitions for it.
// Removing an upload in any state is allowed; it reports whether the ID existed.
func (m *Manager) Remove(sess *session.Session, id string) bool {
	if !sess.Remove(id) {
		return false
	}
	logger.Infof("[Upload %s] Removed by user", logging.ShortID(id))
	return true
}

// TransportName names the transport moving documents.
func (m *Manager) TransportName() string {
	return m.transport.Name()
}

// Wait blocks until every upload goroutine has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, sess *session.Session, id string, tr transfer.Transfer) {
	defer m.wg.Done()
	defer cancel()

	tag := logging.ShortID(id)

	uploadCtx := ctx
	if m.transferTimeout > 0 {
		var stop context.CancelFunc
		uploadCtx, stop = context.WithTimeout(ctx, m.transferTimeout)
		defer stop()
	}

	transferred := false
	for ev := range tr.Start(uploadCtx) {
		if ev.Err != nil {
			m.fail(sess, id, ev.Err)
			return
		}
		if !applyProgress(sess, id, ev) {
			return
		}
		if ev.Progress >= 100 {
			transferred = true
			break
		}
	}

	if !transferred {
		switch {
		case ctx.Err() != nil:
			// removed or session closed
		case errors.Is(uploadCtx.Err(), context.DeadlineExceeded):
			tr.Cancel()
			m.fail(sess, id, fmt.Errorf("%w after %s", ErrTransferTimeout, m.transferTimeout))
		default:
			m.fail(sess, id, ErrTransferInterrupted)
		}
		return
	}

	logger.Debugf("[Upload %s] Transfer complete, processing", tag)

	timer := time.NewTimer(m.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	sess.Update(id, func(u *models.TrackedUpload) bool {
		if u.Status != models.UploadStatusProcessing {
			return false
		}
		now := time.Now()
		u.Status = models.UploadStatusSuccess
		u.CompletedAt = &now
		logger.Infof("[Upload %s] %s ready", tag, u.Name)
		return true
	})
}

// applyProgress records a progress event. Reaching 100 pins progress and enters
// processing in the same update. It returns false once the upload is gone.
func applyProgress(sess *session.Session, id string, ev transfer.Event) bool {
	return sess.Update(id, func(u *models.TrackedUpload) bool {
		if u.Status != models.UploadStatusUploading {
			return false
		}
		if ev.Stored != nil {
			u.StoredID = ev.Stored.ID
		}
		if ev.Progress >= 100 {
			u.Progress = 100
			u.Status = models.UploadStatusProcessing
			return true
		}
		if ev.Progress <= u.Progress {
			return false
		}
		u.Progress = ev.Progress
		return true
	})
}

// fail moves an upload to error. A record still uploading passes through
// processing first so every record walks uploading -> processing -> terminal.
func (m *Manager) fail(sess *session.Session, id string, cause error) {
	terr := &TransferError{UploadID: id, Cause: cause}
	sess.Update(id, func(u *models.TrackedUpload) bool {
		if u.Status != models.UploadStatusUploading {
			return false
		}
		u.Progress = 100
		u.Status = models.UploadStatusProcessing
		return true
	})
	sess.Update(id, func(u *models.TrackedUpload) bool {
		if u.Status.Terminal() {
			return false
		}
		now := time.Now()
		u.Status = models.UploadStatusError
		u.Progress = 100
		u.Error = terr.Error()
		u.CompletedAt = &now
		return true
	})
	logger.Errorf("[Upload %s] %v", logging.ShortID(id), terr)
}
