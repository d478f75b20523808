// Package transfer moves accepted documents from intake to their destination and
// reports progress while doing so. The upload state machine only sees the Transport
// and Transfer interfaces, so simulated and storage-backed transfers are interchangeable.
package transfer

import (
	"context"

	"github.com/efiling-portal/backend/internal/models"
)

// Source describes the document a transfer moves.
type Source struct {
	ID       string
	Name     string
	Size     int64
	MIMEType string
	Content  []byte
}

// Event is a progress report. Progress is cumulative (0-100). An event with Err
// set is the last one; an event with Progress 100 marks a completed transfer.
type Event struct {
	Progress float64
	Stored   *models.FileInfo
	Err      error
}

// Transfer is a single in-flight document transfer.
type Transfer interface {
	// Start begins the transfer. The returned channel is closed after the final
	// event or when ctx is done.
	Start(ctx context.Context) <-chan Event
	// Cancel aborts the transfer and discards anything it stored. It is safe to
	// call more than once and after completion.
	Cancel()
}

// Transport creates transfers.
type Transport interface {
	Name() string
	Open(src Source) Transfer
}

func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
