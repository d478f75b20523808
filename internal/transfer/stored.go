package transfer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/efiling-portal/backend/internal/logging"
	"github.com/efiling-portal/backend/internal/storage"
)

// DefaultReportEvery is how many bytes pass between progress events.
const DefaultReportEvery = 256 * 1024

var logger = logging.New("transfer")

// ErrNoContent is reported when a storage-backed transfer has nothing to write.
var ErrNoContent = errors.New("document content not available")

// Stored streams document content into a storage.Store.
type Stored struct {
	store       storage.Store
	reportEvery int64
}

// NewStored creates a storage-backed transport. reportEvery <= 0 selects the default.
func NewStored(store storage.Store, reportEvery int64) *Stored {
	if reportEvery <= 0 {
		reportEvery = DefaultReportEvery
	}
	return &Stored{store: store, reportEvery: reportEvery}
}

func (s *Stored) Name() string { return "store" }

func (s *Stored) Open(src Source) Transfer {
	return &storedTransfer{parent: s, src: src}
}

type storedTransfer struct {
	parent *Stored
	src    Source

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
	storedID  string
}

func (t *storedTransfer) Start(ctx context.Context) <-chan Event {
	events := make(chan Event)

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		close(events)
		return events
	}
	ctx, t.cancel = context.WithCancel(ctx)
	cancel := t.cancel
	t.mu.Unlock()

	go func() {
		defer close(events)
		defer cancel()

		if t.src.Content == nil {
			send(ctx, events, Event{Err: ErrNoContent})
			return
		}

		total := int64(len(t.src.Content))
		pr := &progressReader{
			r:     bytes.NewReader(t.src.Content),
			every: t.parent.reportEvery,
			report: func(read int64) {
				if total == 0 {
					return
				}
				pct := float64(read) * 100 / float64(total)
				if pct > 99 {
					pct = 99
				}
				send(ctx, events, Event{Progress: pct})
			},
		}

		info, err := t.parent.store.Save(ctx, t.src.Name, t.src.MIMEType, pr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, events, Event{Err: err})
			return
		}

		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			t.discard(info.ID)
			return
		}
		t.storedID = info.ID
		t.mu.Unlock()

		send(ctx, events, Event{Progress: 100, Stored: info})
	}()

	return events
}

func (t *storedTransfer) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	id := t.storedID
	if t.cancel != nil {
		t.cancel()
	}
	t.mu.Unlock()

	if id != "" {
		t.discard(id)
	}
}

func (t *storedTransfer) discard(id string) {
	if err := t.parent.store.Delete(context.Background(), id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warnf("[Transfer %s] failed to discard stored document %s: %v", logging.ShortID(t.src.ID), id, err)
	}
}

// progressReader calls report every time another `every` bytes have been read.
type progressReader struct {
	r      io.Reader
	every  int64
	report func(read int64)

	read       int64
	lastReport int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.read-p.lastReport >= p.every {
		p.lastReport = p.read
		p.report(p.read)
	}
	return n, err
}
