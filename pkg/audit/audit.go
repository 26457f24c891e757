// Package audit records every completed request to the durable store,
// asynchronously relative to the response path. Recording is best-effort:
// a full buffer drops the entry, a failed insert is logged and swallowed,
// and neither ever surfaces to the caller.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/modelgate/modelgate/pkg/observability"
	"github.com/modelgate/modelgate/pkg/storage"
)

const insertTimeout = 5 * time.Second

// Logger appends audit entries through a buffered channel drained by a
// single background worker.
type Logger struct {
	store storage.Store
	ch    chan *storage.AuditEntry
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewLogger creates a logger with the given buffer size and starts its
// worker. A bufferSize of 0 selects a default of 256.
func NewLogger(store storage.Store, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	l := &Logger{
		store: store,
		ch:    make(chan *storage.AuditEntry, bufferSize),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Record queues one entry for appending. It never blocks and never fails:
// when the buffer is full the entry is dropped and counted.
func (l *Logger) Record(e *storage.AuditEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	select {
	case l.ch <- e:
	default:
		observability.AuditDroppedTotal.Inc()
		slog.Warn("audit buffer full, dropping entry", "endpoint", e.Endpoint)
	}
}

// Close stops accepting entries and drains the buffer.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Logger) run() {
	defer l.wg.Done()
	for e := range l.ch {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := l.store.InsertAudit(ctx, e); err != nil {
			observability.AuditDroppedTotal.Inc()
			slog.Warn("audit insert failed", "endpoint", e.Endpoint, "error", err)
		}
		cancel()
	}
}

// ExtractErrorMessage pulls the human message out of an error response body.
// Best-effort: an unparseable body yields nil, never an error.
func ExtractErrorMessage(body []byte) *string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.Message != "" {
		return &envelope.Message
	}
	if envelope.Error != "" {
		return &envelope.Error
	}
	return nil
}
