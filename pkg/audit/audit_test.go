package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelgate/modelgate/pkg/storage"
	"github.com/modelgate/modelgate/pkg/storage/memory"
)

func TestRecordAppendsAsync(t *testing.T) {
	store := memory.New()
	l := NewLogger(store, 8)

	l.Record(&storage.AuditEntry{Endpoint: "/chat", Method: "POST", StatusCode: 200})
	l.Record(&storage.AuditEntry{Endpoint: "/models", Method: "GET", StatusCode: 200})
	l.Close()

	entries := store.AuditEntries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	store := memory.New()
	l := NewLogger(store, 8)
	l.Close()

	// Must not panic on the closed channel.
	l.Record(&storage.AuditEntry{Endpoint: "/chat"})

	if n := len(store.AuditEntries()); n != 0 {
		t.Errorf("len(entries) = %d, want 0", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	l := NewLogger(memory.New(), 8)
	l.Close()
	l.Close()
}

// failStore wraps the memory store with an always-failing insert.
type failStore struct {
	*memory.Store
}

func (f *failStore) InsertAudit(context.Context, *storage.AuditEntry) error {
	return errors.New("insert down")
}

func TestInsertFailureIsSwallowed(t *testing.T) {
	l := NewLogger(&failStore{memory.New()}, 8)
	l.Record(&storage.AuditEntry{Endpoint: "/chat"})
	l.Close()
	// Reaching here without a panic or a blocked worker is the contract.
}

func TestFullBufferDropsWithoutBlocking(t *testing.T) {
	// A blocked insert keeps the worker busy so the buffer can fill.
	release := make(chan struct{})
	store := &slowStore{Store: memory.New(), release: release}
	l := NewLogger(store, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.Record(&storage.AuditEntry{Endpoint: "/chat"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	close(release)
	l.Close()
}

type slowStore struct {
	*memory.Store
	release chan struct{}
}

func (s *slowStore) InsertAudit(ctx context.Context, e *storage.AuditEntry) error {
	<-s.release
	return s.Store.InsertAudit(ctx, e)
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"error":"upstream_error","message":"provider failed"}`, "provider failed"},
		{"error only", `{"error":"unauthorized"}`, "unauthorized"},
		{"not json", `<html>bad gateway</html>`, ""},
		{"empty object", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractErrorMessage([]byte(tt.body))
			if tt.want == "" {
				if got != nil {
					t.Errorf("got %q, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("got %v, want %q", got, tt.want)
			}
		})
	}
}
