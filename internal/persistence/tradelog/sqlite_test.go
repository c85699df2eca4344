package tradelog

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"tradepost.gg/internal/market"
	"tradepost.gg/internal/protocol"
	"tradepost.gg/internal/sim/world"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func rec(actor, code string, completed bool) market.AttemptRecord {
	return market.AttemptRecord{
		AtMs:      1700000000000,
		ShopID:    "6f1c2a34-9f4b-4c7e-9be1-0a2b3c4d5e6f",
		Pos:       world.Pos{World: "overworld", X: 10, Y: 64, Z: 10},
		ActorID:   actor,
		Code:      code,
		Completed: completed,
	}
}

func TestRecordAttemptPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "tradelog.db")
	l, err := Open(path, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	l.RecordAttempt(rec("buyer-1", "", true))
	l.RecordAttempt(rec("buyer-2", "", true))
	l.RecordAttempt(rec("buyer-3", protocol.ErrOutOfStock, false))
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Rows survive a process restart.
	l, err = Open(path, discard())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()

	total, err := l.AttemptCount()
	if err != nil {
		t.Fatalf("attempt count: %v", err)
	}
	if total != 3 {
		t.Fatalf("attempts = %d, want 3", total)
	}
	completed, err := l.CompletedCount()
	if err != nil {
		t.Fatalf("completed count: %v", err)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradelog.db")
	l, err := Open(path, discard())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	l.RecordAttempt(rec("buyer-1", "", true)) // must not panic or block

	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", discard()); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
