// Package tradelog keeps a sqlite index of terminal trade attempts. It is a
// read-model convenience: writes go through a single background goroutine
// with a bounded queue, and a full queue drops rows rather than ever stalling
// the callers on the hot path.
package tradelog

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"tradepost.gg/internal/market"
)

const queueDepth = 256

type Log struct {
	db  *sql.DB
	log *log.Logger

	ch   chan market.AttemptRecord
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func Open(path string, logger *log.Logger) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS trade_attempts (
  seq        INTEGER PRIMARY KEY AUTOINCREMENT,
  at_ms      INTEGER NOT NULL,
  shop_id    TEXT NOT NULL,
  world      TEXT NOT NULL,
  x          INTEGER NOT NULL,
  y          INTEGER NOT NULL,
  z          INTEGER NOT NULL,
  actor      TEXT NOT NULL,
  code       TEXT NOT NULL,
  completed  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_attempts_shop ON trade_attempts(shop_id);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	l := &Log{db: db, log: logger, ch: make(chan market.AttemptRecord, queueDepth)}
	l.wg.Add(1)
	go l.writer()
	return l, nil
}

// RecordAttempt enqueues one audit row. Never blocks; rows are dropped (and
// counted) when the queue is full.
func (l *Log) RecordAttempt(rec market.AttemptRecord) {
	if l.closed.Load() {
		return
	}
	select {
	case l.ch <- rec:
	default:
		l.dropped.Add(1)
	}
}

func (l *Log) writer() {
	defer l.wg.Done()
	for rec := range l.ch {
		_, err := l.db.Exec(
			`INSERT INTO trade_attempts (at_ms, shop_id, world, x, y, z, actor, code, completed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.AtMs, rec.ShopID,
			rec.Pos.World, rec.Pos.X, rec.Pos.Y, rec.Pos.Z,
			rec.ActorID, rec.Code, boolInt(rec.Completed),
		)
		if err != nil {
			l.log.Printf("tradelog insert: %v", err)
		}
	}
}

// Close drains the queue and closes the database.
func (l *Log) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		l.wg.Wait()
		if n := l.dropped.Load(); n > 0 {
			l.log.Printf("tradelog dropped %d rows under backpressure", n)
		}
		err = l.db.Close()
	})
	return err
}

// CompletedCount reports how many attempts completed (tests, admin queries).
func (l *Log) CompletedCount() (int, error) {
	row := l.db.QueryRow(`SELECT COUNT(*) FROM trade_attempts WHERE completed = 1`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AttemptCount reports the total number of recorded attempts.
func (l *Log) AttemptCount() (int, error) {
	row := l.db.QueryRow(`SELECT COUNT(*) FROM trade_attempts`)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
