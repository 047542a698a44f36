// Package transcript records a session's spoken lines and stack
// transitions to sqlite. The protocol itself is stateless; the
// transcript exists so a session can be reviewed or replayed after the
// fact (what did the user hear, which menus were up when).
package transcript

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"skald.games/internal/protocol"
)

// Store is a single-writer transcript database. Records are queued onto
// a channel and written by one goroutine so the session loop never
// blocks on disk.
type Store struct {
	db        *sql.DB
	sessionID string

	ch   chan rec
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Int64
}

type recKind int

const (
	recStack recKind = iota + 1
	recService
)

type rec struct {
	kind recKind
	at   time.Time

	revision uint64
	stack    []byte

	service   string
	text      string
	interrupt bool
}

func Open(path, sessionID string) (*Store, error) {
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
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:        db,
		sessionID: sessionID,
		// Speech comes in bursts (menu reads); a generous buffer keeps
		// the session loop from ever waiting on the writer.
		ch: make(chan rec, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload; NORMAL is plenty durable for
	// an observational record.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stack_updates (
			session_id TEXT NOT NULL,
			revision   INTEGER NOT NULL,
			at         TEXT NOT NULL,
			stack      TEXT NOT NULL,
			PRIMARY KEY (session_id, revision)
		);`,
		`CREATE TABLE IF NOT EXISTS service_requests (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			at         TEXT NOT NULL,
			kind       TEXT NOT NULL,
			text       TEXT NOT NULL DEFAULT '',
			interrupt  INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_session ON service_requests(session_id, seq);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// RecordStack implements uistack.Recorder. Records are dropped, not
// blocked on, when the writer falls behind.
func (s *Store) RecordStack(revision uint64, stack protocol.UiStack) {
	if s.closed.Load() {
		return
	}
	b, err := json.Marshal(stack)
	if err != nil {
		return
	}
	s.offer(rec{kind: recStack, at: time.Now().UTC(), revision: revision, stack: b})
}

// RecordService implements uistack.Recorder.
func (s *Store) RecordService(req protocol.ServiceRequest) {
	if s.closed.Load() {
		return
	}
	r := rec{kind: recService, at: time.Now().UTC()}
	switch {
	case req.Speak != nil:
		r.service = "speak"
		r.text = req.Speak.Text
		r.interrupt = req.Speak.Interrupt
	case req.Shutdown != nil:
		r.service = "shutdown"
	default:
		return
	}
	s.offer(r)
}

func (s *Store) offer(r rec) {
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded because the writer
// could not keep up.
func (s *Store) Dropped() int64 { return s.dropped.Load() }

func (s *Store) loop() {
	for r := range s.ch {
		switch r.kind {
		case recStack:
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO stack_updates(session_id, revision, at, stack) VALUES(?,?,?,?)`,
				s.sessionID, int64(r.revision), r.at.Format(time.RFC3339Nano), string(r.stack),
			)
		case recService:
			_, _ = s.db.Exec(
				`INSERT INTO service_requests(session_id, at, kind, text, interrupt) VALUES(?,?,?,?,?)`,
				s.sessionID, r.at.Format(time.RFC3339Nano), r.service, r.text, boolToInt(r.interrupt),
			)
		}
	}
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// StackUpdate is one recorded stack revision.
type StackUpdate struct {
	SessionID string
	Revision  uint64
	At        time.Time
	Stack     protocol.UiStack
}

// ServiceEntry is one recorded service request.
type ServiceEntry struct {
	Seq       int64
	SessionID string
	At        time.Time
	Kind      string
	Text      string
	Interrupt bool
}

// ReadUpdates loads the recorded stack revisions for a session, oldest
// first. sessionID "" means all sessions.
func ReadUpdates(path, sessionID string) ([]StackUpdate, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT session_id, revision, at, stack FROM stack_updates
		 WHERE (? = '' OR session_id = ?) ORDER BY session_id, revision`,
		sessionID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StackUpdate
	for rows.Next() {
		var u StackUpdate
		var rev int64
		var at, stack string
		if err := rows.Scan(&u.SessionID, &rev, &at, &stack); err != nil {
			return nil, err
		}
		u.Revision = uint64(rev)
		if u.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", at, err)
		}
		if err := json.Unmarshal([]byte(stack), &u.Stack); err != nil {
			return nil, fmt.Errorf("bad stack json: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ReadServices loads the recorded service requests for a session in
// execution order. sessionID "" means all sessions.
func ReadServices(path, sessionID string) ([]ServiceEntry, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT seq, session_id, at, kind, text, interrupt FROM service_requests
		 WHERE (? = '' OR session_id = ?) ORDER BY seq`,
		sessionID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceEntry
	for rows.Next() {
		var e ServiceEntry
		var at string
		var interrupt int
		if err := rows.Scan(&e.Seq, &e.SessionID, &at, &e.Kind, &e.Text, &interrupt); err != nil {
			return nil, err
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", at, err)
		}
		e.Interrupt = interrupt != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
