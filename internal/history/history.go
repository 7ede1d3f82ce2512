// Package history persists session transcripts in SQLite.
// If opening the DB or executing queries fails, the store falls back to
// in-memory storage so a chat never breaks over persistence.
package history

import (
	"database/sql"
	"encoding/json"
	"slices"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/triage-go/internal/logger"
)

// Store keeps transcript messages per session.
type Store struct {
	mu       sync.Mutex
	messages []Message // in-memory fallback

	db *sql.DB
}

// Open opens the SQLite database at path and creates the messages table if
// it doesn't exist. An empty path, or any failure, yields a memory-only store.
func Open(path string) *Store {
	s := &Store{}
	if path == "" {
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL,
        session_id TEXT NOT NULL,
        sender TEXT NOT NULL,
        text TEXT NOT NULL,
        actions TEXT,
        created_at DATETIME
    );`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		_ = db.Close()
		return s
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	s.db = db
	return s
}

// Persistent reports whether messages reach SQLite.
func (s *Store) Persistent() bool {
	return s.db != nil
}

// Save persists a message to SQLite when available and always keeps an
// in-memory copy as fallback.
func (s *Store) Save(msg Message) {
	if s.db != nil {
		actions, err := json.Marshal(msg.Actions)
		if err == nil {
			_, err = s.db.Exec(`INSERT INTO messages (id, session_id, sender, text, actions, created_at) VALUES (?,?,?,?,?,?);`,
				msg.ID, msg.SessionID, string(msg.Sender), msg.Text, string(actions), msg.CreatedAt)
		}
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// List returns all messages of a session in chronological order.
func (s *Store) List(sessionID string) []Message {
	if s.db != nil {
		out, err := s.query(sessionID)
		if err == nil {
			return out
		}
		logger.L.Warn("sqlite history query failed; reading from memory", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out
}

// Sessions lists the session ids with at least one stored message.
func (s *Store) Sessions() []string {
	if s.db != nil {
		rows, err := s.db.Query(`SELECT session_id FROM messages GROUP BY session_id ORDER BY MIN(seq) ASC;`)
		if err == nil {
			defer rows.Close()
			var out []string
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err == nil {
					out = append(out, id)
				}
			}
			return out
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		if !slices.Contains(out, m.SessionID) {
			out = append(out, m.SessionID)
		}
	}
	return out
}

func (s *Store) query(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`SELECT id, session_id, sender, text, actions, created_at FROM messages WHERE session_id = ? ORDER BY seq ASC;`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			sender  string
			actions sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &sender, &m.Text, &actions, &m.CreatedAt); err != nil {
			continue
		}
		m.Sender = Sender(sender)
		if actions.Valid && actions.String != "" && actions.String != "null" {
			_ = json.Unmarshal([]byte(actions.String), &m.Actions)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
