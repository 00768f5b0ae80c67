package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Commit is a single committed key.
type Commit struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommitRepository stores commits.
type CommitRepository struct {
	db *sql.DB
}

// Commits returns the commit repository for this store.
func (s *Store) Commits() *CommitRepository {
	return &CommitRepository{db: s.db}
}

// Create records c and updates the owning session's text and count.
func (r *CommitRepository) Create(c *Commit) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sessions SET commits = commits + 1, text = ? WHERE id = ?`,
		c.Text, c.SessionID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("session %s: %w", c.SessionID, ErrNotFound)
	}

	result, err = tx.Exec(
		`INSERT INTO commits (session_id, key, text, created_at) VALUES (?, ?, ?, ?)`,
		c.SessionID, c.Key, c.Text, c.CreatedAt,
	)
	if err != nil {
		return err
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return err
	}

	return tx.Commit()
}

// ListBySession returns a session's commits in the order they happened.
func (r *CommitRepository) ListBySession(sessionID string) ([]*Commit, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, key, text, created_at
		 FROM commits WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []*Commit
	for rows.Next() {
		c := &Commit{}
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Key, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return commits, nil
}

// KeyCounts returns how often each key was committed across all sessions.
func (r *CommitRepository) KeyCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT key, COUNT(*) FROM commits GROUP BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
