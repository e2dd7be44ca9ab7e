package watchlist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists watchlist entries in SQLite. Embeddings are stored as JSON
// float arrays so rows stay inspectable with plain sqlite tooling.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the watchlist database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB wraps an existing connection, sharing it with other stores.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS watchlist (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			embedding TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_type ON watchlist(type)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection so other stores can share it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Insert saves a new watchlist entry.
func (s *Store) Insert(entry *Entry) error {
	if !entry.Type.Valid() {
		return fmt.Errorf("invalid face type %q", entry.Type)
	}

	embJSON, err := json.Marshal(entry.Embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `INSERT INTO watchlist (id, name, embedding, type, created_at)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, entry.ID, entry.Name, string(embJSON), string(entry.Type), entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert watchlist entry: %w", err)
	}
	return nil
}

// Get retrieves a single entry by ID, or nil when it does not exist.
func (s *Store) Get(id string) (*Entry, error) {
	query := `SELECT id, name, embedding, type, created_at FROM watchlist WHERE id = ?`

	var entry Entry
	var embJSON, faceType string
	err := s.db.QueryRow(query, id).Scan(&entry.ID, &entry.Name, &embJSON, &faceType, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist entry: %w", err)
	}

	entry.Type = FaceType(faceType)
	if err := json.Unmarshal([]byte(embJSON), &entry.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return &entry, nil
}

// Delete removes an entry by ID. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM watchlist WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete watchlist entry: %w", err)
	}
	return nil
}

// SnapshotAll returns every entry, embeddings included. Matchers are built
// from a snapshot once per monitoring session; later edits do not affect a
// running session.
func (s *Store) SnapshotAll() ([]Entry, error) {
	query := `SELECT id, name, embedding, type, created_at FROM watchlist ORDER BY created_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var embJSON, faceType string
		if err := rows.Scan(&entry.ID, &entry.Name, &embJSON, &faceType, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entry.Type = FaceType(faceType)
		if err := json.Unmarshal([]byte(embJSON), &entry.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
