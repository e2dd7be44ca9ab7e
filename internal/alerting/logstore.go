package alerting

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lookout/internal/watchlist"
)

// LogRecord is one row of the detection log.
type LogRecord struct {
	ID         string             `json:"id"`
	Date       time.Time          `json:"date"`
	Type       watchlist.FaceType `json:"type"`
	Name       string             `json:"name,omitempty"`
	Similarity float32            `json:"similarity"`
}

// LogStore persists emitted alerts so operators can review detection
// history after the fact.
type LogStore struct {
	db *sql.DB
}

// NewLogStore opens (or creates) the detection log at dbPath.
func NewLogStore(dbPath string) (*LogStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &LogStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewLogStoreWithDB wraps an existing connection, sharing it with other
// stores.
func NewLogStoreWithDB(db *sql.DB) (*LogStore, error) {
	s := &LogStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LogStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS detection_log (
			id TEXT PRIMARY KEY,
			date DATETIME NOT NULL,
			type TEXT NOT NULL,
			name TEXT,
			similarity REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detection_log_date ON detection_log(date DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *LogStore) Close() error {
	return s.db.Close()
}

// Append records an emitted decision and returns the stored row.
func (s *LogStore) Append(decision Decision) (*LogRecord, error) {
	rec := &LogRecord{
		ID:         uuid.New().String(),
		Date:       decision.Time,
		Type:       decision.Mode,
		Name:       decision.Name,
		Similarity: decision.Score,
	}

	query := `INSERT INTO detection_log (id, date, type, name, similarity) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.Exec(query, rec.ID, rec.Date, string(rec.Type), rec.Name, rec.Similarity); err != nil {
		return nil, fmt.Errorf("failed to append detection log: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit log rows, newest first.
func (s *LogStore) Recent(limit int) ([]LogRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, date, type, name, similarity FROM detection_log ORDER BY date DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection log: %w", err)
	}
	defer rows.Close()

	var records []LogRecord
	for rows.Next() {
		var rec LogRecord
		var faceType string
		if err := rows.Scan(&rec.ID, &rec.Date, &faceType, &rec.Name, &rec.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan detection log row: %w", err)
		}
		rec.Type = watchlist.FaceType(faceType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear empties the detection log.
func (s *LogStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM detection_log"); err != nil {
		return fmt.Errorf("failed to clear detection log: %w", err)
	}
	return nil
}
