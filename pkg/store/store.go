package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/esl-mosaic/pawr-go/pkg/broadcast"
	"github.com/esl-mosaic/pawr-go/pkg/sensor"
	"github.com/esl-mosaic/pawr-go/pkg/slot"
)

// DefaultLimit is the number of rows Recent returns for a non-positive limit.
const DefaultLimit = 100

// Store provides SQLite persistence for collected readings.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ broadcast.Sink = (*Store)(nil)

// Open opens or creates the database at path.
// Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`PRAGMA journal_mode = WAL;`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		received_at DATETIME NOT NULL,
		event_counter INTEGER NOT NULL,
		subevent INTEGER NOT NULL,
		response_slot INTEGER NOT NULL,
		temperature REAL NOT NULL,
		humidity REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_readings_coordinate ON readings(subevent, response_slot);
	CREATE INDEX IF NOT EXISTS idx_readings_received_at ON readings(received_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store inserts one sample.
func (s *Store) Store(ctx context.Context, sample broadcast.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (received_at, event_counter, subevent, response_slot, temperature, humidity)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sample.Received.UTC(), sample.EventCounter,
		sample.Coordinate.Subevent, sample.Coordinate.ResponseSlot,
		sample.Reading.Temperature, sample.Reading.Humidity)
	return err
}

// Recent returns up to limit samples, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]broadcast.Sample, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT received_at, event_counter, subevent, response_slot, temperature, humidity
		FROM readings ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// ByCoordinate returns up to limit samples of one coordinate, newest first.
func (s *Store) ByCoordinate(ctx context.Context, c slot.Coordinate, limit int) ([]broadcast.Sample, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT received_at, event_counter, subevent, response_slot, temperature, humidity
		FROM readings WHERE subevent = ? AND response_slot = ?
		ORDER BY id DESC LIMIT ?
	`, c.Subevent, c.ResponseSlot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// Count returns the number of stored samples.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n)
	return n, err
}

// Prune deletes samples received before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE received_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSamples(rows *sql.Rows) ([]broadcast.Sample, error) {
	var out []broadcast.Sample
	for rows.Next() {
		var (
			sample      broadcast.Sample
			temperature float64
			humidity    float64
		)
		err := rows.Scan(&sample.Received, &sample.EventCounter,
			&sample.Coordinate.Subevent, &sample.Coordinate.ResponseSlot,
			&temperature, &humidity)
		if err != nil {
			return nil, err
		}
		sample.Reading = sensor.Reading{Temperature: float32(temperature), Humidity: float32(humidity)}
		out = append(out, sample)
	}
	return out, rows.Err()
}
