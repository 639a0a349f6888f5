// Package store persists sightings in SQLite. Sighting rows are append-only:
// inserts assign an id and nothing ever updates or deletes them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wardtrack/server/internal/model"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database connection and schema lifecycle.
type Store struct {
	db *sql.DB
}

// Open initializes the database connection, creating directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.db.PingContext(ctx)
}

// InitSchema ensures baseline tables exist.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sightings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mac TEXT NOT NULL,
			rssi INTEGER NOT NULL,
			ts_utc TEXT NOT NULL,
			tag_name TEXT,
			gateway_ip TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_mac_ts ON sightings(mac, ts_utc);`,
		`CREATE TABLE IF NOT EXISTS ingestion_failures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gateway_id TEXT,
			payload TEXT,
			error TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// InsertSighting persists a validated sighting and returns the assigned id.
func (s *Store) InsertSighting(ctx context.Context, sighting model.Sighting) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("store not initialized")
	}

	ts := sighting.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var tagName sql.NullString
	if sighting.TagName != nil {
		tagName = sql.NullString{String: *sighting.TagName, Valid: true}
	}
	var gatewayIP sql.NullString
	if sighting.GatewayIP != nil {
		gatewayIP = sql.NullString{String: *sighting.GatewayIP, Valid: true}
	}

	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sightings (mac, rssi, ts_utc, tag_name, gateway_ip) VALUES (?, ?, ?, ?, ?);`,
		sighting.MAC,
		sighting.RSSI,
		ts.UTC().Format(time.RFC3339Nano),
		tagName,
		gatewayIP,
	)
	if err != nil {
		return 0, fmt.Errorf("insert sighting: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert sighting id: %w", err)
	}
	return id, nil
}

// LatestSighting returns the most recent sighting for a MAC by descending
// timestamp, or nil when the MAC has never been seen.
func (s *Store) LatestSighting(ctx context.Context, mac string) (*model.Sighting, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, mac, rssi, ts_utc, tag_name, gateway_ip
		 FROM sightings
		 WHERE mac = ?
		 ORDER BY ts_utc DESC
		 LIMIT 1;`,
		mac,
	)

	sighting, err := scanSightingRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sighting: %w", err)
	}
	return &sighting, nil
}

// SightingsSince returns sightings for a MAC with timestamp at or after the
// cutoff, newest first, capped at limit rows.
func (s *Store) SightingsSince(ctx context.Context, mac string, cutoff time.Time, limit int) ([]model.Sighting, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, mac, rssi, ts_utc, tag_name, gateway_ip
		 FROM sightings
		 WHERE mac = ? AND ts_utc >= ?
		 ORDER BY ts_utc DESC
		 LIMIT ?;`,
		mac,
		cutoff.UTC().Format(time.RFC3339Nano),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()

	return collectSightings(rows)
}

// RecentSightings returns the most recent sightings across all MACs, newest
// first, optionally bounded below by since.
func (s *Store) RecentSightings(ctx context.Context, limit int, since *time.Time) ([]model.Sighting, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	if limit <= 0 {
		limit = 25
	}

	query := `SELECT id, mac, rssi, ts_utc, tag_name, gateway_ip FROM sightings`
	var args []any
	if since != nil {
		query += ` WHERE ts_utc > ?`
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY ts_utc DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("query recent sightings: %w", err)
	}
	defer rows.Close()

	return collectSightings(rows)
}

// InsertIngestionFailure records a gateway payload that failed validation.
func (s *Store) InsertIngestionFailure(ctx context.Context, failure model.IngestionFailure) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO ingestion_failures (gateway_id, payload, error) VALUES (?, ?, ?);`,
		failure.GatewayID,
		failure.Payload,
		failure.Error,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion failure: %w", err)
	}
	return nil
}

func collectSightings(rows *sql.Rows) ([]model.Sighting, error) {
	var sightings []model.Sighting

	for rows.Next() {
		sighting, err := scanSightingRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sightings = append(sightings, sighting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}

	return sightings, nil
}

func scanSightingRow(scan func(...any) error) (model.Sighting, error) {
	var (
		id        int64
		macAddr   string
		rssi      int
		tsStr     string
		tagName   sql.NullString
		gatewayIP sql.NullString
	)

	if err := scan(&id, &macAddr, &rssi, &tsStr, &tagName, &gatewayIP); err != nil {
		return model.Sighting{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		ts, _ = time.Parse("2006-01-02T15:04:05Z07:00", tsStr)
	}

	sighting := model.Sighting{
		ID:        id,
		MAC:       macAddr,
		RSSI:      rssi,
		Timestamp: ts.UTC(),
	}
	if tagName.Valid {
		name := tagName.String
		sighting.TagName = &name
	}
	if gatewayIP.Valid {
		ip := gatewayIP.String
		sighting.GatewayIP = &ip
	}

	return sighting, nil
}
