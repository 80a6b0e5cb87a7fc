package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"domo/internal/domain"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceExists   = errors.New("device_key already exists")
)

// Store is the device and room registry backing the interpreter vocabulary.
// The interpreter itself never touches the pool; it consumes Snapshot at
// startup and on explicit reload.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			device_key TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'other',
			room TEXT NOT NULL DEFAULT '',
			aliases JSONB NOT NULL DEFAULT '[]'::jsonb,
			endpoints JSONB NOT NULL DEFAULT '{}'::jsonb,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_room ON devices(room) WHERE is_active;`,
		`CREATE TABLE IF NOT EXISTS rooms (
			room_key TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			aliases JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS interpretation_log (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			original_text TEXT NOT NULL,
			intent TEXT NOT NULL,
			device_key TEXT,
			negated BOOLEAN NOT NULL,
			source TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interpretation_log_created ON interpretation_log(created_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListDevices(ctx context.Context) ([]domain.DeviceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT device_key, name, category, room, aliases, endpoints
		FROM devices
		WHERE is_active
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDevices(rows)
}

func (s *Store) GetDevice(ctx context.Context, deviceKey string) (domain.DeviceRecord, error) {
	var rec domain.DeviceRecord
	var category string
	var aliasesRaw, endpointsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT device_key, name, category, room, aliases, endpoints
		FROM devices
		WHERE device_key=$1 AND is_active
	`, deviceKey).Scan(&rec.DeviceKey, &rec.Name, &category, &rec.Room, &aliasesRaw, &endpointsRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DeviceRecord{}, ErrDeviceNotFound
	}
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	rec.Category = domain.ParseCategory(category)
	if err := json.Unmarshal(aliasesRaw, &rec.Aliases); err != nil {
		return domain.DeviceRecord{}, err
	}
	if err := json.Unmarshal(endpointsRaw, &rec.Endpoints); err != nil {
		return domain.DeviceRecord{}, err
	}
	return rec, nil
}

func (s *Store) CreateDevice(ctx context.Context, rec domain.DeviceRecord) (domain.DeviceRecord, error) {
	key := strings.TrimSpace(rec.DeviceKey)
	if key == "" {
		return domain.DeviceRecord{}, fmt.Errorf("device_key is required")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return domain.DeviceRecord{}, fmt.Errorf("name is required")
	}
	aliasesRaw, err := json.Marshal(emptyIfNil(rec.Aliases))
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	endpointsRaw, err := json.Marshal(rec.Endpoints)
	if err != nil {
		return domain.DeviceRecord{}, err
	}

	// Re-creating a soft-deleted key revives it with the new definition.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO devices(device_key, name, category, room, aliases, endpoints)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
		ON CONFLICT (device_key) DO UPDATE SET
			name=EXCLUDED.name,
			category=EXCLUDED.category,
			room=EXCLUDED.room,
			aliases=EXCLUDED.aliases,
			endpoints=EXCLUDED.endpoints,
			is_active=TRUE,
			updated_at=NOW()
		WHERE NOT devices.is_active
	`, key, rec.Name, string(domain.ParseCategory(string(rec.Category))), rec.Room, string(aliasesRaw), string(endpointsRaw))
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.DeviceRecord{}, ErrDeviceExists
	}
	return s.GetDevice(ctx, key)
}

func (s *Store) UpdateDevice(ctx context.Context, deviceKey string, upd domain.DeviceUpdateRequest) (domain.DeviceRecord, error) {
	current, err := s.GetDevice(ctx, deviceKey)
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	if upd.Name != nil {
		current.Name = *upd.Name
	}
	if upd.Category != nil {
		current.Category = domain.ParseCategory(*upd.Category)
	}
	if upd.Room != nil {
		current.Room = *upd.Room
	}
	if upd.Aliases != nil {
		current.Aliases = *upd.Aliases
	}
	if upd.Endpoints != nil {
		current.Endpoints = *upd.Endpoints
	}

	aliasesRaw, err := json.Marshal(emptyIfNil(current.Aliases))
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	endpointsRaw, err := json.Marshal(current.Endpoints)
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET name=$2, category=$3, room=$4, aliases=$5::jsonb, endpoints=$6::jsonb, updated_at=NOW()
		WHERE device_key=$1 AND is_active
	`, deviceKey, current.Name, string(current.Category), current.Room, string(aliasesRaw), string(endpointsRaw))
	if err != nil {
		return domain.DeviceRecord{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.DeviceRecord{}, ErrDeviceNotFound
	}
	return current, nil
}

// DeleteDevice soft-deletes; the key stays reserved and history keeps its
// reference.
func (s *Store) DeleteDevice(ctx context.Context, deviceKey string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE devices
		SET is_active=FALSE, updated_at=NOW()
		WHERE device_key=$1 AND is_active
	`, deviceKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.RoomRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT room_key, name, aliases
		FROM rooms
		ORDER BY room_key ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomRecord
	for rows.Next() {
		var rec domain.RoomRecord
		var aliasesRaw []byte
		if err := rows.Scan(&rec.RoomKey, &rec.Name, &aliasesRaw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(aliasesRaw, &rec.Aliases); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot loads everything the vocabulary table needs in one call.
func (s *Store) Snapshot(ctx context.Context) ([]domain.DeviceRecord, []domain.RoomRecord, error) {
	devices, err := s.ListDevices(ctx)
	if err != nil {
		return nil, nil, err
	}
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, nil, err
	}
	return devices, rooms, nil
}

// LogInterpretation records the outcome of one request. Best effort from the
// caller's point of view; failures here must not fail the request.
func (s *Store) LogInterpretation(ctx context.Context, requestID, originalText string, result domain.Interpretation) error {
	var deviceKey any
	if result.Device != "" {
		deviceKey = result.Device
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO interpretation_log(request_id, original_text, intent, device_key, negated, source)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, requestID, originalText, string(result.Intent), deviceKey, result.Negated, string(result.Source))
	return err
}

// RecentInterpretations returns the latest log entries, newest first.
func (s *Store) RecentInterpretations(ctx context.Context, limit int) ([]InterpretationEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT request_id, original_text, intent, COALESCE(device_key, ''), negated, source, created_at
		FROM interpretation_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]InterpretationEntry, 0, limit)
	for rows.Next() {
		var e InterpretationEntry
		if err := rows.Scan(&e.RequestID, &e.OriginalText, &e.Intent, &e.DeviceKey, &e.Negated, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type InterpretationEntry struct {
	RequestID    string    `json:"request_id"`
	OriginalText string    `json:"original_text"`
	Intent       string    `json:"intent"`
	DeviceKey    string    `json:"device_key,omitempty"`
	Negated      bool      `json:"negated"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

func scanDevices(rows pgx.Rows) ([]domain.DeviceRecord, error) {
	var out []domain.DeviceRecord
	for rows.Next() {
		var rec domain.DeviceRecord
		var category string
		var aliasesRaw, endpointsRaw []byte
		if err := rows.Scan(&rec.DeviceKey, &rec.Name, &category, &rec.Room, &aliasesRaw, &endpointsRaw); err != nil {
			return nil, err
		}
		rec.Category = domain.ParseCategory(category)
		if err := json.Unmarshal(aliasesRaw, &rec.Aliases); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(endpointsRaw, &rec.Endpoints); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
