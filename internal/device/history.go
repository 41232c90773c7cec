package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History source values.
const (
	HistorySourceWebSocket = "websocket"
	HistorySourceMQTT      = "mqtt"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryEntry is one accepted telemetry update as it was applied.
type HistoryEntry struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Fields    Patch     `json:"fields"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryRepository stores the rolling log of applied updates.
type HistoryRepository interface {
	// Record appends an applied patch for deviceID.
	Record(ctx context.Context, deviceID string, fields Patch, source string) error

	// Recent returns up to limit entries, newest first. The limit is
	// clamped to [1, 200] with a default of 50.
	Recent(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error)

	// Prune deletes entries older than olderThan and reports how many.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on telemetry_history.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a history repository.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// Record inserts a history entry.
func (r *SQLiteHistoryRepository) Record(ctx context.Context, deviceID string, fields Patch, source string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if fields == nil {
		fields = Patch{}
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshalling fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO telemetry_history (id, device_id, fields, source, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), deviceID, string(fieldsJSON), source,
		time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting telemetry history: %w", err)
	}
	return nil
}

// Recent returns the newest history entries for a device.
func (r *SQLiteHistoryRepository) Recent(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, fields, source, created_at
		FROM telemetry_history
		WHERE device_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		var fieldsJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &fieldsJSON, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning telemetry history: %w", err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &e.Fields); err != nil {
			return nil, fmt.Errorf("unmarshalling fields: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating telemetry history: %w", err)
	}
	return entries, nil
}

// Prune deletes history entries older than the retention window.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM telemetry_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting telemetry history: %w", err)
	}
	return result.RowsAffected()
}
