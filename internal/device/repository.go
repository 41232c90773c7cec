package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timestampLayout is fixed width so that stored timestamps sort
// lexically in creation order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Repository defines device persistence.
type Repository interface {
	// GetByID returns ErrDeviceNotFound if no device has the internal id.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByDeviceID returns ErrDeviceNotFound if the deviceId is unknown.
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)

	// List returns all devices in registration order.
	List(ctx context.Context) ([]Device, error)

	// ListByVenue returns the devices of one venue in registration order.
	ListByVenue(ctx context.Context, venueID string) ([]Device, error)

	// ListByVenues returns the devices of any of the venues in
	// registration order.
	ListByVenues(ctx context.Context, venueIDs []string) ([]Device, error)

	// Create returns ErrDeviceExists on a duplicate deviceId or apiKey.
	Create(ctx context.Context, d *Device) error

	// Update rewrites identity, venue, conditions and key. State is not
	// touched. Returns ErrDeviceNotFound or ErrDeviceExists.
	Update(ctx context.Context, d *Device) error

	// Delete returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// PatchState merges patch into the stored state of the device with
	// the given deviceId in one atomic statement. Keys absent from patch
	// keep their stored values. Returns ErrDeviceNotFound if no row matched.
	PatchState(ctx context.Context, deviceID string, patch Patch) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDevice = `
	SELECT id, device_id, venue_id, device_type, conditions, api_key, state, created_at, updated_at
	FROM devices`

const deviceOrder = ` ORDER BY created_at, rowid`

// GetByID retrieves a device by its internal id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	return r.getOne(ctx, selectDevice+` WHERE id = ?`, id)
}

// GetByDeviceID retrieves a device by the identifier it reports.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	return r.getOne(ctx, selectDevice+` WHERE device_id = ?`, deviceID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg string) (*Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, selectDevice+deviceOrder)
}

// ListByVenue retrieves the devices of a venue.
func (r *SQLiteRepository) ListByVenue(ctx context.Context, venueID string) ([]Device, error) {
	return r.queryDevices(ctx, selectDevice+` WHERE venue_id = ?`+deviceOrder, venueID)
}

// ListByVenues retrieves the devices of a set of venues with one query.
func (r *SQLiteRepository) ListByVenues(ctx context.Context, venueIDs []string) ([]Device, error) {
	if len(venueIDs) == 0 {
		return []Device{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(venueIDs)), ",")
	args := make([]any, len(venueIDs))
	for i, id := range venueIDs {
		args[i] = id
	}

	return r.queryDevices(ctx, selectDevice+` WHERE venue_id IN (`+placeholders+`)`+deviceOrder, args...)
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	conditionsJSON, err := json.Marshal(conditionsOrEmpty(d.Conditions))
	if err != nil {
		return fmt.Errorf("marshalling conditions: %w", err)
	}
	stateJSON, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (id, device_id, venue_id, device_type, conditions, api_key, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DeviceID, d.VenueID, string(d.DeviceType),
		string(conditionsJSON), d.APIKey, string(stateJSON),
		now.Format(timestampLayout), now.Format(timestampLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device's registration fields.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	conditionsJSON, err := json.Marshal(conditionsOrEmpty(d.Conditions))
	if err != nil {
		return fmt.Errorf("marshalling conditions: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET device_id = ?, venue_id = ?, conditions = ?, api_key = ?, updated_at = ?
		WHERE id = ?`,
		d.DeviceID, d.VenueID, string(conditionsJSON), d.APIKey, now.Format(timestampLayout), d.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("updating device: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	d.UpdatedAt = now
	return nil
}

// Delete removes a device by internal id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return expectOneRow(result)
}

// PatchState merges patch into the device state with json_patch.
//
// The merge happens inside SQLite in a single UPDATE, so two patches for
// the same device can never interleave into a mixed document, and each
// key is last-write-wins.
func (r *SQLiteRepository) PatchState(ctx context.Context, deviceID string, patch Patch) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshalling state patch: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET state = json_patch(COALESCE(state, '{}'), ?)
		WHERE device_id = ?`,
		string(patchJSON), deviceID,
	)
	if err != nil {
		return fmt.Errorf("patching device state: %w", err)
	}
	return expectOneRow(result)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var deviceType, conditionsJSON, stateJSON, createdAt, updatedAt string

	err := scanner.Scan(&d.ID, &d.DeviceID, &d.VenueID, &deviceType,
		&conditionsJSON, &d.APIKey, &stateJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.DeviceType = DeviceType(deviceType)

	if err := json.Unmarshal([]byte(conditionsJSON), &d.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshalling conditions: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("unmarshalling state: %w", err)
	}

	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func conditionsOrEmpty(c []Condition) []Condition {
	if c == nil {
		return []Condition{}
	}
	return c
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// isUniqueConstraintError reports a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
