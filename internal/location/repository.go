package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for location persistence operations.
type Repository interface {
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	SaveOrganization(ctx context.Context, org *Organization) error

	GetVenue(ctx context.Context, id string) (*Venue, error)
	ListVenuesByOrganization(ctx context.Context, organizationID string) ([]Venue, error)
	SaveVenue(ctx context.Context, venue *Venue) error
	VenueExists(ctx context.Context, id string) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// execer is satisfied by *sql.DB and *sql.Tx so upserts can run inside
// the seeding transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetOrganization returns a single organization by ID.
func (r *SQLiteRepository) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	const query = `SELECT id, name, created_at, updated_at FROM organizations WHERE id = ?`
	org, err := scanOrganization(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("scanning organization: %w", err)
	}
	return org, nil
}

// ListOrganizations returns all organizations ordered by name.
func (r *SQLiteRepository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	const query = `SELECT id, name, created_at, updated_at FROM organizations ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	defer rows.Close()

	orgs := []Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organization rows: %w", err)
	}
	return orgs, nil
}

// SaveOrganization inserts an organization or renames an existing one.
func (r *SQLiteRepository) SaveOrganization(ctx context.Context, org *Organization) error {
	return saveOrganization(ctx, r.db, org)
}

func saveOrganization(ctx context.Context, db execer, org *Organization) error {
	if err := ValidateOrganization(org); err != nil {
		return err
	}
	now := formatTime(time.Now())
	const query = `INSERT INTO organizations (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
		WHERE organizations.name <> excluded.name`
	if _, err := db.ExecContext(ctx, query, org.ID, org.Name, now, now); err != nil {
		return fmt.Errorf("saving organization %s: %w", org.ID, err)
	}
	return nil
}

// GetVenue returns a single venue by ID.
func (r *SQLiteRepository) GetVenue(ctx context.Context, id string) (*Venue, error) {
	const query = `SELECT id, organization_id, name, sort_order, created_at, updated_at
		FROM venues WHERE id = ?`
	v, err := scanVenue(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("scanning venue: %w", err)
	}
	return v, nil
}

// ListVenuesByOrganization returns the venues of an organization ordered
// by sort_order then name. An unknown organization yields an empty slice.
func (r *SQLiteRepository) ListVenuesByOrganization(ctx context.Context, organizationID string) ([]Venue, error) {
	const query = `SELECT id, organization_id, name, sort_order, created_at, updated_at
		FROM venues WHERE organization_id = ? ORDER BY sort_order, name`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("querying venues: %w", err)
	}
	defer rows.Close()

	venues := []Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning venue row: %w", err)
		}
		venues = append(venues, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating venue rows: %w", err)
	}
	return venues, nil
}

// SaveVenue inserts a venue or updates its name, owner and order.
func (r *SQLiteRepository) SaveVenue(ctx context.Context, venue *Venue) error {
	return saveVenue(ctx, r.db, venue)
}

func saveVenue(ctx context.Context, db execer, venue *Venue) error {
	if err := ValidateVenue(venue); err != nil {
		return err
	}
	now := formatTime(time.Now())
	const query = `INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			name = excluded.name,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at`
	if _, err := db.ExecContext(ctx, query,
		venue.ID, venue.OrganizationID, venue.Name, venue.SortOrder, now, now); err != nil {
		return fmt.Errorf("saving venue %s: %w", venue.ID, err)
	}
	return nil
}

// VenueExists reports whether a venue with the given ID exists.
func (r *SQLiteRepository) VenueExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM venues WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking venue %s: %w", id, err)
	}
	return exists, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var o Organization
	var createdAt, updatedAt string
	if err := row.Scan(&o.ID, &o.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

func scanVenue(row rowScanner) (*Venue, error) {
	var v Venue
	var createdAt, updatedAt string
	if err := row.Scan(&v.ID, &v.OrganizationID, &v.Name, &v.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)
	return &v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses an RFC 3339 timestamp from SQLite. Zero time is
// returned for values written outside this package in another format.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
