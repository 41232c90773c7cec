package device

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nerrad567/venuewatch-core/internal/infrastructure/database"
	"github.com/nerrad567/venuewatch-core/migrations"
)

// setupTestDB opens an in-memory database with the full schema and two
// venues, venue-a and venue-b, owned by org-1.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	seed := []string{
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org-1', 'Org One', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		`INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at) VALUES ('venue-a', 'org-1', 'Venue A', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
		`INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at) VALUES ('venue-b', 'org-1', 'Venue B', 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
	}
	for _, q := range seed {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	return db.DB
}

// venueSet is a VenueChecker backed by a fixed set of ids.
type venueSet map[string]bool

func (v venueSet) VenueExists(_ context.Context, id string) (bool, error) {
	return v[id], nil
}

func ptr[T any](v T) *T { return &v }

func cond(metric Metric, op string, value float64) Condition {
	return Condition{Type: metric, Operator: op, Value: &value}
}

// validConditions returns one condition per metric the type reports.
func validConditions(t DeviceType) []Condition {
	var out []Condition
	for _, m := range t.Metrics() {
		out = append(out, cond(m, OperatorGreater, 30))
	}
	return out
}

func newTestDevice(deviceID string, t DeviceType, venueID string) *Device {
	return &Device{
		DeviceID:   deviceID,
		DeviceType: t,
		VenueID:    venueID,
		Conditions: validConditions(t),
	}
}
