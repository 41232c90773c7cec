package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/database"
	"github.com/nerrad567/venuewatch-core/migrations"
)

// testStore holds a migrated in-memory database with one venue and one
// registered device per type: tmd-1, omd-1, aqimd-1 and glmd-1.
type testStore struct {
	db       *database.DB
	repo     *device.SQLiteRepository
	registry *device.Registry
}

func setupStore(t *testing.T) *testStore {
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
	const fixtures = `
		INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org-1', 'Org', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
		INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at) VALUES ('venue-1', 'org-1', 'Venue', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
	`
	if _, err := db.ExecContext(ctx, fixtures); err != nil {
		t.Fatalf("loading fixtures: %v", err)
	}

	repo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(repo, nil)

	for _, dt := range device.AllDeviceTypes() {
		var conditions []device.Condition
		for _, m := range dt.Metrics() {
			v := 30.0
			conditions = append(conditions, device.Condition{Type: m, Operator: ">", Value: &v})
		}
		d := &device.Device{
			DeviceID:   deviceIDFor(dt),
			DeviceType: dt,
			VenueID:    "venue-1",
			Conditions: conditions,
		}
		if err := registry.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice(%s) error = %v", dt, err)
		}
	}

	return &testStore{db: db, repo: repo, registry: registry}
}

func deviceIDFor(dt device.DeviceType) string {
	switch dt {
	case device.DeviceTypeTMD:
		return "tmd-1"
	case device.DeviceTypeOMD:
		return "omd-1"
	case device.DeviceTypeAQIMD:
		return "aqimd-1"
	default:
		return "glmd-1"
	}
}

// rawState returns the stored state document of a device as a map.
func (s *testStore) rawState(t *testing.T, deviceID string) map[string]any {
	t.Helper()
	d, err := s.repo.GetByDeviceID(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("GetByDeviceID(%s) error = %v", deviceID, err)
	}
	var state string
	if err := s.db.QueryRowContext(context.Background(),
		"SELECT state FROM devices WHERE id = ?", d.ID).Scan(&state); err != nil {
		t.Fatalf("reading state: %v", err)
	}
	m, err := decodeObject([]byte(state))
	if err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return m
}

// recordingSink captures accepted updates.
type recordingSink struct {
	mu      sync.Mutex
	updates []Update
	err     error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Accept(_ context.Context, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

var fixedNow = time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC)
