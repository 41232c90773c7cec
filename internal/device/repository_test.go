package device

import (
	"context"
	"errors"
	"testing"
)

func createTestDevice(t *testing.T, repo *SQLiteRepository, id, deviceID string, dt DeviceType, venueID string) *Device {
	t.Helper()
	d := newTestDevice(deviceID, dt, venueID)
	d.ID = id
	d.APIKey = GenerateAPIKey(d.DeviceID, d.Conditions)
	d.State = InitialState(dt)
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("Create(%s) error = %v", deviceID, err)
	}
	return d
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	created := createTestDevice(t, repo, "id-1", "omd-1", DeviceTypeOMD, "venue-a")

	got, err := repo.GetByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DeviceID != "omd-1" || got.DeviceType != DeviceTypeOMD || got.VenueID != "venue-a" {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.APIKey != created.APIKey {
		t.Errorf("APIKey = %q, want %q", got.APIKey, created.APIKey)
	}
	if len(got.Conditions) != 3 || *got.Conditions[0].Value != 30 {
		t.Errorf("Conditions = %+v", got.Conditions)
	}
	if got.OdourAlert == nil || *got.OdourAlert {
		t.Errorf("OdourAlert = %v, want false", got.OdourAlert)
	}
	if got.Temperature != nil {
		t.Errorf("Temperature = %v, want nil", *got.Temperature)
	}

	byDeviceID, err := repo.GetByDeviceID(ctx, "omd-1")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if byDeviceID.ID != "id-1" {
		t.Errorf("GetByDeviceID().ID = %q, want id-1", byDeviceID.ID)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := repo.GetByDeviceID(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByDeviceID() error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.PatchState(ctx, "missing", Patch{"temperature": 20.0}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("PatchState() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_CreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	createTestDevice(t, repo, "id-1", "tmd-1", DeviceTypeTMD, "venue-a")

	dup := newTestDevice("tmd-1", DeviceTypeTMD, "venue-b")
	dup.ID = "id-2"
	dup.APIKey = "other-key"
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_PatchStateMergesDisjointFields(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	createTestDevice(t, repo, "id-1", "tmd-1", DeviceTypeTMD, "venue-a")

	if err := repo.PatchState(ctx, "tmd-1", Patch{"temperature": 31.5, "temperatureAlert": true}); err != nil {
		t.Fatalf("PatchState() error = %v", err)
	}
	if err := repo.PatchState(ctx, "tmd-1", Patch{"humidity": 55.0}); err != nil {
		t.Fatalf("PatchState() error = %v", err)
	}

	got, err := repo.GetByDeviceID(ctx, "tmd-1")
	if err != nil {
		t.Fatalf("GetByDeviceID() error = %v", err)
	}
	if got.Temperature == nil || *got.Temperature != 31.5 {
		t.Errorf("Temperature = %v, want 31.5", got.Temperature)
	}
	if got.Humidity == nil || *got.Humidity != 55 {
		t.Errorf("Humidity = %v, want 55", got.Humidity)
	}
	if !got.Alerting(MetricTemperature) {
		t.Error("temperatureAlert lost after second patch")
	}
	if got.HumidityAlert == nil || *got.HumidityAlert {
		t.Errorf("HumidityAlert = %v, want untouched false", got.HumidityAlert)
	}
}

func TestSQLiteRepository_ListByVenues(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	createTestDevice(t, repo, "id-3", "first", DeviceTypeTMD, "venue-a")
	createTestDevice(t, repo, "id-1", "second", DeviceTypeOMD, "venue-b")
	createTestDevice(t, repo, "id-2", "third", DeviceTypeGLMD, "venue-a")

	devices, err := repo.ListByVenues(ctx, []string{"venue-a", "venue-b"})
	if err != nil {
		t.Fatalf("ListByVenues() error = %v", err)
	}
	var order []string
	for _, d := range devices {
		order = append(order, d.DeviceID)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("ListByVenues() order = %v, want registration order", order)
	}

	onlyA, err := repo.ListByVenue(ctx, "venue-a")
	if err != nil {
		t.Fatalf("ListByVenue() error = %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("ListByVenue(venue-a) len = %d, want 2", len(onlyA))
	}

	none, err := repo.ListByVenues(ctx, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("ListByVenues(nil) = %v, %v, want empty", none, err)
	}
}

func TestSQLiteRepository_UpdateKeepsState(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	d := createTestDevice(t, repo, "id-1", "tmd-1", DeviceTypeTMD, "venue-a")

	if err := repo.PatchState(ctx, "tmd-1", Patch{"temperature": 22.0}); err != nil {
		t.Fatalf("PatchState() error = %v", err)
	}

	d.DeviceID = "tmd-1-renamed"
	d.VenueID = "venue-b"
	d.APIKey = GenerateAPIKey(d.DeviceID, d.Conditions)
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DeviceID != "tmd-1-renamed" || got.VenueID != "venue-b" {
		t.Errorf("Update() did not persist identity: %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 22 {
		t.Errorf("Temperature = %v, want state preserved", got.Temperature)
	}

	missing := *d
	missing.ID = "nope"
	if err := repo.Update(ctx, &missing); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update() missing error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	createTestDevice(t, repo, "id-1", "tmd-1", DeviceTypeTMD, "venue-a")

	if err := repo.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "id-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}
}
