package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nerrad567/venuewatch-core/internal/alerts"
	"github.com/nerrad567/venuewatch-core/internal/audit"
	"github.com/nerrad567/venuewatch-core/internal/device"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/database"
	"github.com/nerrad567/venuewatch-core/internal/infrastructure/logging"
	"github.com/nerrad567/venuewatch-core/internal/location"
	"github.com/nerrad567/venuewatch-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv bundles a server with the stores behind it.
type testEnv struct {
	server   *Server
	handler  http.Handler
	registry *device.Registry
	repo     *device.SQLiteRepository
	history  *device.SQLiteHistoryRepository
	audit    *audit.SQLiteRepository
}

// fixtures holds org-1 with venues venue-a and venue-b, and org-2 with none.
const fixtures = `
	INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org-1', 'Org One', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
	INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org-2', 'Org Two', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
	INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at) VALUES ('venue-a', 'org-1', 'Venue A', 0, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
	INSERT INTO venues (id, organization_id, name, sort_order, created_at, updated_at) VALUES ('venue-b', 'org-1', 'Venue B', 1, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z');
`

// newTestEnv creates a Server backed by in-memory SQLite. modify may
// adjust the dependencies before the server is built.
func newTestEnv(t *testing.T, modify func(*Deps)) *testEnv {
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
	if _, err := db.ExecContext(ctx, fixtures); err != nil {
		t.Fatalf("loading fixtures: %v", err)
	}

	locations := location.NewSQLiteRepository(db.DB)
	repo := device.NewSQLiteRepository(db.DB)
	history := device.NewSQLiteHistoryRepository(db.DB)
	registry := device.NewRegistry(repo, locations)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	deps := Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:       logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test"),
		Registry:     registry,
		History:      history,
		Locations:    locations,
		Alerts:       alerts.NewAggregator(locations, repo),
		Audit:        auditRepo,
		HealthChecks: map[string]HealthChecker{"database": db},
		Version:      "test",
	}
	if modify != nil {
		modify(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{
		server:   srv,
		handler:  srv.Handler(),
		registry: registry,
		repo:     repo,
		history:  history,
		audit:    auditRepo,
	}
}

// do sends a request through the router. body is JSON-encoded when not nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// createDevice registers a device with one condition per metric its type reports.
func (e *testEnv) createDevice(t *testing.T, deviceID string, dt device.DeviceType, venueID string) *device.Device {
	t.Helper()

	d := &device.Device{
		DeviceID:   deviceID,
		DeviceType: dt,
		VenueID:    venueID,
		Conditions: conditionsFor(dt),
	}
	if err := e.registry.CreateDevice(context.Background(), d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	return d
}

func conditionsFor(dt device.DeviceType) []device.Condition {
	var out []device.Condition
	for _, m := range dt.Metrics() {
		v := 30.0
		out = append(out, device.Condition{Type: m, Operator: device.OperatorGreater, Value: &v})
	}
	return out
}

// decode unmarshals a response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

// errorOf decodes the error envelope of a response.
func errorOf(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body.Error
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
