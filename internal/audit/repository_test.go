package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/venuewatch-core/internal/infrastructure/database"
	"github.com/nerrad567/venuewatch-core/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecordAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionCreate, EntityType: EntityDevice, EntityID: "dev-1", Actor: "alice", CreatedAt: base},
		{Action: ActionRekey, EntityType: EntityDevice, EntityID: "dev-1", Actor: "alice",
			Details: map[string]any{"deviceId": "omd-1"}, CreatedAt: base.Add(time.Minute)},
		{Action: ActionCreate, EntityType: EntityDevice, EntityID: "dev-2", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" || e.Source != SourceAPI {
			t.Errorf("Record() left id %q source %q", e.ID, e.Source)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
	}{
		{"all newest first", Filter{}, 3, "dev-2"},
		{"by entity", Filter{EntityID: "dev-1"}, 2, "dev-1"},
		{"by action", Filter{Action: ActionCreate}, 2, "dev-2"},
		{"by type and action", Filter{EntityType: EntityDevice, Action: ActionRekey}, 1, "dev-1"},
		{"no match", Filter{Action: ActionDelete}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if page.Total != tt.wantTotal || len(page.Entries) != tt.wantTotal {
				t.Fatalf("List() total = %d, len = %d, want %d", page.Total, len(page.Entries), tt.wantTotal)
			}
			if tt.wantTotal > 0 && page.Entries[0].EntityID != tt.wantFirst {
				t.Errorf("first entity = %q, want %q", page.Entries[0].EntityID, tt.wantFirst)
			}
		})
	}

	page, err := repo.List(ctx, Filter{Action: ActionRekey})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := page.Entries[0]
	if got.Actor != "alice" || got.Details["deviceId"] != "omd-1" || !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("entry = %+v", got)
	}
}

func TestListPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, &Entry{Action: ActionUpdate, EntityType: EntityDevice}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	page, err := repo.List(ctx, Filter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 || len(page.Entries) != 1 || page.Limit != 2 || page.Offset != 4 {
		t.Errorf("page = total %d, len %d, limit %d, offset %d", page.Total, len(page.Entries), page.Limit, page.Offset)
	}

	page, err = repo.List(ctx, Filter{Limit: 1000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Limit != maxLimit || page.Offset != 0 {
		t.Errorf("clamped limit = %d offset = %d", page.Limit, page.Offset)
	}
}

func TestRecordRequiresActionAndType(t *testing.T) {
	repo := setupRepo(t)
	if err := repo.Record(context.Background(), &Entry{EntityType: EntityDevice}); err == nil {
		t.Error("Record() without action error = nil")
	}
	if err := repo.Record(context.Background(), &Entry{Action: ActionCreate}); err == nil {
		t.Error("Record() without entity type error = nil")
	}
}
