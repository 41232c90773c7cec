package location

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerrad567/venuewatch-core/internal/infrastructure/config"
)

// Seed upserts the configured organizations and venues in a single
// transaction. Venue sort order follows their position in the config.
// Rows not named in seed are left alone, so devices never lose their venue.
func (r *SQLiteRepository) Seed(ctx context.Context, seed config.SeedConfig, logger *slog.Logger) error {
	if len(seed.Organizations) == 0 {
		logger.Info("no organizations configured, skipping seed")
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	venueCount := 0
	for _, o := range seed.Organizations {
		if err := saveOrganization(ctx, tx, &Organization{ID: o.ID, Name: o.Name}); err != nil {
			return err
		}
		for i, v := range o.Venues {
			venue := &Venue{ID: v.ID, OrganizationID: o.ID, Name: v.Name, SortOrder: i}
			if err := saveVenue(ctx, tx, venue); err != nil {
				return err
			}
			venueCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}

	logger.Info("locations seeded",
		"organizations", len(seed.Organizations),
		"venues", venueCount,
	)
	return nil
}
