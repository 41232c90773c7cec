// Package database provides SQLite connectivity and schema migrations.
//
// Open configures WAL mode, a busy timeout and a single-connection pool.
// Device state patches rely on one statement running at a time, so
// json_patch updates are atomic per device.
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    return err
//	}
package database
