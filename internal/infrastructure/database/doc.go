// Package database provides SQLite connectivity for the camera inventory.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying versioned migrations from an fs.FS
//   - Health checks
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a
// default, and every .up.sql has a matching .down.sql.
package database
