// Package database provides the SQL store behind the campus portal.
//
// Two drivers are supported:
//   - sqlite (default): a single file via mattn/go-sqlite3, WAL mode, one writer
//   - postgres: a pooled connection via the pgx stdlib driver
//
// Repositories write portable SQL with ? placeholders; DB rewrites them for
// Postgres. Timestamps are stored as fixed-width UTC TEXT (see TimeLayout) so
// the same scan code works on both drivers.
//
// Schema migrations are goose files embedded by the migrations package,
// one directory per driver.
//
// Usage:
//
//	db, err := database.Open(database.Config{Driver: "sqlite", Path: "./data/campus.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
