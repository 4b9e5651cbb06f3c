// Package database connects to the folder metadata backend.
//
// Two backends are supported: PostgreSQL through a pgx pool, and SQLite
// through modernc.org/sqlite for development and single-node deployments.
//
//	db, err := database.Open(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "snapsi.db",
//	    Tables: snapsi.Tables{Folders: "snapsi_folders"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	repo := db.GetRepo()
package database
