// Package returns caches the last fetched tax-return collection locally.
//
// # Overview
//
// The collection is always replaced wholesale, mirroring how the dashboard
// refreshes it, so the Repository has no per-record writes. A
// SQLite-backed implementation (SQLiteRepository) persists rows through a
// dbx.DBTX (either *sql.DB or *sql.Tx) and keeps the server's ordering in a
// position column.
//
// # Concurrency
//
// Safe for concurrent use when backed by a *sql.DB. Run ReplaceAll inside
// dbx.WithTx so readers never see a half-written collection.
//
// Typical Usage
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    return returns.NewSQLiteRepository(tx).ReplaceAll(ctx, records)
//	})
//	cached, _ := returns.NewSQLiteRepository(db).GetAll(ctx)
package returns
