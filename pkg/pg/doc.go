// Package pg wires PostgreSQL into the service: it opens a pgx connection
// pool with retries, applies goose migrations from an fs.FS, classifies
// driver errors and exposes a readiness check.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, account.Migrations, account.MigrationsDir, cfg, log); err != nil {
//		return err
//	}
package pg
