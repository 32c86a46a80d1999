// Package pg bootstraps PostgreSQL access with pgx/v5 and goose/v3.
//
// Connect opens a *pgxpool.Pool from Config, retrying until the database
// answers a ping. Migrate applies goose migrations from an fs.FS, so schema
// owners can embed their migrations next to the code that queries them:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, migrations, "migrations", log); err != nil {
//		return err
//	}
//
// The error predicates map driver errors to intent: IsNotFoundError for empty
// result sets and IsDuplicateKeyError for unique violations.
package pg
