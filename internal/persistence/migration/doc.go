// Package migration applies versioned SQL schema changes.
//
// Migration files live in an fs.FS (normally an embed.FS) and follow the
// naming convention {version}_{description}.sql, e.g. "001_initial_schema.sql".
// Applied versions are tracked in a schema_migrations table together with the
// file checksum, so an edited migration that was already applied is reported
// instead of silently diverging.
//
// Statements are split on semicolons, except inside quoted strings, comments,
// dollar-quoted bodies and CREATE TRIGGER ... END blocks.
//
// Example usage:
//
//	manager := migration.NewMigrationManager(migration.NewFileScanner(), migration.NewSQLExecutor(db), files, "sqlite", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
