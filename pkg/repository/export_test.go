package repository

import "context"

// DropSchemaForTest removes the tables so tests can simulate a database
// that was never provisioned.
func (r *SQLite) DropSchemaForTest(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DROP TABLE memory_events; DROP TABLE sessions;`)
	return err
}
