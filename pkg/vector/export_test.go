package vector

import "context"

// TruncateForTest empties the table so integration tests start clean.
func (s *PostgresStore) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE vector_documents`)
	return err
}
