package database

import (
	"context"
	"fmt"
)

// InitSchema ensures the pgvector extension and the embeddings table for the
// given collection exist. Safe to call on every startup.
func (db *PostgresDB) InitSchema(ctx context.Context, collection string, dimension int) error {
	if _, err := db.Pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, collection, dimension)

	if _, err := db.Pool.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("failed to create table %s: %w", collection, err)
	}

	// HNSW supports up to 2000 dimensions; above that we fall back to exact
	// search (slower but correct).
	if dimension <= 2000 {
		indexQuery := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)
		`, collection, collection)

		if _, err := db.Pool.Exec(ctx, indexQuery); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", collection, err)
		}
	}

	return nil
}
