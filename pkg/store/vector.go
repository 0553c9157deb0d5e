package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorStore is the V half of the dual store: {chunk_id -> vector,
// metadata}. Physically backed by pgvector in the same Postgres cluster as
// R, but modeled as an independent store so add_chunk/update_chunk can
// fail and roll back one side without touching the other.
type VectorStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewVectorStore(ctx context.Context, dsn string, dim int) (*VectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect vector store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping vector store: %w", err)
	}
	return &VectorStore{pool: pool, dim: dim}, nil
}

func (v *VectorStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunk_vectors (
			chunk_id UUID PRIMARY KEY,
			document_id UUID NOT NULL,
			vector_model_id TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, v.dim),
		`CREATE INDEX IF NOT EXISTS idx_chunk_vectors_document ON chunk_vectors(document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := v.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate vector store: %w", err)
		}
	}
	return nil
}

func (v *VectorStore) Close() { v.pool.Close() }

func (v *VectorStore) Upsert(ctx context.Context, rec VectorRecord) error {
	_, err := v.pool.Exec(ctx, `INSERT INTO chunk_vectors (chunk_id, document_id, vector_model_id, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding, vector_model_id = EXCLUDED.vector_model_id`,
		rec.ChunkID, rec.DocumentID, rec.VectorModelID, pgvector.NewVector(rec.Vector))
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

func (v *VectorStore) Delete(ctx context.Context, chunkID string) error {
	_, err := v.pool.Exec(ctx, `DELETE FROM chunk_vectors WHERE chunk_id = $1`, chunkID)
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}

func (v *VectorStore) DeleteBatch(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := v.pool.Exec(ctx, `DELETE FROM chunk_vectors WHERE chunk_id = ANY($1)`, chunkIDs)
	if err != nil {
		return fmt.Errorf("delete vector batch: %w", err)
	}
	return nil
}

func (v *VectorStore) ChunkIDsForDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := v.pool.Query(ctx, `SELECT chunk_id FROM chunk_vectors WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list vector chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan vector chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (v *VectorStore) Get(ctx context.Context, chunkID string) (*VectorRecord, error) {
	var rec VectorRecord
	var vec pgvector.Vector
	err := v.pool.QueryRow(ctx, `SELECT chunk_id, document_id, vector_model_id, embedding FROM chunk_vectors WHERE chunk_id = $1`, chunkID).
		Scan(&rec.ChunkID, &rec.DocumentID, &rec.VectorModelID, &vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vector: %w", err)
	}
	rec.Vector = vec.Slice()
	return &rec, nil
}

// ScoredChunk is a nearest-neighbor search result.
type ScoredChunk struct {
	ChunkID    string
	DocumentID string
	Similarity float64
}

// SearchFilters mirrors the filters recognized by semantic_search:
// document_id, document_type, jurisdiction. document_type/jurisdiction are
// resolved against the documents table, so the caller (pkg/search) passes
// the already-resolved set of eligible document IDs when those are set.
type SearchFilters struct {
	DocumentIDs []string // nil means "no restriction"
}

// Search returns the topK chunks by cosine similarity to query, excluding
// chunk IDs in exclude and restricted to filters.DocumentIDs when set.
// Uses pgvector's <=> (cosine distance) operator: similarity = 1 - distance
// for L2-normalized vectors.
func (v *VectorStore) Search(ctx context.Context, query []float32, topK int, exclude []string, filters SearchFilters) ([]ScoredChunk, error) {
	sql := `SELECT chunk_id, document_id, 1 - (embedding <=> $1) AS similarity
		FROM chunk_vectors
		WHERE ($3::uuid[] IS NULL OR document_id = ANY($3))
		  AND ($4::uuid[] IS NULL OR NOT (chunk_id = ANY($4)))
		ORDER BY embedding <=> $1
		LIMIT $2`
	rows, err := v.pool.Query(ctx, sql, pgvector.NewVector(query), topK, nullableUUIDs(filters.DocumentIDs), nullableUUIDs(exclude))
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var s ScoredChunk
		if err := rows.Scan(&s.ChunkID, &s.DocumentID, &s.Similarity); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

func nullableUUIDs(ids []string) any {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
