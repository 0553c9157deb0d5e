package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/qanoon/halp/pkg/coreerr"
	"github.com/qanoon/halp/pkg/logger"
	"github.com/qanoon/halp/pkg/redis"
)

// Store coordinates the relational (R) and vector (V) stores:
// add_chunk/update_chunk/delete_chunk/delete_document write both sides
// with explicit rollback on partial failure, and reconcile() repairs
// drift a partial failure couldn't undo in place.
type Store struct {
	R         *RelationalStore
	V         *VectorStore
	repairLog redis.RedisClient
	log       *zap.Logger
}

func New(r *RelationalStore, v *VectorStore, repairLog redis.RedisClient) *Store {
	return &Store{R: r, V: v, repairLog: repairLog, log: logger.Get()}
}

// AddChunk writes the chunk to R then V. If V fails, R is rolled back
// (delete_chunk-style cleanup of the row just inserted). If V succeeds but
// the caller never got a commit acknowledgment from R (R's own write
// already happened synchronously here, so this models "R commit failed"
// as R.InsertChunk returning an error before V is attempted at all).
func (s *Store) AddChunk(ctx context.Context, chunk Chunk, vector []float32) (string, error) {
	chunkID, err := s.R.InsertChunk(ctx, chunk)
	if err != nil {
		return "", coreerr.New(coreerr.KindRelationalWriteFailed, "add_chunk", err)
	}

	rec := VectorRecord{ChunkID: chunkID, DocumentID: chunk.DocumentID, Vector: vector, VectorModelID: chunk.VectorModelID}
	if err := s.V.Upsert(ctx, rec); err != nil {
		if delErr := s.R.DeleteChunk(ctx, chunkID); delErr != nil {
			s.log.Error("add_chunk rollback failed", zap.String("chunk_id", chunkID), zap.Error(delErr))
		}
		return "", coreerr.New(coreerr.KindVectorWriteFailed, "add_chunk", err)
	}
	return chunkID, nil
}

// UpdateChunk rewrites the R row, then replaces the V vector. A partial V
// failure is recorded in the repair log instead of being rolled back in
// place. Reconcile does not read the repair log: it re-embeds a chunk whose
// vector is missing, but an old vector left behind by a failed delete stays.
func (s *Store) UpdateChunk(ctx context.Context, chunkID, newText string, tokenCount int, documentID, vectorModelID string, newVector []float32) error {
	if err := s.R.UpdateChunkText(ctx, chunkID, newText, tokenCount); err != nil {
		return coreerr.New(coreerr.KindRelationalWriteFailed, "update_chunk", err)
	}

	if err := s.V.Delete(ctx, chunkID); err != nil {
		s.recordRepair(ctx, chunkID, "delete_failed")
		return coreerr.New(coreerr.KindVectorWriteFailed, "update_chunk", err)
	}
	rec := VectorRecord{ChunkID: chunkID, DocumentID: documentID, Vector: newVector, VectorModelID: vectorModelID}
	if err := s.V.Upsert(ctx, rec); err != nil {
		s.recordRepair(ctx, chunkID, "insert_failed")
		return coreerr.New(coreerr.KindVectorWriteFailed, "update_chunk", err)
	}
	return nil
}

// DeleteChunk removes from V first, then R; if V fails, R is left intact
// so the chunk is never relationally orphaned from its vector.
func (s *Store) DeleteChunk(ctx context.Context, chunkID string) error {
	if err := s.V.Delete(ctx, chunkID); err != nil {
		return coreerr.New(coreerr.KindVectorWriteFailed, "delete_chunk", err)
	}
	if err := s.R.DeleteChunk(ctx, chunkID); err != nil {
		return coreerr.New(coreerr.KindRelationalWriteFailed, "delete_chunk", err)
	}
	return nil
}

// DeleteDocument removes all owned chunk vectors in one batch, then
// deletes the R rows in cascade order.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	chunkIDs, err := s.R.ChunkIDsForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("delete_document: %w", err)
	}
	if err := s.V.DeleteBatch(ctx, chunkIDs); err != nil {
		return coreerr.New(coreerr.KindVectorWriteFailed, "delete_document", err)
	}
	if err := s.R.DeleteDocument(ctx, documentID); err != nil {
		return coreerr.New(coreerr.KindRelationalWriteFailed, "delete_document", err)
	}
	return nil
}

// Reconcile enumerates R and V chunk IDs for a document: it inserts into V
// any R chunk missing a vector (via embed, supplied by the caller) and
// deletes from V any vector whose chunk_id is no longer in R.
func (s *Store) Reconcile(ctx context.Context, documentID string, embedMissing func(ctx context.Context, chunk Chunk) ([]float32, error)) error {
	rIDs, err := s.R.ChunkIDsForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reconcile: list relational chunk ids: %w", err)
	}
	vIDs, err := s.V.ChunkIDsForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reconcile: list vector chunk ids: %w", err)
	}

	rSet := make(map[string]bool, len(rIDs))
	for _, id := range rIDs {
		rSet[id] = true
	}
	vSet := make(map[string]bool, len(vIDs))
	for _, id := range vIDs {
		vSet[id] = true
	}

	for _, id := range rIDs {
		if vSet[id] {
			continue
		}
		chunk, err := s.R.GetChunk(ctx, id)
		if err != nil {
			return fmt.Errorf("reconcile: load chunk %s: %w", id, err)
		}
		vector, err := embedMissing(ctx, *chunk)
		if err != nil {
			s.log.Warn("reconcile: re-embed failed", zap.String("chunk_id", id), zap.Error(err))
			continue
		}
		if err := s.V.Upsert(ctx, VectorRecord{ChunkID: id, DocumentID: documentID, Vector: vector, VectorModelID: chunk.VectorModelID}); err != nil {
			return fmt.Errorf("reconcile: insert missing vector %s: %w", id, err)
		}
	}

	var staleVectors []string
	for _, id := range vIDs {
		if !rSet[id] {
			staleVectors = append(staleVectors, id)
		}
	}
	if len(staleVectors) > 0 {
		if err := s.V.DeleteBatch(ctx, staleVectors); err != nil {
			return fmt.Errorf("reconcile: delete stale vectors: %w", err)
		}
	}
	return nil
}

func (s *Store) Status(ctx context.Context, documentID string) (Status, error) {
	rIDs, err := s.R.ChunkIDsForDocument(ctx, documentID)
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	vIDs, err := s.V.ChunkIDsForDocument(ctx, documentID)
	if err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}

	rSet := make(map[string]bool, len(rIDs))
	for _, id := range rIDs {
		rSet[id] = true
	}
	vSet := make(map[string]bool, len(vIDs))
	for _, id := range vIDs {
		vSet[id] = true
	}

	var divergent []string
	for _, id := range rIDs {
		if !vSet[id] {
			divergent = append(divergent, id)
		}
	}
	for _, id := range vIDs {
		if !rSet[id] {
			divergent = append(divergent, id)
		}
	}
	const sampleSize = 10
	if len(divergent) > sampleSize {
		divergent = divergent[:sampleSize]
	}

	return Status{SQLChunks: len(rIDs), VectorChunks: len(vIDs), DivergentIDsSample: divergent}, nil
}

func (s *Store) recordRepair(ctx context.Context, chunkID, reason string) {
	if s.repairLog == nil {
		return
	}
	entry := fmt.Sprintf(`{"chunk_id":%q,"reason":%q}`, chunkID, reason)
	if err := s.repairLog.AppendRepairLog(ctx, entry); err != nil {
		s.log.Error("failed to record repair log entry", zap.String("chunk_id", chunkID), zap.Error(err))
	}
}
