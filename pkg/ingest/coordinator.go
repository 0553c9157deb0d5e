// Package ingest orchestrates normalize -> classify -> TOC-suppress ->
// reconstruct -> chunk -> embed -> dual-write for one Document, handling
// duplicate detection, orphan cleanup, per-document locking, and rollback
// on partial failure.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qanoon/halp/pkg/chunking"
	"github.com/qanoon/halp/pkg/classifier"
	"github.com/qanoon/halp/pkg/clients/embedding"
	"github.com/qanoon/halp/pkg/config"
	"github.com/qanoon/halp/pkg/coreerr"
	"github.com/qanoon/halp/pkg/hierarchy"
	"github.com/qanoon/halp/pkg/logger"
	"github.com/qanoon/halp/pkg/redis"
	"github.com/qanoon/halp/pkg/storage"
	"github.com/qanoon/halp/pkg/store"
	"github.com/qanoon/halp/pkg/textnorm"
	"github.com/qanoon/halp/pkg/toc"
)

const lockTTL = 5 * time.Minute

// Coordinator is the ingest orchestrator.
type Coordinator struct {
	rel      *store.RelationalStore
	dual     *store.Store
	archive  storage.SourceArchive
	embedder *embedding.Service
	locker   redis.RedisClient

	tocCfg     toc.Config
	chunkCfg   chunking.Config
	vectorModelID string

	log *zap.Logger
}

func NewCoordinator(rel *store.RelationalStore, dual *store.Store, archive storage.SourceArchive, embedder *embedding.Service, locker redis.RedisClient, cfg config.Config) *Coordinator {
	return &Coordinator{
		rel:           rel,
		dual:          dual,
		archive:       archive,
		embedder:      embedder,
		locker:        locker,
		tocCfg:        toc.Config{SubstantialRun: cfg.Parser.TOCSubstantialRun, ContentThreshold: cfg.Parser.ContentThreshold},
		chunkCfg:      chunking.Config{TargetTokens: cfg.Chunking.TargetTokens, MaxTokens: cfg.Chunking.MaxTokens, OverlapTokens: cfg.Chunking.OverlapTokens},
		vectorModelID: cfg.Services.Embedding.VectorModelID,
		log:           logger.Get(),
	}
}

// Request is one ingest call's input.
type Request struct {
	DisplayName  string
	DocType      store.DocumentType
	Jurisdiction string
	IssueDate    *time.Time
	SourceText   string
}

// Result summarizes a successful ingest.
type Result struct {
	DocumentID   string
	ContentHash  string
	ArticleCount int
	ChunkCount   int
	Diagnostics  []hierarchy.Diagnostic
}

// Ingest runs the full classify-to-store pipeline for one document.
func (c *Coordinator) Ingest(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, coreerr.New(coreerr.KindInvalidInput, "ingest", fmt.Errorf("source text is empty"))
	}

	contentHash := hashNormalized(req.SourceText)

	token, ok, err := c.locker.TryLock(ctx, lockKey(contentHash), lockTTL)
	if err != nil {
		return nil, coreerr.New(coreerr.KindVectorWriteFailed, "ingest", fmt.Errorf("acquire ingest lock: %w", err))
	}
	if !ok {
		return nil, coreerr.New(coreerr.KindDuplicateDocument, "ingest", fmt.Errorf("document with content hash %s is already being ingested", contentHash))
	}
	defer func() {
		if uerr := c.locker.Unlock(context.Background(), lockKey(contentHash), token); uerr != nil {
			c.log.Warn("ingest lock release failed", zap.String("content_hash", contentHash), zap.Error(uerr))
		}
	}()

	documentID, err := c.resolveDocumentRoot(ctx, contentHash, req)
	if err != nil {
		return nil, err
	}

	result, ingestErr := c.runPipeline(ctx, documentID, contentHash, req)
	if ingestErr != nil {
		reason := ingestErr.Error()
		if setErr := c.rel.SetDocumentStatus(ctx, documentID, store.StatusFailed, reason); setErr != nil {
			c.log.Error("failed to record failure status", zap.String("document_id", documentID), zap.Error(setErr))
		}
		if delErr := c.dual.DeleteDocument(ctx, documentID); delErr != nil {
			c.log.Error("rollback delete_document failed", zap.String("document_id", documentID), zap.Error(delErr))
		}
		return nil, ingestErr
	}

	if err := c.rel.SetDocumentStatus(ctx, documentID, store.StatusProcessed, ""); err != nil {
		return nil, fmt.Errorf("ingest: mark processed: %w", err)
	}
	if c.archive != nil {
		normalized := textnorm.NormalizeString(req.SourceText, textnorm.DefaultSearchOptions())
		if err := c.archive.ArchiveSource(ctx, documentID, contentHash, normalized); err != nil {
			c.log.Warn("source archive write failed", zap.String("document_id", documentID), zap.Error(err))
		}
	}
	return result, nil
}

// resolveDocumentRoot implements the duplicate/orphan resolution logic and
// creates the new Document row in status pending -> processing.
func (c *Coordinator) resolveDocumentRoot(ctx context.Context, contentHash string, req Request) (string, error) {
	existing, err := c.rel.FindDocumentByContentHash(ctx, contentHash)
	if err != nil {
		return "", fmt.Errorf("ingest: lookup by content hash: %w", err)
	}
	if existing != nil {
		owned, err := c.rel.HasOwnedRows(ctx, existing.ID)
		if err != nil {
			return "", fmt.Errorf("ingest: check orphan status: %w", err)
		}
		if owned {
			return "", coreerr.New(coreerr.KindDuplicateDocument, "ingest", fmt.Errorf("document %s already ingested with content hash %s", existing.ID, contentHash))
		}
		// Orphaned root: its children were already removed but the row
		// survived. Clean it up and proceed as a fresh ingest.
		if err := c.dual.DeleteDocument(ctx, existing.ID); err != nil {
			return "", fmt.Errorf("ingest: delete orphan document: %w", err)
		}
	}

	documentID, err := c.rel.CreateDocument(ctx, store.Document{
		ContentHash:  contentHash,
		DisplayName:  req.DisplayName,
		DocType:      req.DocType,
		Jurisdiction: req.Jurisdiction,
		IssueDate:    req.IssueDate,
	})
	if err != nil {
		return "", fmt.Errorf("ingest: create document: %w", err)
	}
	if err := c.rel.SetDocumentStatus(ctx, documentID, store.StatusProcessing, ""); err != nil {
		return "", fmt.Errorf("ingest: mark processing: %w", err)
	}
	return documentID, nil
}

// runPipeline executes classification, TOC suppression, hierarchy
// reconstruction, chunking, embedding, and the dual-store write for an
// already created Document. A non-nil error means the caller must roll the
// Document back entirely via delete_document; partial success is not
// allowed.
func (c *Coordinator) runPipeline(ctx context.Context, documentID, contentHash string, req Request) (*Result, error) {
	lines := classifyLines(req.SourceText)
	lines = toc.Detect(lines, c.tocCfg)
	doc := hierarchy.Reconstruct(lines)

	if len(doc.Articles) == 0 {
		return nil, coreerr.New(coreerr.KindNoArticlesExtracted, "ingest", fmt.Errorf("no articles extracted from source text"))
	}

	chapterIDs := make(map[int]string, len(doc.Chapters))
	for _, ch := range doc.Chapters {
		id, err := c.rel.InsertChapter(ctx, store.Chapter{DocumentID: documentID, Index: ch.Index, Label: ch.Label, Title: ch.Title})
		if err != nil {
			return nil, fmt.Errorf("ingest: insert chapter: %w", err)
		}
		chapterIDs[ch.Index] = id
	}

	sectionIDs := make(map[string]string, len(doc.Sections))
	for _, sec := range doc.Sections {
		chapterID, ok := chapterIDs[sec.ChapterIndex]
		if !ok {
			return nil, fmt.Errorf("ingest: section %d references unknown chapter %d", sec.Index, sec.ChapterIndex)
		}
		id, err := c.rel.InsertSection(ctx, store.Section{DocumentID: documentID, ChapterID: chapterID, Index: sec.Index, Label: sec.Label, Title: sec.Title})
		if err != nil {
			return nil, fmt.Errorf("ingest: insert section: %w", err)
		}
		sectionIDs[sectionKey(sec.ChapterIndex, sec.Index)] = id
	}

	articles := make([]articleCursor, 0, len(doc.Articles))
	for _, a := range doc.Articles {
		var chapterID, sectionID *string
		if a.HasChapter {
			if id, ok := chapterIDs[a.ChapterIndex]; ok {
				chapterID = &id
			}
		}
		if a.HasSection {
			if id, ok := sectionIDs[sectionKey(a.ChapterIndex, a.SectionIndex)]; ok {
				sectionID = &id
			}
		}
		id, err := c.rel.InsertArticle(ctx, store.Article{
			DocumentID: documentID,
			ChapterID:  chapterID,
			SectionID:  sectionID,
			Number:     a.Number,
			Title:      a.Title,
			Body:       a.Body,
			OrderIndex: a.OrderIndex,
		})
		if err != nil {
			return nil, fmt.Errorf("ingest: insert article: %w", err)
		}
		articles = append(articles, articleCursor{article: a, id: id})
	}

	chunkCount, err := c.chunkEmbedAndStore(ctx, documentID, articles)
	if err != nil {
		return nil, err
	}

	return &Result{
		DocumentID:   documentID,
		ContentHash:  contentHash,
		ArticleCount: len(doc.Articles),
		ChunkCount:   chunkCount,
		Diagnostics:  doc.Diagnostics,
	}, nil
}

type articleCursor struct {
	article hierarchy.Article
	id      string
}

// chunkEmbedAndStore chunks each article's body, batches every resulting
// chunk's text through the embedding service, then writes each chunk to
// the dual store. A single chunk or embedding failure fails the whole
// call; the caller rolls the Document back via delete_document, so no
// per-chunk repair is attempted here.
func (c *Coordinator) chunkEmbedAndStore(ctx context.Context, documentID string, cursors []articleCursor) (int, error) {
	type pending struct {
		articleID string
		chunk     chunking.Chunk
	}
	var allChunks []pending

	for _, cur := range cursors {
		if strings.TrimSpace(cur.article.Body) == "" {
			continue
		}
		var chapterIdx, sectionIdx *int
		if cur.article.HasChapter {
			v := cur.article.ChapterIndex
			chapterIdx = &v
		}
		if cur.article.HasSection {
			v := cur.article.SectionIndex
			sectionIdx = &v
		}
		meta := chunking.ArticleMeta{
			DocumentID:      documentID,
			ArticleNumber:   cur.article.Number,
			ArticleOrderIdx: cur.article.OrderIndex,
			ChapterIndex:    chapterIdx,
			SectionIndex:    sectionIdx,
		}
		chunks, err := chunking.ChunkArticle(cur.article.Body, meta, c.chunkCfg)
		if err != nil {
			return 0, fmt.Errorf("ingest: chunk article %s: %w", cur.article.Number, err)
		}
		for _, ch := range chunks {
			allChunks = append(allChunks, pending{articleID: cur.id, chunk: ch})
		}
	}
	if len(allChunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(allChunks))
	for i, p := range allChunks {
		texts[i] = p.chunk.Text
	}
	vectors := c.embedder.Embed(ctx, texts)
	if len(vectors) != len(allChunks) {
		return 0, fmt.Errorf("ingest: embedding returned %d results for %d chunks", len(vectors), len(allChunks))
	}
	for _, v := range vectors {
		if v.Err != nil {
			return 0, coreerr.New(coreerr.KindEmbeddingFailed, "ingest", v.Err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, p := range allChunks {
		i, p := i, p
		g.Go(func() error {
			_, err := c.dual.AddChunk(gctx, store.Chunk{
				DocumentID:    documentID,
				ArticleID:     p.articleID,
				ChunkIndex:    p.chunk.Index,
				Text:          p.chunk.Text,
				TokenCount:    p.chunk.TokenCount,
				VectorModelID: c.vectorModelID,
				Metadata:      p.chunk.Metadata,
			}, vectors[i].Vector)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("ingest: dual write: %w", err)
	}
	return len(allChunks), nil
}

func classifyLines(source string) []classifier.LineAnalysis {
	rawLines := strings.Split(source, "\n")
	out := make([]classifier.LineAnalysis, len(rawLines))
	for i, line := range rawLines {
		out[i] = classifier.ClassifyLine(i, line)
	}
	return out
}

func hashNormalized(source string) string {
	normalized := textnorm.NormalizeString(source, textnorm.DefaultSearchOptions())
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func lockKey(contentHash string) string { return "ingest:" + contentHash }

func sectionKey(chapterIndex, sectionIndex int) string {
	return fmt.Sprintf("%d:%d", chapterIndex, sectionIndex)
}
