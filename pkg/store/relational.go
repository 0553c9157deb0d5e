package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bytedance/sonic"

	"github.com/qanoon/halp/pkg/coreerr"
)

// RelationalStore is the R half of the dual store: documents, chapters,
// sections, articles, and chunk rows (no vectors).
type RelationalStore struct {
	pool *pgxpool.Pool
}

func NewRelationalStore(ctx context.Context, dsn string) (*RelationalStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect relational store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping relational store: %w", err)
	}
	return &RelationalStore{pool: pool}, nil
}

// Migrate creates the schema if absent. A fixed-shape core, no migration
// tool: the schema here never changes shape after deploy.
func (r *RelationalStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			content_hash TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			jurisdiction TEXT NOT NULL DEFAULT '',
			issue_date TIMESTAMPTZ,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS chapters (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			index INTEGER NOT NULL,
			label TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sections (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chapter_id UUID NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
			index INTEGER NOT NULL,
			label TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chapter_id UUID REFERENCES chapters(id) ON DELETE CASCADE,
			section_id UUID REFERENCES sections(id) ON DELETE CASCADE,
			number TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			order_index INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			token_count INTEGER NOT NULL,
			vector_model_id TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			UNIQUE(article_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chapters_document ON chapters(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_document ON articles(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate relational store: %w", err)
		}
	}
	return nil
}

func (r *RelationalStore) Close() { r.pool.Close() }

func (r *RelationalStore) FindDocumentByContentHash(ctx context.Context, hash string) (*Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, content_hash, display_name, doc_type, jurisdiction,
		issue_date, uploaded_at, status, error_message FROM documents WHERE content_hash = $1`, hash)
	var d Document
	if err := row.Scan(&d.ID, &d.ContentHash, &d.DisplayName, &d.DocType, &d.Jurisdiction,
		&d.IssueDate, &d.UploadedAt, &d.Status, &d.ErrorMessage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document by content hash: %w", err)
	}
	return &d, nil
}

// HasOwnedRows reports whether a document still owns any article — used by
// the ingest coordinator to distinguish an active document from an orphan
// whose children were deleted but whose row survived.
func (r *RelationalStore) HasOwnedRows(ctx context.Context, documentID string) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM articles WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check owned rows: %w", err)
	}
	return count > 0, nil
}

func (r *RelationalStore) CreateDocument(ctx context.Context, d Document) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO documents (content_hash, display_name, doc_type, jurisdiction, issue_date, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		d.ContentHash, d.DisplayName, d.DocType, d.Jurisdiction, d.IssueDate, StatusPending).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return id, nil
}

func (r *RelationalStore) SetDocumentStatus(ctx context.Context, documentID string, status DocumentStatus, errMsg string) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET status = $2, error_message = $3 WHERE id = $1`, documentID, status, errMsg)
	if err != nil {
		return fmt.Errorf("set document status: %w", err)
	}
	return nil
}

func (r *RelationalStore) InsertChapter(ctx context.Context, c Chapter) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO chapters (document_id, index, label, title) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.DocumentID, c.Index, c.Label, c.Title).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert chapter: %w", err)
	}
	return id, nil
}

func (r *RelationalStore) InsertSection(ctx context.Context, s Section) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO sections (document_id, chapter_id, index, label, title) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.DocumentID, s.ChapterID, s.Index, s.Label, s.Title).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert section: %w", err)
	}
	return id, nil
}

func (r *RelationalStore) InsertArticle(ctx context.Context, a Article) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `INSERT INTO articles (document_id, chapter_id, section_id, number, title, body, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		a.DocumentID, a.ChapterID, a.SectionID, a.Number, a.Title, a.Body, a.OrderIndex).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

func (r *RelationalStore) InsertChunk(ctx context.Context, c Chunk) (string, error) {
	meta, err := sonic.Marshal(c.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal chunk metadata: %w", err)
	}
	var id string
	err = r.pool.QueryRow(ctx, `INSERT INTO chunks (document_id, article_id, chunk_index, text, token_count, vector_model_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.DocumentID, c.ArticleID, c.ChunkIndex, c.Text, c.TokenCount, c.VectorModelID, meta).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert chunk: %w", err)
	}
	return id, nil
}

func (r *RelationalStore) UpdateChunkText(ctx context.Context, chunkID, text string, tokenCount int) error {
	_, err := r.pool.Exec(ctx, `UPDATE chunks SET text = $2, token_count = $3 WHERE id = $1`, chunkID, text, tokenCount)
	if err != nil {
		return fmt.Errorf("update chunk text: %w", err)
	}
	return nil
}

func (r *RelationalStore) DeleteChunk(ctx context.Context, chunkID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, chunkID)
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	return nil
}

// DeleteDocument cascades through chapters/sections/articles/chunks via FK
// ON DELETE CASCADE; a single statement is enough for dependency order.
func (r *RelationalStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *RelationalStore) ChunkIDsForDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DocumentIDsByFilter resolves the document_type/jurisdiction portion of a
// search filter set into a concrete document_id allowlist. Empty arguments
// are treated as "no restriction" on that field.
func (r *RelationalStore) DocumentIDsByFilter(ctx context.Context, docType, jurisdiction string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM documents
		WHERE ($1 = '' OR doc_type = $1) AND ($2 = '' OR jurisdiction = $2)`, docType, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("resolve document filter: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan filtered document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ArticleTitlesByPrefix backs suggest(prefix, limit): stored article titles
// that start with normalizedPrefix (case-insensitive ILIKE). The stored
// titles themselves are not normalized before the comparison.
func (r *RelationalStore) ArticleTitlesByPrefix(ctx context.Context, normalizedPrefix string, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT title FROM articles WHERE title <> '' AND title ILIKE $1 || '%' LIMIT $2`,
		normalizedPrefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest article titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan suggested title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func (r *RelationalStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// GetChunk fetches a single chunk row, used by Reconcile to load a chunk
// whose vector is missing so it can be re-embedded.
func (r *RelationalStore) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	var c Chunk
	var metaRaw []byte
	err := r.pool.QueryRow(ctx, `SELECT id, document_id, article_id, chunk_index, text, token_count, vector_model_id, metadata
		FROM chunks WHERE id = $1`, chunkID).
		Scan(&c.ID, &c.DocumentID, &c.ArticleID, &c.ChunkIndex, &c.Text, &c.TokenCount, &c.VectorModelID, &metaRaw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerr.New(coreerr.KindNotFound, "get_chunk", err)
		}
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if len(metaRaw) > 0 {
		if err := sonic.Unmarshal(metaRaw, &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
	}
	return &c, nil
}

// EnrichChunks joins Chunk -> Article -> Section? -> Chapter? -> Document
// in one query. Chunks whose article_id resolves to no row are
// dropped by the caller (logged as dangling_chunk); this method itself
// simply won't return a row for them since the join is INNER on articles.
func (r *RelationalStore) EnrichChunks(ctx context.Context, chunkIDs []string) (map[string]EnrichedChunk, error) {
	if len(chunkIDs) == 0 {
		return map[string]EnrichedChunk{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.document_id, c.article_id, c.chunk_index, c.text, c.token_count, c.vector_model_id, c.metadata,
			a.id, a.number, a.title, a.body, a.order_index,
			s.id, s.index, s.label, s.title,
			ch.id, ch.index, ch.label, ch.title,
			d.id, d.content_hash, d.display_name, d.doc_type, d.jurisdiction, d.status, d.error_message
		FROM chunks c
		JOIN articles a ON a.id = c.article_id
		LEFT JOIN sections s ON s.id = a.section_id
		LEFT JOIN chapters ch ON ch.id = a.chapter_id
		JOIN documents d ON d.id = c.document_id
		WHERE c.id = ANY($1)`, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("enrich chunks: %w", err)
	}
	defer rows.Close()

	result := make(map[string]EnrichedChunk, len(chunkIDs))
	for rows.Next() {
		var (
			chunk                              Chunk
			metaRaw                            []byte
			article                            Article
			sectionID                          *string
			sectionIdx                         *int
			sectionLabel, sectionTitle         *string
			chapterID                          *string
			chapterIdx                         *int
			chapterLabel, chapterTitle         *string
			doc                                Document
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.ArticleID, &chunk.ChunkIndex, &chunk.Text, &chunk.TokenCount, &chunk.VectorModelID, &metaRaw,
			&article.ID, &article.Number, &article.Title, &article.Body, &article.OrderIndex,
			&sectionID, &sectionIdx, &sectionLabel, &sectionTitle,
			&chapterID, &chapterIdx, &chapterLabel, &chapterTitle,
			&doc.ID, &doc.ContentHash, &doc.DisplayName, &doc.DocType, &doc.Jurisdiction, &doc.Status, &doc.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan enriched chunk: %w", err)
		}
		if len(metaRaw) > 0 {
			if err := sonic.Unmarshal(metaRaw, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}

		enriched := EnrichedChunk{Chunk: chunk, Article: &article, Document: &doc}
		if sectionID != nil {
			enriched.Section = &Section{ID: *sectionID, Index: *sectionIdx, Label: *sectionLabel, Title: *sectionTitle}
		}
		if chapterID != nil {
			enriched.Chapter = &Chapter{ID: *chapterID, Index: *chapterIdx, Label: *chapterLabel, Title: *chapterTitle}
		}
		result[chunk.ID] = enriched
	}
	return result, rows.Err()
}
