package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"expenseindex/internal/apperr"
	"expenseindex/internal/logging"
	"expenseindex/internal/model"
)

// Postgres adapts a Postgres database with the pgvector extension to
// VectorStore, as an alternate backend to Qdrant.
type Postgres struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
	log       logging.Logger
}

// NewPostgres connects to dsn and ensures table (with its vector column and
// indexes) exists.
func NewPostgres(ctx context.Context, dsn, table string, dimension int, log logging.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "parse postgres dsn", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "connect postgres", err)
	}

	p := &Postgres{pool: pool, table: table, dimension: dimension, log: log}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS %[1]s (
	fragment_id TEXT PRIMARY KEY,
	tenant TEXT NOT NULL,
	document_id TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding vector(%[2]d) NOT NULL,
	chunk_index INT NOT NULL,
	chunk_type TEXT NOT NULL,
	parent_fragment_id TEXT NOT NULL DEFAULT '',
	start_char INT NOT NULL,
	end_char INT NOT NULL,
	amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	merchant TEXT NOT NULL DEFAULT '',
	expense_date TEXT NOT NULL DEFAULT '',
	doc_type TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	metadata_json TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS %[1]s_tenant_idx ON %[1]s (tenant);
CREATE INDEX IF NOT EXISTS %[1]s_document_idx ON %[1]s (document_id);

DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_indexes WHERE schemaname = current_schema() AND indexname = '%[1]s_embedding_idx'
	) THEN
		EXECUTE 'CREATE INDEX %[1]s_embedding_idx ON %[1]s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)';
	END IF;
END
$$;
`, p.table, p.dimension)

	_, err := p.pool.Exec(ctx, stmt)
	if err != nil && strings.Contains(err.Error(), "ivfflat") {
		// IVF needs enough rows to train on; skip it on a fresh, near-empty table.
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "ensure postgres schema", err)
	}
	return nil
}

func (p *Postgres) Dimension() int { return p.dimension }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, rows []model.Fragment) ([]string, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "begin upsert transaction", err)
	}
	defer tx.Rollback(ctx)

	var ids []string
	for _, f := range rows {
		if strings.TrimSpace(f.Content) == "" {
			if p.log != nil {
				p.log.Info("dropping fragment with empty content", map[string]any{
					"fragment_id": f.FragmentID,
					"document_id": f.DocumentID,
				})
			}
			continue
		}

		_, err := tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (fragment_id, tenant, document_id, content, embedding, chunk_index, chunk_type,
	parent_fragment_id, start_char, end_char, amount, category, merchant, expense_date, doc_type,
	source_url, metadata_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (fragment_id) DO UPDATE SET
	content = EXCLUDED.content, embedding = EXCLUDED.embedding, chunk_index = EXCLUDED.chunk_index,
	chunk_type = EXCLUDED.chunk_type, parent_fragment_id = EXCLUDED.parent_fragment_id,
	start_char = EXCLUDED.start_char, end_char = EXCLUDED.end_char, amount = EXCLUDED.amount,
	category = EXCLUDED.category, merchant = EXCLUDED.merchant, expense_date = EXCLUDED.expense_date,
	doc_type = EXCLUDED.doc_type, source_url = EXCLUDED.source_url, metadata_json = EXCLUDED.metadata_json
`, p.table),
			f.FragmentID, f.Tenant, f.DocumentID, f.Content, pgvector.NewVector(f.Vector),
			f.ChunkIndex, string(f.ChunkType), f.ParentFragmentID, f.StartChar, f.EndChar,
			f.Amount, f.Category, f.Merchant, f.ExpenseDate, f.DocumentType, f.SourceURL,
			f.MetadataJSON, time.Now().UTC(),
		)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "insert fragment", err)
		}
		ids = append(ids, f.FragmentID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "commit upsert transaction", err)
	}
	return ids, nil
}

func (p *Postgres) Search(ctx context.Context, queryVector []float32, tenant string, k int, filters Filters, threshold float64) ([]SearchResult, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, apperr.Wrap(apperr.KindBadRequest, "search requires a tenant", nil)
	}

	where := []string{"tenant = $1"}
	args := []any{tenant}
	args = append(args, pgvector.NewVector(queryVector))
	vectorArg := fmt.Sprintf("$%d", len(args))

	if filters.Category != "" {
		args = append(args, filters.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filters.Merchant != "" {
		args = append(args, "%"+filters.Merchant+"%")
		where = append(where, fmt.Sprintf("merchant ILIKE $%d", len(args)))
	}
	if filters.DocumentType != "" {
		args = append(args, filters.DocumentType)
		where = append(where, fmt.Sprintf("doc_type = $%d", len(args)))
	}
	if filters.Amount != nil {
		args = append(args, filters.Amount.Value)
		where = append(where, fmt.Sprintf("amount %s $%d", amountOperator(filters.Amount.Op), len(args)))
	}
	for key, val := range filters.MetadataContains {
		args = append(args, fmt.Sprintf("%q:%q", key, val))
		where = append(where, fmt.Sprintf("metadata_json ILIKE '%%' || $%d || '%%'", len(args)))
	}

	args = append(args, k)
	limitArg := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
SELECT fragment_id, tenant, document_id, content, chunk_index, chunk_type, parent_fragment_id,
	start_char, end_char, amount, category, merchant, expense_date, doc_type, source_url, metadata_json,
	1 - (embedding <=> %s) AS score
FROM %s
WHERE %s
ORDER BY embedding <=> %s
LIMIT %s
`, vectorArg, p.table, strings.Join(where, " AND "), vectorArg, limitArg)

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "search fragments", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var f model.Fragment
		// The "score" column is 1 - cosine_distance, i.e. raw cosine
		// similarity (pgvector's <=> already returns 1 - cosine_similarity).
		var cosineSimilarity float64
		if err := rows.Scan(&f.FragmentID, &f.Tenant, &f.DocumentID, &f.Content, &f.ChunkIndex,
			&f.ChunkType, &f.ParentFragmentID, &f.StartChar, &f.EndChar, &f.Amount, &f.Category,
			&f.Merchant, &f.ExpenseDate, &f.DocumentType, &f.SourceURL, &f.MetadataJSON, &cosineSimilarity); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan search row", err)
		}
		score := similarityFromCosine(cosineSimilarity)
		if score < threshold {
			continue
		}
		out = append(out, SearchResult{Fragment: f, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "iterate search rows", err)
	}
	return out, nil
}

func (p *Postgres) GetByDocument(ctx context.Context, documentID string) ([]model.Fragment, error) {
	query := fmt.Sprintf(`
SELECT fragment_id, tenant, document_id, content, chunk_index, chunk_type, parent_fragment_id,
	start_char, end_char, amount, category, merchant, expense_date, doc_type, source_url, metadata_json
FROM %s WHERE document_id = $1 ORDER BY chunk_index
`, p.table)

	rows, err := p.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "query document fragments", err)
	}
	defer rows.Close()

	var out []model.Fragment
	for rows.Next() {
		var f model.Fragment
		if err := rows.Scan(&f.FragmentID, &f.Tenant, &f.DocumentID, &f.Content, &f.ChunkIndex,
			&f.ChunkType, &f.ParentFragmentID, &f.StartChar, &f.EndChar, &f.Amount, &f.Category,
			&f.Merchant, &f.ExpenseDate, &f.DocumentType, &f.SourceURL, &f.MetadataJSON); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan document fragment", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, documentID string) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, p.table), documentID)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstreamUnavailable, "delete document fragments", err)
	}
	return nil
}

func (p *Postgres) Stats(ctx context.Context, tenant string) (Stats, error) {
	where := ""
	args := []any{}
	if tenant != "" {
		where = "WHERE tenant = $1"
		args = append(args, tenant)
	}

	var stats Stats
	query := fmt.Sprintf(`
SELECT count(*), count(DISTINCT document_id), count(DISTINCT NULLIF(merchant, ''))
FROM %s %s
`, p.table, where)
	row := p.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&stats.TotalChunks, &stats.UniqueDocuments, &stats.UniqueBusinesses); err != nil && err != pgx.ErrNoRows {
		return Stats{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "query stats", err)
	}
	return stats, nil
}

func amountOperator(op model.AmountFilterOp) string {
	switch op {
	case model.OpLessThan:
		return "<"
	case model.OpLessEqual:
		return "<="
	case model.OpGreaterThan:
		return ">"
	case model.OpGreaterEqual:
		return ">="
	default:
		return "="
	}
}
