package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO seller_analyses
  (id, user_id, product_id, model, provider, analysis_type, response,
   prompt_tokens, completion_tokens, total_tokens, archive_url, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  response=VALUES(response), archive_url=VALUES(archive_url);
`
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.UserID), stringOrDash(a.ProductID), a.Model, string(a.Provider), string(a.AnalysisType), a.Response,
		a.Usage.PromptTokens, a.Usage.CompletionTokens, a.Usage.TotalTokens, a.ArchiveURL, createdAt,
	)
	return err
}

// Paginate returns a page of a user's analyses ordered by created_at desc
func (r *AnalysisRepository) Paginate(ctx context.Context, userID string, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, user_id, product_id, model, provider, analysis_type, response,
       prompt_tokens, completion_tokens, total_tokens, archive_url, created_at
FROM seller_analyses
WHERE user_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, userID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		var provider, typ string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ProductID, &a.Model, &provider, &typ, &a.Response,
			&a.Usage.PromptTokens, &a.Usage.CompletionTokens, &a.Usage.TotalTokens, &a.ArchiveURL, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Provider = domain.Family(provider)
		a.AnalysisType = domain.Type(typ)
		a.ProductID = dashToEmpty(a.ProductID)
		out = append(out, &a)
	}
	return out, rows.Err()
}
