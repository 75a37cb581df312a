package mysql

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

type prefixSealer struct{}

func (prefixSealer) Seal(plain, aad string) (string, error) { return "sealed:" + aad + ":" + plain, nil }

func (prefixSealer) Open(sealed, aad string) (string, error) {
	return strings.TrimPrefix(sealed, "sealed:"+aad+":"), nil
}

func TestAnalysisRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seller_analyses")).
		WithArgs("id-1", "u1", "-", "gpt-4o", "openai", "diagnosis", "texto", 1, 2, 3, "", created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewAnalysisRepository(db)
	err = repo.Save(context.Background(), &domain.Record{
		ID:           "id-1",
		UserID:       "u1",
		Model:        "gpt-4o",
		Provider:     domain.FamilyOpenAI,
		AnalysisType: domain.TypeDiagnosis,
		Response:     "texto",
		Usage:        domain.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
		CreatedAt:    created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisRepository_Paginate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "product_id", "model", "provider", "analysis_type", "response",
		"prompt_tokens", "completion_tokens", "total_tokens", "archive_url", "created_at"}).
		AddRow("id-2", "u1", "MLB1", "deepseek-v2", "deepseek", "benchmarking", "b", 0, 0, 7, "http://a/b", created).
		AddRow("id-1", "u1", "-", "gpt-4o", "openai", "diagnosis", "a", 1, 2, 3, "", created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM seller_analyses")).
		WithArgs("u1", 10, 10).
		WillReturnRows(rows)

	out, err := NewAnalysisRepository(db).Paginate(context.Background(), "u1", 2, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.FamilyDeepSeek, out[0].Provider)
	assert.Equal(t, "MLB1", out[0].ProductID)
	assert.Equal(t, 7, out[0].Usage.TotalTokens)
	assert.Empty(t, out[1].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_SaveSeals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exp := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO marketplace_tokens")).
		WithArgs(int64(42), "sealed:42:APP_USR-1", "sealed:42:TG-1", "bearer", "read", exp, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewTokenRepository(db, prefixSealer{})
	err = repo.Save(context.Background(), &marketplace.TokenSet{
		UserID: 42, AccessToken: "APP_USR-1", RefreshToken: "TG-1", TokenType: "bearer", Scope: "read", ExpiresAt: exp,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	err = repo.Save(context.Background(), &marketplace.TokenSet{AccessToken: "x"})
	assert.ErrorIs(t, err, errx.ErrValidation)
}

func TestTokenRepository_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	exp := time.Now().Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM marketplace_tokens")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"access_token", "refresh_token", "token_type", "scope", "expires_at"}).
			AddRow("sealed:42:APP_USR-1", "sealed:42:TG-1", "bearer", "read", exp))
	mock.ExpectQuery(regexp.QuoteMeta("FROM marketplace_tokens")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"access_token", "refresh_token", "token_type", "scope", "expires_at"}))

	repo := NewTokenRepository(db, prefixSealer{})
	tok, err := repo.Load(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "APP_USR-1", tok.AccessToken)
	assert.Equal(t, "TG-1", tok.RefreshToken)
	assert.InDelta(t, 3600, tok.ExpiresIn, 5)

	_, err = repo.Load(context.Background(), 7)
	assert.ErrorIs(t, err, errx.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
