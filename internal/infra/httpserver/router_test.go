package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/bryanwahyu/seller-hub/internal/application/analysis"
	appauth "github.com/bryanwahyu/seller-hub/internal/application/auth"
	appcatalog "github.com/bryanwahyu/seller-hub/internal/application/catalog"
	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/infra/statestore"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

type fakeIdP struct{ exchanges int32 }

func (f *fakeIdP) AuthCodeURL(state string) string {
	return "https://auth.mercadolibre.com.br/authorization?state=" + state
}

func (f *fakeIdP) Exchange(ctx context.Context, code string) (*marketplace.TokenSet, error) {
	atomic.AddInt32(&f.exchanges, 1)
	if code == "bad" {
		return nil, errx.UpstreamAuth("Token exchange failed", 400, `{"error":"invalid_grant"}`, nil)
	}
	return &marketplace.TokenSet{AccessToken: "APP_USR-1", RefreshToken: "TG-1", ExpiresIn: 21600}, nil
}

func (f *fakeIdP) Refresh(ctx context.Context, refreshToken string) (*marketplace.TokenSet, error) {
	return &marketplace.TokenSet{AccessToken: "APP_USR-2", RefreshToken: "TG-2", ExpiresIn: 21600}, nil
}

func (f *fakeIdP) Me(ctx context.Context, accessToken string) (*marketplace.UserIdentity, error) {
	return &marketplace.UserIdentity{ID: 42, Nickname: "LOJA"}, nil
}

type fakeProvider struct {
	calls int32
	text  string
	err   error
}

func (p *fakeProvider) Complete(ctx context.Context, c domain.Completion) (domain.CompletionResult, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return domain.CompletionResult{}, p.err
	}
	return domain.CompletionResult{Text: p.text, Usage: domain.Usage{TotalTokens: 3}}, nil
}

type fakeCatalog struct{ token string }

func (f *fakeCatalog) ItemIDs(ctx context.Context, accessToken string, userID int64) ([]string, error) {
	f.token = accessToken
	return []string{"MLB1"}, nil
}

func (f *fakeCatalog) Item(ctx context.Context, accessToken, itemID string) (*marketplace.Item, error) {
	return &marketplace.Item{ID: itemID, Title: "Fone"}, nil
}

func (f *fakeCatalog) Visits(ctx context.Context, accessToken, itemID string) (json.RawMessage, error) {
	return json.RawMessage(`{"total_visits":3}`), nil
}

func (f *fakeCatalog) Search(ctx context.Context, q marketplace.SearchQuery) (*marketplace.SearchResult, error) {
	return &marketplace.SearchResult{Competitors: []marketplace.Competitor{}, TotalFound: 0}, nil
}

type memTokens struct{ sets map[int64]marketplace.TokenSet }

func (m *memTokens) Save(ctx context.Context, t *marketplace.TokenSet) error {
	m.sets[t.UserID] = *t
	return nil
}

func (m *memTokens) Load(ctx context.Context, userID int64) (*marketplace.TokenSet, error) {
	t, ok := m.sets[userID]
	if !ok {
		return nil, errx.NotFound("token not found")
	}
	return &t, nil
}

type pageRepo struct {
	userID   string
	pageSize int
}

func (p *pageRepo) Save(ctx context.Context, r *domain.Record) error { return nil }

func (p *pageRepo) Paginate(ctx context.Context, userID string, page, pageSize int) ([]*domain.Record, error) {
	p.userID, p.pageSize = userID, pageSize
	return nil, nil
}

type fixture struct {
	handler  http.Handler
	idp      *fakeIdP
	provider *fakeProvider
	catalog  *fakeCatalog
	tokens   *memTokens
}

func newFixture(t *testing.T, expose bool) *fixture {
	t.Helper()
	return newFixtureWith(t, func(o *Options) { o.ExposeTokens = expose })
}

func newFixtureWith(t *testing.T, opt func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		idp:      &fakeIdP{},
		provider: &fakeProvider{text: "Análise pronta"},
		catalog:  &fakeCatalog{},
		tokens:   &memTokens{sets: map[int64]marketplace.TokenSet{}},
	}
	authSvc := &appauth.Service{
		IdP:    f.idp,
		States: statestore.NewMemory(),
		Tokens: f.tokens,
		Creds:  appauth.Credentials{ClientID: "c", ClientSecret: "s", RedirectURI: "https://app.local/cb"},
	}
	o := Options{
		Auth:     authSvc,
		Analysis: &appanalysis.Service{Providers: map[domain.Family]domain.Provider{domain.FamilyOpenAI: f.provider}},
		Catalog:  &appcatalog.Service{Catalog: f.catalog},
		Checkers: map[string]middleware.HealthChecker{"noop": middleware.CheckerFunc(func(context.Context) error { return nil })},
	}
	if opt != nil {
		opt(&o)
	}
	f.handler = NewRouter(o)
	return f
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestOAuth_StartThenCallback(t *testing.T) {
	f := newFixture(t, false)

	rec, start := f.do(t, http.MethodPost, "/v1/ml-oauth?action=start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, start["success"])
	state, _ := start["state"].(string)
	require.NotEmpty(t, state)
	assert.Contains(t, start["authUrl"], state)

	rec, cb := f.do(t, http.MethodPost, "/v1/ml-oauth?action=callback", `{"code":"TG-code","state":"`+state+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Integration completed successfully", cb["message"])
	assert.Equal(t, "LOJA", cb["user"].(map[string]any)["nickname"])
	assert.NotContains(t, cb, "access_token")
	assert.Contains(t, f.tokens.sets, int64(42))

	// replayed state
	rec, replay := f.do(t, http.MethodPost, "/v1/ml-oauth?action=callback", `{"code":"TG-code","state":"`+state+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, false, replay["success"])
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.idp.exchanges))
}

func TestOAuth_CallbackExposesTokensWhenEnabled(t *testing.T) {
	f := newFixture(t, true)

	_, start := f.do(t, http.MethodGet, "/v1/ml-oauth?action=start", "")
	state := start["state"].(string)

	rec, cb := f.do(t, http.MethodGet, "/v1/ml-oauth?action=callback&code=TG-code&state="+state, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APP_USR-1", cb["access_token"])
	assert.Equal(t, "TG-1", cb["refresh_token"])
	assert.EqualValues(t, 21600, cb["expires_in"])
}

func TestOAuth_Errors(t *testing.T) {
	tests := map[string]struct {
		target     string
		body       string
		wantStatus int
		wantError  string
	}{
		"unknown_action": {target: "/v1/ml-oauth?action=nope", wantStatus: 400, wantError: "Invalid action"},
		"missing_action": {target: "/v1/ml-oauth", wantStatus: 400, wantError: "Invalid action"},
		"no_code":        {target: "/v1/ml-oauth?action=callback", body: `{"state":"x"}`, wantStatus: 400, wantError: "Authorization code not provided"},
		"forged_state":   {target: "/v1/ml-oauth?action=callback", body: `{"code":"c","state":"forged"}`, wantStatus: 403},
		"no_refresh":     {target: "/v1/ml-oauth?action=refresh", body: `{}`, wantStatus: 400, wantError: "Refresh token not provided"},
		"malformed_json": {target: "/v1/ml-oauth?action=refresh", body: `{"refresh_token":`, wantStatus: 400},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, false)
			rec, out := f.do(t, http.MethodPost, tc.target, tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["timestamp"])
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, out["error"])
			}
			assert.Zero(t, atomic.LoadInt32(&f.idp.exchanges))
		})
	}
}

func TestOAuth_UpstreamExchangeFailure(t *testing.T) {
	f := newFixture(t, false)
	_, start := f.do(t, http.MethodPost, "/v1/ml-oauth?action=start", "")

	rec, out := f.do(t, http.MethodPost, "/v1/ml-oauth?action=callback", `{"code":"bad","state":"`+start["state"].(string)+`"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, string(errx.KindUpstreamAuth), out["kind"])
	assert.Contains(t, out["error"], "invalid_grant")
}

func TestOAuth_Refresh(t *testing.T) {
	f := newFixture(t, false)

	rec, out := f.do(t, http.MethodPost, "/v1/ml-oauth?action=refresh", `{"refresh_token":"TG-1","user_id":42}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APP_USR-2", out["access_token"])
	assert.Equal(t, "TG-2", out["refresh_token"])
	assert.Equal(t, "APP_USR-2", f.tokens.sets[42].AccessToken)
}

func TestAnalysis_Execute(t *testing.T) {
	tests := map[string]struct {
		body        string
		providerErr error
		wantStatus  int
		wantCalls   int32
	}{
		"ok":              {body: `{"model":"gpt-4o","prompt":"Analise","analysisType":"diagnosis","productData":{"title":"Fone"}}`, wantStatus: 200, wantCalls: 1},
		"unsupported":     {body: `{"model":"claude-3","prompt":"x","analysisType":"diagnosis"}`, wantStatus: 400},
		"not_configured":  {body: `{"model":"gemini-1.5-pro","prompt":"x","analysisType":"diagnosis"}`, wantStatus: 500},
		"upstream_failed": {body: `{"model":"gpt-4o","prompt":"x"}`, providerErr: errx.UpstreamProvider("OpenAI", 500, "boom", nil), wantStatus: 502, wantCalls: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, false)
			f.provider.err = tc.providerErr

			rec, out := f.do(t, http.MethodPost, "/v1/analysis", tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(&f.provider.calls))
			if tc.wantStatus == 200 {
				assert.Equal(t, true, out["success"])
				assert.Equal(t, "gpt-4o", out["model"])
				assert.Equal(t, "diagnosis", out["analysisType"])
				assert.Equal(t, "Análise pronta", out["response"])
				return
			}
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestAnalysis_ModelsAndHistory(t *testing.T) {
	f := newFixture(t, false)

	rec, out := f.do(t, http.MethodGet, "/v1/analysis/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, out["models"])

	// no history repository configured
	rec, _ = f.do(t, http.MethodGet, "/v1/analysis?user_id=42", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAnalysis_HistoryUserAndPageSize(t *testing.T) {
	repo := &pageRepo{}
	f := newFixtureWith(t, func(o *Options) {
		o.Analysis = &appanalysis.Service{Repo: repo}
	})

	tests := map[string]struct {
		target     string
		wantStatus int
		wantUser   string
		wantSize   int
	}{
		"numeric_user":  {target: "/v1/analysis?user_id=42&page_size=10", wantStatus: 200, wantUser: "42", wantSize: 10},
		"size_capped":   {target: "/v1/analysis?user_id=42&page_size=5000", wantStatus: 200, wantUser: "42", wantSize: 100},
		"size_default":  {target: "/v1/analysis?user_id=42", wantStatus: 200, wantUser: "42", wantSize: 20},
		"non_numeric":   {target: "/v1/analysis?user_id=abc", wantStatus: 400},
		"negative_user": {target: "/v1/analysis?user_id=-1", wantStatus: 400},
		"missing_user":  {target: "/v1/analysis", wantStatus: 400},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			*repo = pageRepo{}
			rec, out := f.do(t, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus != 200 {
				assert.Equal(t, false, out["success"])
				assert.Empty(t, repo.userID, "repository must not be queried")
				return
			}
			assert.Equal(t, tc.wantUser, repo.userID)
			assert.Equal(t, tc.wantSize, repo.pageSize)
			assert.EqualValues(t, tc.wantSize, out["pageSize"])
		})
	}
}

func TestAnalysis_ExecuteRejectsBadUserID(t *testing.T) {
	f := newFixture(t, false)

	rec, _ := f.do(t, http.MethodPost, "/v1/analysis", `{"model":"gpt-4o","prompt":"x","userId":"not-a-seller"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&f.provider.calls))
}

func TestRateLimit_ForwardedHeaders(t *testing.T) {
	tests := map[string]struct {
		trustProxy bool
		wantSecond int
	}{
		"untrusted_header_ignored": {trustProxy: false, wantSecond: http.StatusTooManyRequests},
		"trusted_proxy":            {trustProxy: true, wantSecond: http.StatusOK},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixtureWith(t, func(o *Options) {
				o.Limiter = middleware.NewRateLimiter(0.001, 1)
				o.TrustProxy = tc.trustProxy
			})

			codes := make([]int, 0, 2)
			for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
				req := httptest.NewRequest(http.MethodGet, "/v1/analysis/models", nil)
				req.Header.Set("X-Forwarded-For", ip)
				rec := httptest.NewRecorder()
				f.handler.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
			}
			assert.Equal(t, http.StatusOK, codes[0])
			assert.Equal(t, tc.wantSecond, codes[1])
		})
	}
}

func TestProducts(t *testing.T) {
	tests := map[string]struct {
		body       string
		wantStatus int
		check      func(t *testing.T, f *fixture, out map[string]any)
	}{
		"sync": {
			body:       `{"action":"sync_products","access_token":"tok","user_id":42}`,
			wantStatus: 200,
			check: func(t *testing.T, f *fixture, out map[string]any) {
				assert.EqualValues(t, 1, out["products_synced"])
				assert.Equal(t, "tok", f.catalog.token)
			},
		},
		"sync_with_stored_token": {
			body:       `{"action":"sync_products","user_id":42}`,
			wantStatus: 200,
			check: func(t *testing.T, f *fixture, out map[string]any) {
				assert.Equal(t, "APP_USR-stored", f.catalog.token)
			},
		},
		"metrics": {
			body:       `{"action":"get_product_metrics","access_token":"tok","product_id":"MLB1"}`,
			wantStatus: 200,
			check: func(t *testing.T, f *fixture, out map[string]any) {
				assert.Equal(t, "MLB1", out["product_id"])
				assert.EqualValues(t, 3, out["metrics"].(map[string]any)["total_visits"])
			},
		},
		"metrics_bad_id": {
			body:       `{"action":"get_product_metrics","access_token":"tok","product_id":"../x"}`,
			wantStatus: 400,
		},
		"search": {
			body:       `{"action":"search_competitors","access_token":"tok","keywords":"fone"}`,
			wantStatus: 200,
			check: func(t *testing.T, f *fixture, out map[string]any) {
				assert.EqualValues(t, 50, out["search_params"].(map[string]any)["limit"])
			},
		},
		"no_token": {
			body:       `{"action":"search_competitors","keywords":"fone"}`,
			wantStatus: 400,
		},
		"unknown_action": {
			body:       `{"action":"delete_everything","access_token":"tok"}`,
			wantStatus: 400,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, false)
			f.tokens.sets[42] = marketplace.TokenSet{UserID: 42, AccessToken: "APP_USR-stored", ExpiresAt: time.Now().Add(time.Hour)}

			rec, out := f.do(t, http.MethodPost, "/v1/ml-products", tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.check != nil {
				assert.Equal(t, true, out["success"])
				tc.check(t, f, out)
			}
		})
	}
}

func TestInfraRoutes(t *testing.T) {
	f := newFixture(t, false)

	rec, _ := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", out["status"])

	rec, _ = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/v1/analysis", nil)
	req.Header.Set("Origin", "https://app.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "apikey, content-type")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
