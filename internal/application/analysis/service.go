package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/seller-hub/internal/application"
	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/infra/ai/prompt"
	"github.com/bryanwahyu/seller-hub/internal/logx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

const defaultTimeout = 30 * time.Second

// Service routes analysis requests to the provider family named by the
// model prefix. Providers holds only the families that have an API key.
// Repo and Archive are optional.
type Service struct {
	Providers map[domain.Family]domain.Provider
	Repo      domain.Repository
	Archive   domain.ArchiveStore
	Clock     application.Clock
	Timeout   time.Duration
}

// Execute runs exactly one upstream completion for req.
func (s *Service) Execute(ctx context.Context, req domain.Request) (*domain.Response, error) {
	family, err := domain.ParseFamily(req.Model)
	if err != nil {
		return nil, err
	}

	provider, ok := s.Providers[family]
	if !ok || provider == nil {
		return nil, errx.Configuration("%s API key not configured", family.DisplayName())
	}

	systemPrompt, analysisType := prompt.ForFamily(family).System(req.AnalysisType)
	cfg := domain.ResolveModel(family, req.Model)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// satu kali panggil, tanpa retry
	res, err := provider.Complete(callCtx, domain.Completion{
		SystemPrompt: systemPrompt,
		UserContent:  prompt.GetUserPrompt(req.ProductData, req.Prompt),
		Config:       cfg,
	})
	if err != nil {
		// deadline and transport failures that the client did not classify
		var e *errx.Error
		if !errors.As(err, &e) {
			err = errx.UpstreamProvider(family.DisplayName(), 0, "", err)
		}
		return nil, err
	}
	if res.Text == "" {
		return nil, errx.EmptyResponse(family.DisplayName())
	}

	usage := res.Usage
	out := &domain.Response{
		Success:      true,
		Model:        req.Model,
		AnalysisType: analysisType,
		Response:     res.Text,
		Usage:        &usage,
		Timestamp:    s.now(),
	}

	s.record(ctx, req, family, out)
	return out, nil
}

// record keeps the history row and archived report. Failures only get logged.
func (s *Service) record(ctx context.Context, req domain.Request, family domain.Family, out *domain.Response) {
	if s.Repo == nil && s.Archive == nil {
		return
	}

	rec := &domain.Record{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		Model:        req.Model,
		Provider:     family,
		AnalysisType: out.AnalysisType,
		Response:     out.Response,
		Usage:        *out.Usage,
		CreatedAt:    out.Timestamp,
	}

	if s.Archive != nil {
		data, err := json.Marshal(struct {
			*domain.Record
			Prompt      string          `json:"prompt"`
			ProductData json.RawMessage `json:"product_data,omitempty"`
		}{rec, req.Prompt, req.ProductData})
		if err == nil {
			key := archiveKey(rec)
			url, err := s.Archive.Put(ctx, key, data, "application/json")
			if err != nil {
				logx.Warn().Err(err).Str("key", key).Msg("archive analysis report failed")
			} else {
				rec.ArchiveURL = url
			}
		}
	}

	if s.Repo == nil || rec.UserID == "" {
		return
	}
	if err := s.Repo.Save(ctx, rec); err != nil {
		logx.Warn().Err(err).Str("id", rec.ID).Msg("save analysis history failed")
	}
}

func archiveKey(rec *domain.Record) string {
	user := rec.UserID
	if user == "" {
		user = "anonymous"
	}
	return fmt.Sprintf("%s/%s/%s.json", user, rec.AnalysisType, rec.ID)
}

// List returns one page of a user's history, newest first.
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) (*domain.Page, error) {
	if userID == "" {
		return nil, errx.Validation("user_id is required")
	}
	if s.Repo == nil {
		return nil, errx.Configuration("analysis history is not configured")
	}
	if page < 1 {
		page = 1
	}
	pageSize = middleware.ValidateLimit(pageSize)

	items, err := s.Repo.Paginate(ctx, userID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("paginate analyses: %w", err)
	}
	if items == nil {
		items = []*domain.Record{}
	}
	return &domain.Page{Data: items, Page: page, PageSize: pageSize}, nil
}

// ModelCatalog is what the model selector shows.
type ModelCatalog struct {
	Models      []ModelInfo              `json:"models"`
	Recommended map[domain.Type][]string `json:"recommended"`
}

type ModelInfo struct {
	domain.CatalogEntry
	Available bool `json:"available"`
}

// Catalog lists every model; Available is false for families without a key.
func (s *Service) Catalog() ModelCatalog {
	entries := domain.Catalog()
	out := ModelCatalog{
		Models:      make([]ModelInfo, 0, len(entries)),
		Recommended: make(map[domain.Type][]string, len(domain.Types)),
	}
	for _, e := range entries {
		_, ok := s.Providers[e.Provider]
		out.Models = append(out.Models, ModelInfo{CatalogEntry: e, Available: ok})
	}
	for _, t := range domain.Types {
		out.Recommended[t] = domain.Recommended(t)
	}
	return out
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
