package catalog

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/seller-hub/internal/application"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/logx"
)

const (
	batchSize    = 20
	defaultLimit = 50
	maxLimit     = 50
)

// Service proxies the seller's catalog.
type Service struct {
	Catalog marketplace.Catalog
	Clock   application.Clock
}

type SyncResult struct {
	ProductsSynced int                   `json:"products_synced"`
	TotalProducts  int                   `json:"total_products"`
	Products       []marketplace.Product `json:"products"`
	SyncTimestamp  time.Time             `json:"sync_timestamp"`
}

type Metrics struct {
	ProductID string          `json:"product_id"`
	Metrics   json.RawMessage `json:"metrics"`
	Timestamp time.Time       `json:"timestamp"`
}

type SearchResult struct {
	marketplace.SearchResult
	SearchParams marketplace.SearchQuery `json:"search_params"`
	Timestamp    time.Time               `json:"timestamp"`
}

// SyncProducts fetches every listing of the seller with at most batchSize
// item requests in flight.
// Items that fail to load are skipped.
func (s *Service) SyncProducts(ctx context.Context, accessToken string, userID int64) (*SyncResult, error) {
	if accessToken == "" {
		return nil, errx.Validation("Access token not provided")
	}
	if userID == 0 {
		return nil, errx.Validation("user_id is required")
	}

	ids, err := s.Catalog.ItemIDs(ctx, accessToken, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*marketplace.Item, len(ids))
	var g errgroup.Group
	g.SetLimit(batchSize)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			it, err := s.Catalog.Item(ctx, accessToken, id)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logx.Warn().Err(err).Str("item_id", id).Msg("failed to fetch product")
				return nil
			}
			items[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	products := make([]marketplace.Product, 0, len(items))
	for _, it := range items {
		if it != nil {
			products = append(products, it.ToProduct(now))
		}
	}

	return &SyncResult{
		ProductsSynced: len(products),
		TotalProducts:  len(ids),
		Products:       products,
		SyncTimestamp:  now,
	}, nil
}

// ProductMetrics returns the visits document, or an empty object when the
// upstream call fails.
func (s *Service) ProductMetrics(ctx context.Context, accessToken, productID string) (*Metrics, error) {
	if accessToken == "" {
		return nil, errx.Validation("Access token not provided")
	}
	if productID == "" {
		return nil, errx.Validation("product_id is required")
	}

	raw, err := s.Catalog.Visits(ctx, accessToken, productID)
	if err != nil || len(raw) == 0 {
		if err != nil {
			logx.Debug().Err(err).Str("product_id", productID).Msg("visits unavailable")
		}
		raw = json.RawMessage(`{}`)
	}
	return &Metrics{ProductID: productID, Metrics: raw, Timestamp: s.now()}, nil
}

// SearchCompetitors runs the public search. The token is only checked to
// keep the action behind an authorized session.
func (s *Service) SearchCompetitors(ctx context.Context, accessToken string, q marketplace.SearchQuery) (*SearchResult, error) {
	if accessToken == "" {
		return nil, errx.Validation("Access token not provided")
	}
	if q.CategoryID == "" && q.Keywords == "" {
		return nil, errx.Validation("category_id or keywords is required")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)

	res, err := s.Catalog.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResult{SearchResult: *res, SearchParams: q, Timestamp: s.now()}, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
