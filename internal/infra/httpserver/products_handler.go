package httpserver

import (
	"net/http"

	appcatalog "github.com/bryanwahyu/seller-hub/internal/application/catalog"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

type productsBody struct {
	Action      string `json:"action"`
	AccessToken string `json:"access_token"`
	UserID      int64  `json:"user_id"`
	ProductID   string `json:"product_id"`
	CategoryID  string `json:"category_id"`
	Keywords    string `json:"keywords"`
	Limit       int    `json:"limit"`
}

// POST /v1/ml-products
// Body: {"action":"sync_products|get_product_metrics|search_competitors", ...}
func (r *Router) handleProducts(w http.ResponseWriter, req *http.Request) error {
	var body productsBody
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	ctx := req.Context()

	token, err := r.accessToken(req, body)
	if err != nil {
		return err
	}

	switch body.Action {
	case "sync_products":
		res, err := r.catalogSvc.SyncProducts(ctx, token, body.UserID)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*appcatalog.SyncResult
		}{true, res})

	case "get_product_metrics":
		if err := middleware.ValidateItemID(body.ProductID); err != nil {
			return errx.Validation("%s", err.Error())
		}
		res, err := r.catalogSvc.ProductMetrics(ctx, token, body.ProductID)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*appcatalog.Metrics
		}{true, res})

	case "search_competitors":
		res, err := r.catalogSvc.SearchCompetitors(ctx, token, marketplace.SearchQuery{
			CategoryID: body.CategoryID,
			Keywords:   middleware.SanitizeString(body.Keywords),
			Limit:      body.Limit,
		})
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			*appcatalog.SearchResult
		}{true, res})

	default:
		return errx.Validation("Invalid action")
	}
}

// accessToken falls back to the stored token of user_id when the caller
// sent none and token storage is configured.
func (r *Router) accessToken(req *http.Request, body productsBody) (string, error) {
	if body.AccessToken != "" || body.UserID == 0 || r.authSvc == nil || r.authSvc.Tokens == nil {
		return body.AccessToken, nil
	}
	tok, err := r.authSvc.StoredToken(req.Context(), body.UserID)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
