package httpserver

import (
	"net/http"
	"strconv"

	domain "github.com/bryanwahyu/seller-hub/internal/domain/analysis"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

// POST /v1/analysis
// Body: {"model","prompt","analysisType","productData","userId","productId"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body domain.Request
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	body.Prompt = middleware.SanitizeString(body.Prompt)
	if body.UserID != "" {
		id, err := userID(body.UserID)
		if err != nil {
			return err
		}
		body.UserID = id
	}

	resp, err := r.analysisSvc.Execute(req.Context(), body)
	family, _ := domain.ParseFamily(body.Model)
	provider := string(family)
	if provider == "" {
		provider = "unknown"
	}
	middleware.RecordAnalysis(provider, outcome(err))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

// GET /v1/analysis?user_id=&page=&page_size=
func (r *Router) handleAnalysisList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	page := middleware.QueryInt(q.Get("page"), 1)
	size := middleware.ValidateLimit(middleware.QueryInt(q.Get("page_size"), 0))

	user, err := userID(q.Get("user_id"))
	if err != nil {
		return err
	}

	list, err := r.analysisSvc.List(req.Context(), user, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analysis/models
func (r *Router) handleModels(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.analysisSvc.Catalog())
}

// userID normalizes a marketplace seller id; history is keyed by it.
func userID(raw string) (string, error) {
	id, err := middleware.ParseUserID(raw)
	if err != nil {
		return "", errx.Validation("%s", err.Error())
	}
	if id == 0 {
		return "", nil
	}
	return strconv.FormatInt(id, 10), nil
}
