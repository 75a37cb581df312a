package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/middleware"
)

type oauthBody struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id"`
}

// GET|POST /v1/ml-oauth?action=start|callback|refresh
// callback and refresh read their fields from the JSON body, or from the
// query string when there is none.
func (r *Router) handleOAuth(w http.ResponseWriter, req *http.Request) (err error) {
	action := req.URL.Query().Get("action")
	defer func() { middleware.RecordOAuth(actionLabel(action), outcome(err)) }()

	var body oauthBody
	if err := decodeBody(w, req, &body); err != nil {
		return err
	}
	q := req.URL.Query()
	if body.Code == "" {
		body.Code = q.Get("code")
	}
	if body.State == "" {
		body.State = q.Get("state")
	}

	switch action {
	case "start":
		st, err := r.authSvc.Start(req.Context())
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"authUrl": st.AuthURL,
			"state":   st.State,
		})

	case "callback":
		authz, err := r.authSvc.Exchange(req.Context(), body.Code, body.State)
		if err != nil {
			return err
		}
		resp := map[string]any{
			"success": true,
			"user":    authz.User,
			"message": "Integration completed successfully",
		}
		if r.exposeTokens {
			addTokens(resp, &authz.Tokens)
		}
		return writeJSON(w, http.StatusOK, resp)

	case "refresh":
		tok, err := r.authSvc.Refresh(req.Context(), body.RefreshToken, body.UserID)
		if err != nil {
			return err
		}
		resp := map[string]any{"success": true}
		addTokens(resp, tok)
		return writeJSON(w, http.StatusOK, resp)

	default:
		return errx.Validation("Invalid action")
	}
}

func addTokens(resp map[string]any, t *marketplace.TokenSet) {
	resp["access_token"] = t.AccessToken
	resp["refresh_token"] = t.RefreshToken
	resp["expires_in"] = t.ExpiresIn
	if !t.ExpiresAt.IsZero() {
		resp["expires_at"] = t.ExpiresAt.UTC().Format(time.RFC3339)
	}
}

func actionLabel(action string) string {
	switch action {
	case "start", "callback", "refresh":
		return action
	}
	return "unknown"
}

// outcome is the metrics label for a handler result.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	var e *errx.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "internal"
}
