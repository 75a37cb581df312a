package mercadolibre

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"

	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
)

const (
	providerName = "Mercado Libre"

	// profile GET is retried, token requests never are
	profileTries = 3

	maxBodyBytes = 1 << 20
)

type Options struct {
	AuthURL      string
	APIURL       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	SiteID       string
	Timeout      time.Duration

	// RetryInterval is the first wait between profile attempts.
	RetryInterval time.Duration
	HTTPClient    *http.Client
}

// Client talks to the marketplace OAuth endpoints and the public REST API.
// It implements marketplace.IdentityProvider and marketplace.Catalog.
type Client struct {
	oauth         *oauth2.Config
	apiURL        string
	siteID        string
	http          *http.Client
	retryInterval time.Duration
}

func New(o Options) *Client {
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	apiURL := strings.TrimRight(o.APIURL, "/")

	var scopes []string
	if o.Scope != "" {
		scopes = strings.Fields(o.Scope)
	}
	retry := o.RetryInterval
	if retry <= 0 {
		retry = 200 * time.Millisecond
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			RedirectURL:  o.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   o.AuthURL,
				TokenURL:  apiURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:        apiURL,
		siteID:        o.SiteID,
		http:          hc,
		retryInterval: retry,
	}
}

// AuthCodeURL builds the consent URL the seller is redirected to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token set. Single attempt.
func (c *Client) Exchange(ctx context.Context, code string) (*marketplace.TokenSet, error) {
	tok, err := c.oauth.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, tokenError("Token exchange failed", err)
	}
	return toTokenSet(tok, time.Now()), nil
}

// Refresh posts grant_type=refresh_token. Single attempt.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*marketplace.TokenSet, error) {
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError("Token refresh failed", err)
	}
	return toTokenSet(tok, time.Now()), nil
}

func (c *Client) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func tokenError(msg string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return errx.UpstreamAuth(msg, status, string(re.Body), nil)
	}
	return errx.UpstreamAuth(msg, 0, "", err)
}

func toTokenSet(tok *oauth2.Token, now time.Time) *marketplace.TokenSet {
	ts := &marketplace.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		ExpiresAt:    tok.Expiry,
	}
	if ts.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		ts.ExpiresIn = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if ts.ExpiresAt.IsZero() && ts.ExpiresIn > 0 {
		ts.ExpiresAt = now.Add(time.Duration(ts.ExpiresIn) * time.Second)
	}
	if s, ok := tok.Extra("scope").(string); ok {
		ts.Scope = s
	}
	ts.UserID = extraInt(tok.Extra("user_id"))
	return ts
}

func extraInt(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

// Me fetches the identity behind accessToken. Transport errors and 5xx are
// retried with exponential backoff.
func (c *Client) Me(ctx context.Context, accessToken string) (*marketplace.UserIdentity, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxInterval = 4 * c.retryInterval

	op := func() (*marketplace.UserIdentity, error) {
		var u marketplace.UserIdentity
		status, body, err := c.getJSON(ctx, "/users/me", accessToken, &u)
		switch {
		case err != nil && status == 0:
			return nil, errx.UpstreamProfileFetch(0, "", err)
		case status >= 500:
			return nil, errx.UpstreamProfileFetch(status, body, nil)
		case err != nil:
			return nil, backoff.Permanent(errx.UpstreamProfileFetch(status, body, nil))
		}
		return &u, nil
	}

	u, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(profileTries),
	)
	if err != nil {
		var e *errx.Error
		if !errors.As(err, &e) {
			// context ended between attempts
			return nil, errx.UpstreamProfileFetch(0, "", err)
		}
		return nil, err
	}
	return u, nil
}

// ItemIDs lists the seller's listing ids.
func (c *Client) ItemIDs(ctx context.Context, accessToken string, userID int64) ([]string, error) {
	var out struct {
		Results []string `json:"results"`
	}
	path := fmt.Sprintf("/users/%d/items/search", userID)
	if status, body, err := c.getJSON(ctx, path, accessToken, &out); err != nil {
		return nil, catalogError("failed to fetch products", status, body, err)
	}
	if out.Results == nil {
		out.Results = []string{}
	}
	return out.Results, nil
}

func (c *Client) Item(ctx context.Context, accessToken, itemID string) (*marketplace.Item, error) {
	var it marketplace.Item
	if status, body, err := c.getJSON(ctx, "/items/"+url.PathEscape(itemID), accessToken, &it); err != nil {
		return nil, catalogError("failed to fetch item "+itemID, status, body, err)
	}
	return &it, nil
}

// Visits returns the raw visits document of an item.
func (c *Client) Visits(ctx context.Context, accessToken, itemID string) (json.RawMessage, error) {
	var raw json.RawMessage
	path := "/items/" + url.PathEscape(itemID) + "/visits"
	if status, body, err := c.getJSON(ctx, path, accessToken, &raw); err != nil {
		return nil, catalogError("failed to fetch visits", status, body, err)
	}
	return raw, nil
}

// Search runs the public site search, no token needed.
func (c *Client) Search(ctx context.Context, q marketplace.SearchQuery) (*marketplace.SearchResult, error) {
	v := url.Values{}
	if q.CategoryID != "" {
		v.Set("category", q.CategoryID)
	}
	if q.Keywords != "" {
		v.Set("q", q.Keywords)
	}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("sort", "relevance")

	var out struct {
		Results []struct {
			marketplace.Competitor
			Seller struct {
				ID       int64  `json:"id"`
				Nickname string `json:"nickname"`
			} `json:"seller"`
		} `json:"results"`
		Paging struct {
			Total int `json:"total"`
		} `json:"paging"`
	}
	path := "/sites/" + c.siteID + "/search?" + v.Encode()
	if status, body, err := c.getJSON(ctx, path, "", &out); err != nil {
		return nil, catalogError("failed to search competitors", status, body, err)
	}

	res := &marketplace.SearchResult{
		Competitors: make([]marketplace.Competitor, 0, len(out.Results)),
		TotalFound:  out.Paging.Total,
	}
	for _, r := range out.Results {
		comp := r.Competitor
		comp.SellerID = r.Seller.ID
		comp.SellerNickname = r.Seller.Nickname
		res.Competitors = append(res.Competitors, comp)
	}
	return res, nil
}

func catalogError(msg string, status int, body string, err error) error {
	if status > 299 {
		// status and body already say it
		err = nil
	}
	e := errx.UpstreamProvider(providerName, status, body, err)
	e.Message = msg
	return e
}

// getJSON does a GET against the API and decodes a 2xx body into dst.
// status is 0 when no response was received.
func (c *Client) getJSON(ctx context.Context, path, accessToken string, dst any) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, string(body), fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return resp.StatusCode, string(body), fmt.Errorf("decode %s: %w", path, err)
	}
	return resp.StatusCode, "", nil
}
