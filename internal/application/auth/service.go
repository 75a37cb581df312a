package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bryanwahyu/seller-hub/internal/application"
	"github.com/bryanwahyu/seller-hub/internal/domain/marketplace"
	"github.com/bryanwahyu/seller-hub/internal/errx"
	"github.com/bryanwahyu/seller-hub/internal/logx"
)

const (
	defaultStateTTL = 10 * time.Minute
	refreshBuffer   = 5 * time.Minute
)

// Credentials are the app registration values at the marketplace.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Service runs the authorization-code flow. Tokens is optional; without it
// nothing is persisted. Safe for concurrent use.
type Service struct {
	IdP      marketplace.IdentityProvider
	States   marketplace.StateStore
	Tokens   marketplace.TokenRepository
	Creds    Credentials
	StateTTL time.Duration
	Clock    application.Clock

	refreshes singleflight.Group
}

// Start issues a fresh state and the consent URL that carries it.
func (s *Service) Start(ctx context.Context) (*marketplace.OAuthState, error) {
	if s.Creds.ClientID == "" || s.Creds.RedirectURI == "" {
		return nil, errx.Configuration("Mercado Libre API credentials not configured")
	}

	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	ttl := s.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if err := s.States.Save(ctx, state, ttl); err != nil {
		return nil, err
	}

	return &marketplace.OAuthState{AuthURL: s.IdP.AuthCodeURL(state), State: state}, nil
}

// newState returns 256 bits of randomness, hex encoded.
func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Exchange validates the callback, trades the code and fetches the profile.
// The token set is only returned together with the profile.
func (s *Service) Exchange(ctx context.Context, code, state string) (*marketplace.Authorization, error) {
	if code == "" {
		return nil, errx.Validation("Authorization code not provided")
	}
	if state == "" {
		return nil, errx.InvalidState("state not provided")
	}
	// checked before Consume so a config error leaves the state usable
	if err := s.requireSecret(); err != nil {
		return nil, err
	}
	ok, err := s.States.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errx.InvalidState("state is unknown, expired or already used")
	}

	tok, err := s.IdP.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.IdP.Me(ctx, tok.AccessToken)
	if err != nil {
		logx.Warn().Err(err).Msg("profile fetch failed after token exchange, dropping tokens")
		return nil, err
	}
	if tok.UserID == 0 {
		tok.UserID = user.ID
	}

	if s.Tokens != nil {
		if err := s.Tokens.Save(ctx, tok); err != nil {
			return nil, fmt.Errorf("store tokens: %w", err)
		}
	}

	logx.Info().
		Int64("user_id", user.ID).
		Str("nickname", user.Nickname).
		Int("access_token_len", len(tok.AccessToken)).
		Msg("marketplace integration completed")

	return &marketplace.Authorization{Tokens: *tok, User: *user}, nil
}

// Refresh trades a refresh token for a new set. Concurrent calls with the
// same refresh token share one upstream request. When userID is set the
// stored set is replaced.
func (s *Service) Refresh(ctx context.Context, refreshToken string, userID int64) (*marketplace.TokenSet, error) {
	if refreshToken == "" {
		return nil, errx.Validation("Refresh token not provided")
	}
	if err := s.requireSecret(); err != nil {
		return nil, err
	}

	v, err, shared := s.refreshes.Do(refreshToken, func() (any, error) {
		// detached so one caller leaving does not fail the others
		return s.IdP.Refresh(context.WithoutCancel(ctx), refreshToken)
	})
	if err != nil {
		return nil, err
	}
	// copy, shared callers must not see each other's mutations
	tok := *v.(*marketplace.TokenSet)
	if shared {
		logx.Debug().Msg("refresh coalesced with in-flight request")
	}

	if tok.UserID == 0 {
		tok.UserID = userID
	}
	if s.Tokens != nil && tok.UserID != 0 {
		if err := s.Tokens.Save(ctx, &tok); err != nil {
			return nil, fmt.Errorf("store tokens: %w", err)
		}
	}
	return &tok, nil
}

// StoredToken loads the persisted set for a seller, refreshing it first
// when it is about to expire.
func (s *Service) StoredToken(ctx context.Context, userID int64) (*marketplace.TokenSet, error) {
	if s.Tokens == nil {
		return nil, errx.Configuration("token storage is not configured")
	}
	if userID == 0 {
		return nil, errx.Validation("user_id is required")
	}

	tok, err := s.Tokens.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" || !tok.NeedsRefresh(s.now(), refreshBuffer) {
		return tok, nil
	}
	return s.Refresh(ctx, tok.RefreshToken, userID)
}

func (s *Service) requireSecret() error {
	if s.Creds.ClientID == "" || s.Creds.ClientSecret == "" || s.Creds.RedirectURI == "" {
		return errx.Configuration("Mercado Libre API credentials not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}
