package marketplace

import (
	"context"
	"encoding/json"
	"time"
)

// IdentityProvider port (OAuth2 endpoints of the marketplace)
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
	Me(ctx context.Context, accessToken string) (*UserIdentity, error)
}

// StateStore keeps issued anti-forgery states until they are consumed.
type StateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	// Consume reports whether state was issued and not yet used, and
	// invalidates it in the same step.
	Consume(ctx context.Context, state string) (bool, error)
}

// TokenRepository port (persistence of token sets, keyed by marketplace user id)
type TokenRepository interface {
	Save(ctx context.Context, t *TokenSet) error
	Load(ctx context.Context, userID int64) (*TokenSet, error)
}

// Catalog port for the seller's listings and the public search.
type Catalog interface {
	ItemIDs(ctx context.Context, accessToken string, userID int64) ([]string, error)
	Item(ctx context.Context, accessToken, itemID string) (*Item, error)
	Visits(ctx context.Context, accessToken, itemID string) (json.RawMessage, error)
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}
