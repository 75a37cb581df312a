package marketplace

import (
	"encoding/json"
	"time"
)

// OAuthState is created per authorization attempt.
type OAuthState struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

// TokenSet is the access/refresh pair returned by the identity provider.
type TokenSet struct {
	UserID       int64     `json:"user_id,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NeedsRefresh reports whether the token expires within buffer.
func (t *TokenSet) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(t.ExpiresAt)
}

// UserIdentity is the "who am I" projection of the seller account.
type UserIdentity struct {
	ID         int64  `json:"id"`
	Nickname   string `json:"nickname"`
	Email      string `json:"email"`
	CountryID  string `json:"country_id"`
	SiteStatus string `json:"site_status"`
}

// Authorization is the terminal success of a code exchange.
type Authorization struct {
	Tokens TokenSet     `json:"tokens"`
	User   UserIdentity `json:"user"`
}

// Item is the raw listing as returned by the items endpoint; only the fields
// projected into Product are decoded.
type Item struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Price             float64         `json:"price"`
	CurrencyID        string          `json:"currency_id"`
	CategoryID        string          `json:"category_id"`
	Condition         string          `json:"condition"`
	Status            string          `json:"status"`
	AvailableQuantity int             `json:"available_quantity"`
	SoldQuantity      int             `json:"sold_quantity"`
	Pictures          []Picture       `json:"pictures"`
	Permalink         string          `json:"permalink"`
	ListingTypeID     string          `json:"listing_type_id"`
	Shipping          json.RawMessage `json:"shipping,omitempty"`
	SellerCustomField *string         `json:"seller_custom_field"`
	Attributes        json.RawMessage `json:"attributes,omitempty"`
}

type Picture struct {
	URL string `json:"url"`
}

// Product is the synced projection of an Item.
type Product struct {
	MLID              string          `json:"ml_id"`
	Title             string          `json:"title"`
	Price             float64         `json:"price"`
	CurrencyID        string          `json:"currency_id"`
	CategoryID        string          `json:"category_id"`
	Condition         string          `json:"condition"`
	Status            string          `json:"status"`
	AvailableQuantity int             `json:"available_quantity"`
	SoldQuantity      int             `json:"sold_quantity"`
	Pictures          []string        `json:"pictures"`
	Permalink         string          `json:"permalink"`
	ListingTypeID     string          `json:"listing_type_id"`
	Shipping          json.RawMessage `json:"shipping,omitempty"`
	SellerCustomField *string         `json:"seller_custom_field"`
	Attributes        json.RawMessage `json:"attributes,omitempty"`
	LastUpdated       time.Time       `json:"last_updated"`
	SyncedAt          time.Time       `json:"synced_at"`
}

// ToProduct projects an item at sync time.
func (it Item) ToProduct(now time.Time) Product {
	pics := make([]string, 0, len(it.Pictures))
	for _, p := range it.Pictures {
		pics = append(pics, p.URL)
	}
	return Product{
		MLID:              it.ID,
		Title:             it.Title,
		Price:             it.Price,
		CurrencyID:        it.CurrencyID,
		CategoryID:        it.CategoryID,
		Condition:         it.Condition,
		Status:            it.Status,
		AvailableQuantity: it.AvailableQuantity,
		SoldQuantity:      it.SoldQuantity,
		Pictures:          pics,
		Permalink:         it.Permalink,
		ListingTypeID:     it.ListingTypeID,
		Shipping:          it.Shipping,
		SellerCustomField: it.SellerCustomField,
		Attributes:        it.Attributes,
		LastUpdated:       now,
		SyncedAt:          now,
	}
}

// Competitor is one search hit.
type Competitor struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Price          float64         `json:"price"`
	CurrencyID     string          `json:"currency_id"`
	SellerID       int64           `json:"seller_id"`
	SellerNickname string          `json:"seller_nickname"`
	Condition      string          `json:"condition"`
	Thumbnail      string          `json:"thumbnail"`
	Permalink      string          `json:"permalink"`
	Shipping       json.RawMessage `json:"shipping,omitempty"`
	Attributes     json.RawMessage `json:"attributes,omitempty"`
	CategoryID     string          `json:"category_id"`
}

// SearchQuery parameters for a competitor search.
type SearchQuery struct {
	CategoryID string `json:"category_id,omitempty"`
	Keywords   string `json:"keywords,omitempty"`
	Limit      int    `json:"limit"`
}

// SearchResult is a page of competitors.
type SearchResult struct {
	Competitors []Competitor `json:"competitors"`
	TotalFound  int          `json:"total_found"`
}
