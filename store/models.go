package store

import (
	"time"

	"github.com/jinzhu/gorm"
)

// ProviderType tags one configured upstream integration. The set is
// closed; unknown tags are rejected at provider construction.
type ProviderType string

const (
	ProviderFacebook       ProviderType = "facebook"
	ProviderInstagram      ProviderType = "instagram"
	ProviderInstagramBasic ProviderType = "instagrambasic"
	ProviderTwitter        ProviderType = "twitter"
	ProviderRSS            ProviderType = "rss"
)

// Valid reports whether the tag is part of the closed provider set.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderFacebook, ProviderInstagram, ProviderInstagramBasic,
		ProviderTwitter, ProviderRSS:
		return true
	}
	return false
}

// Provider is one configured integration with an upstream social
// network. Credential fields are mutated only by the token exchange
// client or by administrative edit.
type Provider struct {
	gorm.Model

	Type    ProviderType
	Label   string
	Enabled bool

	// LastFeedError holds the most recent provider-level failure,
	// cleared on the next successful fetch.
	LastFeedError string

	// Graph API credentials (facebook, instagram)
	PageID    string
	AppID     string
	AppSecret string

	// IncludeComments selects the page /feed edge instead of /posts.
	IncludeComments bool

	// Chained token slots. UserAccessToken is the short-lived token
	// entered by an administrator. A nil expiry means the token never
	// expires.
	UserAccessToken        string
	LongLivedToken         string
	LongLivedTokenExpires  *time.Time
	PageAccessToken        string
	PageAccessTokenCreated *time.Time
	PageAccessTokenExpires *time.Time

	// Instagram via Graph API business discovery
	InstagramUsername          string
	InstagramBusinessAccountID string

	// Instagram basic display
	ClientID             string
	ClientSecret         string
	InstagramUserID      string
	InstagramAccessToken string

	// Twitter
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	ScreenName        string

	// RSS
	FeedURL string

	// CacheLifetime is the feed cache TTL in seconds, 0 uses the
	// configured default.
	CacheLifetime int
}

func (*Provider) TableName() string {
	return "social_feed_providers"
}
