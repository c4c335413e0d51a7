package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/providers/facebook"
	"gitlab.com/socialfeed/worker/providers/instagram"
	"gitlab.com/socialfeed/worker/providers/instagrambasic"
	"gitlab.com/socialfeed/worker/providers/rss"
	"gitlab.com/socialfeed/worker/providers/twitter"
	"gitlab.com/socialfeed/worker/store"
	"gitlab.com/socialfeed/worker/tokenex"
)

// Provider is one configured upstream integration. FetchRawFeed is the
// only place upstream-specific errors may originate; callers convert
// them into a stored error message so one failing provider never
// prevents others from being aggregated.
type Provider interface {
	Type() store.ProviderType
	Record() *store.Provider
	FetchRawFeed(ctx context.Context) ([]json.RawMessage, error)
	NormalizePost(raw json.RawMessage) (feed.Post, error)
}

// CredentialRefresher is implemented by chained-token providers.
type CredentialRefresher interface {
	RefreshCredentials(ctx context.Context, force bool) (bool, error)
}

// AuthorizationFinalizer is implemented by providers that complete an
// OAuth authorization-code flow through the callback endpoint.
type AuthorizationFinalizer interface {
	FinalizeAuthorization(ctx context.Context, params url.Values) error
}

// Dependencies is the wiring every concrete provider may draw from,
// owned by the top-level process.
type Dependencies struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	DB         *gorm.DB
	Tokens     *tokenex.Client

	GraphBaseURL     string
	TwitterBaseURL   string
	InstagramBaseURL string
}

// New constructs the provider implementation for a record's type tag.
// Unknown tags are rejected with a ConfigurationError.
func New(deps Dependencies, record *store.Provider) (Provider, error) {
	switch record.Type {
	case store.ProviderFacebook:
		return facebook.New(deps.Logger, deps.HTTPClient, deps.Tokens, deps.GraphBaseURL, record), nil
	case store.ProviderInstagram:
		return instagram.New(deps.Logger, deps.HTTPClient, deps.DB, deps.Tokens, deps.GraphBaseURL, record), nil
	case store.ProviderInstagramBasic:
		return instagrambasic.New(deps.Logger, deps.HTTPClient, deps.DB, deps.InstagramBaseURL, record), nil
	case store.ProviderTwitter:
		return twitter.New(deps.Logger, deps.HTTPClient, deps.TwitterBaseURL, record), nil
	case store.ProviderRSS:
		return rss.New(deps.Logger, deps.HTTPClient, record), nil
	default:
		return nil, &feed.ConfigurationError{
			Message: fmt.Sprintf("unknown feed provider type %q", record.Type),
		}
	}
}
