package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
	"gitlab.com/socialfeed/worker/tokenex"
)

// Provider aggregates Instagram media through the Graph API business
// discovery edge, reusing the same chained page-token credentials as the
// Facebook provider via a shared token exchange client.
type Provider struct {
	logger     *zap.Logger
	httpClient *http.Client
	db         *gorm.DB
	tokens     *tokenex.Client
	baseURL    string
	record     *store.Provider
}

func New(
	logger *zap.Logger,
	httpClient *http.Client,
	db *gorm.DB,
	tokens *tokenex.Client,
	baseURL string,
	record *store.Provider,
) *Provider {
	return &Provider{
		logger:     logger,
		httpClient: httpClient,
		db:         db,
		tokens:     tokens,
		baseURL:    baseURL,
		record:     record,
	}
}

func (p *Provider) Type() store.ProviderType {
	return store.ProviderInstagram
}

func (p *Provider) Record() *store.Provider {
	return p.record
}

// RefreshCredentials runs the chained token exchange for the linked
// Facebook page.
func (p *Provider) RefreshCredentials(ctx context.Context, force bool) (bool, error) {
	return p.tokens.EnsureFreshToken(ctx, p.record, force)
}

// FetchRawFeed retrieves the account media via business discovery,
// resolving and persisting the instagram business account id when it is
// not stored yet.
func (p *Provider) FetchRawFeed(ctx context.Context) ([]json.RawMessage, error) {
	if p.record.InstagramUsername == "" {
		return nil, &feed.ConfigurationError{Message: "instagram: no username provided"}
	}

	ok, err := p.tokens.EnsureFreshToken(ctx, p.record, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &feed.UpstreamAuthError{
			Message: "instagram: could not create or retrieve a page access token",
		}
	}

	if p.record.InstagramBusinessAccountID == "" {
		accountID, err := p.resolveBusinessAccountID(ctx)
		if err != nil {
			return nil, err
		}

		err = store.ProviderSetInstagramBusinessAccountID(p.db, p.record.ID, accountID)
		if err != nil {
			return nil, errors.Wrap(err, "failure persisting instagram business account id")
		}
		p.record.InstagramBusinessAccountID = accountID
	}

	fields := fmt.Sprintf(
		"business_discovery.username(%s){followers_count,media_count,"+
			"media{caption,media_type,media_url,thumbnail_url,permalink,timestamp,username}}",
		p.record.InstagramUsername,
	)

	query := url.Values{}
	query.Set("fields", fields)
	query.Set("access_token", p.record.PageAccessToken)
	query.Set("appsecret_proof", tokenex.AppSecretProof(p.record.PageAccessToken, p.record.AppSecret))

	requestURL := fmt.Sprintf(
		"%s/%s?%s",
		p.baseURL, url.PathEscape(p.record.InstagramBusinessAccountID), query.Encode(),
	)

	var response struct {
		BusinessDiscovery struct {
			Media struct {
				Data []json.RawMessage `json:"data"`
			} `json:"media"`
		} `json:"business_discovery"`
	}
	err = getJSON(ctx, p.httpClient, requestURL, &response)
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "instagram: feed request failed", Err: err}
	}

	return response.BusinessDiscovery.Media.Data, nil
}

func (p *Provider) resolveBusinessAccountID(ctx context.Context) (string, error) {
	if p.record.PageID == "" {
		return "", &feed.ConfigurationError{Message: "instagram: no facebook page id provided"}
	}

	query := url.Values{}
	query.Set("fields", "instagram_business_account")
	query.Set("access_token", p.record.PageAccessToken)
	query.Set("appsecret_proof", tokenex.AppSecretProof(p.record.PageAccessToken, p.record.AppSecret))

	requestURL := fmt.Sprintf(
		"%s/%s?%s",
		p.baseURL, url.PathEscape(p.record.PageID), query.Encode(),
	)

	var response struct {
		InstagramBusinessAccount struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	err := getJSON(ctx, p.httpClient, requestURL, &response)
	if err != nil {
		return "", &feed.UpstreamFetchError{
			Message: "instagram: business account lookup failed", Err: err,
		}
	}

	if response.InstagramBusinessAccount.ID == "" {
		return "", &feed.UpstreamFetchError{
			Message: "instagram: no instagram_business_account.id in lookup response",
		}
	}

	return response.InstagramBusinessAccount.ID, nil
}

// nolint: dupl
func getJSON(ctx context.Context, client *http.Client, requestURL string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return errors.Wrap(err, "failure creating graph api request")
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "failure performing graph api request")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failure reading graph api response body")
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("received unexpected status code from graph api: %d", resp.StatusCode)
	}

	return json.Unmarshal(body, target)
}
