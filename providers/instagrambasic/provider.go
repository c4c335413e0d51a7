package instagrambasic

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

// Provider aggregates media from the administrator's own account via
// the Instagram basic API. Authorization uses a plain OAuth
// authorization-code exchange finalized through the callback endpoint.
type Provider struct {
	logger     *zap.Logger
	httpClient *http.Client
	db         *gorm.DB
	baseURL    string
	record     *store.Provider
}

func New(
	logger *zap.Logger,
	httpClient *http.Client,
	db *gorm.DB,
	baseURL string,
	record *store.Provider,
) *Provider {
	return &Provider{
		logger:     logger,
		httpClient: httpClient,
		db:         db,
		baseURL:    baseURL,
		record:     record,
	}
}

func (p *Provider) Type() store.ProviderType {
	return store.ProviderInstagramBasic
}

func (p *Provider) Record() *store.Provider {
	return p.record
}

// FetchRawFeed retrieves the account's recent media.
func (p *Provider) FetchRawFeed(ctx context.Context) ([]json.RawMessage, error) {
	if p.record.InstagramUsername == "" {
		return nil, &feed.ConfigurationError{Message: "instagrambasic: no username provided"}
	}
	if p.record.InstagramUserID == "" {
		return nil, &feed.ConfigurationError{Message: "instagrambasic: no user id provided"}
	}
	if p.record.InstagramAccessToken == "" {
		return nil, &feed.UpstreamAuthError{
			Message: "instagrambasic: no access token, authorization required",
		}
	}

	query := url.Values{}
	query.Set("access_token", p.record.InstagramAccessToken)

	requestURL := fmt.Sprintf(
		"%s/v1/users/%s/media/recent?%s",
		p.baseURL, url.PathEscape(p.record.InstagramUserID), query.Encode(),
	)

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failure creating instagram api request")
	}

	resp, err := p.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "instagrambasic: feed request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &feed.UpstreamFetchError{
			Message: "instagrambasic: failure reading feed response", Err: err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.UpstreamFetchError{
			Message: fmt.Sprintf("instagrambasic: unexpected status code %d", resp.StatusCode),
		}
	}

	var response struct {
		Data []json.RawMessage `json:"data"`
	}
	err = json.Unmarshal(body, &response)
	if err != nil {
		return nil, &feed.UpstreamFetchError{
			Message: "instagrambasic: failure parsing feed response", Err: err,
		}
	}

	return response.Data, nil
}

// FinalizeAuthorization completes the authorization-code flow started by
// an administrator, exchanging the code for an access token and
// persisting it on the provider record.
func (p *Provider) FinalizeAuthorization(ctx context.Context, params url.Values) error {
	code := params.Get("code")
	if code == "" {
		return &feed.ValidationError{Message: "no 'code' param provided"}
	}

	if p.record.ClientID == "" || p.record.ClientSecret == "" {
		return &feed.ConfigurationError{
			Message: fmt.Sprintf(
				"missing configuration for provider #%d - client id and/or secret",
				p.record.ID,
			),
		}
	}

	form := url.Values{}
	form.Set("client_id", p.record.ClientID)
	form.Set("client_secret", p.record.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", params.Get("redirect_uri"))
	form.Set("code", code)

	req, err := http.NewRequest(
		http.MethodPost,
		p.baseURL+"/oauth/access_token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return errors.Wrap(err, "failure creating authorization request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return &feed.UpstreamAuthError{
			Message: "instagrambasic: authorization request failed: " + err.Error(),
		}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failure reading authorization response body")
	}

	var response struct {
		AccessToken string `json:"access_token"`
	}
	err = json.Unmarshal(body, &response)
	if err != nil {
		return errors.Wrap(err, "failure parsing authorization response body")
	}

	if response.AccessToken == "" {
		return &feed.UpstreamAuthError{
			Message: "no access_token found in authorization response",
		}
	}

	err = store.ProviderSetInstagramAccessToken(p.db, p.record.ID, response.AccessToken)
	if err != nil {
		return errors.Wrap(err, "failure persisting instagram access token")
	}
	p.record.InstagramAccessToken = response.AccessToken

	p.logger.Info("finalized instagram basic authorization",
		zap.Uint("provider_id", p.record.ID),
	)

	return nil
}
