package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

const timelineCount = "25"

// Provider aggregates tweets from a single account's timeline using
// application-only bearer authentication.
type Provider struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	record     *store.Provider
}

func New(
	logger *zap.Logger,
	httpClient *http.Client,
	baseURL string,
	record *store.Provider,
) *Provider {
	return &Provider{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    baseURL,
		record:     record,
	}
}

func (p *Provider) Type() store.ProviderType {
	return store.ProviderTwitter
}

func (p *Provider) Record() *store.Provider {
	return p.record
}

// FetchRawFeed retrieves the account's recent tweets, excluding replies.
func (p *Provider) FetchRawFeed(ctx context.Context) ([]json.RawMessage, error) {
	if p.record.ScreenName == "" {
		return nil, &feed.ConfigurationError{Message: "twitter: no screen name provided"}
	}
	if p.record.AccessToken == "" {
		return nil, &feed.ConfigurationError{Message: "twitter: no bearer token provided"}
	}

	query := url.Values{}
	query.Set("screen_name", p.record.ScreenName)
	query.Set("count", timelineCount)
	query.Set("exclude_replies", "true")
	query.Set("tweet_mode", "extended")

	requestURL := fmt.Sprintf(
		"%s/statuses/user_timeline.json?%s",
		p.baseURL, query.Encode(),
	)

	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failure creating twitter api request")
	}
	req.Header.Set("Authorization", "Bearer "+p.record.AccessToken)

	resp, err := p.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "twitter: timeline request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &feed.UpstreamFetchError{
			Message: "twitter: failure reading timeline response", Err: err,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &feed.UpstreamAuthError{
			Message: fmt.Sprintf("twitter: authentication rejected with status code %d", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &feed.UpstreamFetchError{
			Message: fmt.Sprintf("twitter: unexpected status code %d", resp.StatusCode),
		}
	}

	var tweets []json.RawMessage
	err = json.Unmarshal(body, &tweets)
	if err != nil {
		return nil, &feed.UpstreamFetchError{
			Message: "twitter: failure parsing timeline response", Err: err,
		}
	}

	return tweets, nil
}
