package facebook

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
	"gitlab.com/socialfeed/worker/tokenex"
)

// postFields is supplied explicitly because the Graph API returns a
// minimal fieldset by default.
const postFields = "from,message,message_tags,story,story_tags,full_picture,picture," +
	"attachments,source,link,object_id,name,caption,description,icon," +
	"type,status_type,created_time,updated_time"

// Provider aggregates posts from a Facebook page via the Graph API. The
// token exchange client is injected, so other chained-token providers
// can share it without any subtyping relationship.
type Provider struct {
	logger     *zap.Logger
	httpClient *http.Client
	tokens     *tokenex.Client
	baseURL    string
	record     *store.Provider
}

func New(
	logger *zap.Logger,
	httpClient *http.Client,
	tokens *tokenex.Client,
	baseURL string,
	record *store.Provider,
) *Provider {
	return &Provider{
		logger:     logger,
		httpClient: httpClient,
		tokens:     tokens,
		baseURL:    baseURL,
		record:     record,
	}
}

func (p *Provider) Type() store.ProviderType {
	return store.ProviderFacebook
}

func (p *Provider) Record() *store.Provider {
	return p.record
}

// RefreshCredentials runs the chained token exchange for the page.
func (p *Provider) RefreshCredentials(ctx context.Context, force bool) (bool, error) {
	return p.tokens.EnsureFreshToken(ctx, p.record, force)
}

// FetchRawFeed retrieves the page posts, refreshing the page access
// token first when none is stored.
func (p *Provider) FetchRawFeed(ctx context.Context) ([]json.RawMessage, error) {
	if p.record.PageID == "" || p.record.AppID == "" || p.record.AppSecret == "" {
		return nil, &feed.ConfigurationError{
			Message: "facebook: missing page id, app id, or app secret",
		}
	}

	ok, err := p.tokens.EnsureFreshToken(ctx, p.record, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &feed.UpstreamAuthError{
			Message: "facebook: could not create or retrieve a page access token",
		}
	}

	edge := "posts"
	if p.record.IncludeComments {
		edge = "feed"
	}

	query := url.Values{}
	// unix timestamps in the response
	query.Set("date_format", "U")
	query.Set("fields", postFields)
	query.Set("access_token", p.record.PageAccessToken)
	query.Set("appsecret_proof", tokenex.AppSecretProof(p.record.PageAccessToken, p.record.AppSecret))

	requestURL := fmt.Sprintf(
		"%s/%s/%s?%s",
		p.baseURL, url.PathEscape(p.record.PageID), edge, query.Encode(),
	)

	var response struct {
		Data []json.RawMessage `json:"data"`
	}
	err = getJSON(ctx, p.httpClient, requestURL, &response)
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "facebook: feed request failed", Err: err}
	}

	return response.Data, nil
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
