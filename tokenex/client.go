package tokenex

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

// ProviderStore persists token material for a provider record.
type ProviderStore interface {
	SetTokens(
		providerID uint,
		longLivedToken string,
		longLivedExpires *time.Time,
		pageToken string,
		pageTokenCreated time.Time,
	) error
	SetPageTokenMeta(providerID uint, created, expires *time.Time) error
}

// Client performs the chained token exchange against the Graph API:
// short-lived user token, long-lived user token, derived page access
// token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	store      ProviderStore
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// New creates a token exchange client. baseURL points at the Graph API
// root without a trailing slash.
func New(httpClient *http.Client, baseURL string, providerStore ProviderStore, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		store:      providerStore,
		logger:     logger,
		locks:      make(map[uint]*sync.Mutex),
	}
}

// AppSecretProof computes the hex HMAC-SHA256 signature of a token with
// the app secret, sent alongside requests as an anti-tampering proof.
func AppSecretProof(token, appSecret string) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeUserToken exchanges a short-lived user token for a long-lived
// one. The returned expiry is computed in UTC from the upstream relative
// lifetime; nil means the token never expires.
func (c *Client) ExchangeUserToken(ctx context.Context, shortLivedToken, appID, appSecret string) (string, *time.Time, error) {
	query := url.Values{}
	query.Set("client_id", appID)
	query.Set("client_secret", appSecret)
	query.Set("grant_type", "fb_exchange_token")
	query.Set("fb_exchange_token", shortLivedToken)

	var response tokenResponse
	err := c.get(ctx, c.baseURL+"/oauth/access_token?"+query.Encode(), &response)
	if err != nil {
		return "", nil, err
	}

	if response.AccessToken == "" {
		return "", nil, &feed.UpstreamAuthError{
			Message: "no access_token in exchange token response",
		}
	}

	var expiresAt *time.Time
	if response.ExpiresIn > 0 {
		expiry := time.Now().UTC().Add(time.Duration(response.ExpiresIn) * time.Second)
		expiresAt = &expiry
	}

	return response.AccessToken, expiresAt, nil
}

// DerivePageToken requests a page access token using the long-lived user
// token and its app-secret proof.
func (c *Client) DerivePageToken(ctx context.Context, longLivedToken, pageID, appSecret string) (string, error) {
	query := url.Values{}
	query.Set("fields", "access_token")
	query.Set("access_token", longLivedToken)
	query.Set("appsecret_proof", AppSecretProof(longLivedToken, appSecret))

	var response tokenResponse
	err := c.get(ctx, c.baseURL+"/"+url.PathEscape(pageID)+"?"+query.Encode(), &response)
	if err != nil {
		return "", err
	}

	if response.AccessToken == "" {
		return "", &feed.UpstreamAuthError{
			Message: "no access_token in page access token response",
		}
	}

	return response.AccessToken, nil
}

// EnsureFreshToken makes sure the provider holds a usable page access
// token, running the full exchange chain when the derived token is
// missing or a refresh is forced. It returns false without error when no
// short-lived user token is configured, since fetching simply cannot
// proceed yet. New token material is persisted in a single write; a
// failed refresh never clobbers previously stored tokens.
func (c *Client) EnsureFreshToken(ctx context.Context, provider *store.Provider, force bool) (bool, error) {
	if provider.PageAccessToken != "" && !force {
		return true, nil
	}

	if provider.UserAccessToken == "" {
		return false, nil
	}

	if provider.AppID == "" || provider.AppSecret == "" || provider.PageID == "" {
		return false, &feed.ConfigurationError{
			Message: fmt.Sprintf("provider #%d: missing app id, app secret, or page id", provider.ID),
		}
	}

	lock := c.refreshLock(provider.ID)
	lock.Lock()
	defer lock.Unlock()

	longLivedToken, longLivedExpires, err := c.ExchangeUserToken(
		ctx, provider.UserAccessToken, provider.AppID, provider.AppSecret,
	)
	if err != nil {
		return false, &feed.TokenRefreshError{Err: err}
	}

	pageToken, err := c.DerivePageToken(ctx, longLivedToken, provider.PageID, provider.AppSecret)
	if err != nil {
		return false, &feed.TokenRefreshError{Err: err}
	}

	created := time.Now().UTC()
	err = c.store.SetTokens(provider.ID, longLivedToken, longLivedExpires, pageToken, created)
	if err != nil {
		return false, &feed.TokenRefreshError{
			Err: errors.Wrap(err, "failure persisting tokens"),
		}
	}

	provider.LongLivedToken = longLivedToken
	provider.LongLivedTokenExpires = longLivedExpires
	provider.PageAccessToken = pageToken
	provider.PageAccessTokenCreated = &created

	c.logger.Info("refreshed page access token",
		zap.Uint("provider_id", provider.ID),
	)

	return true, nil
}

// TokenInfo is the metadata reported by the token debug endpoint. A nil
// ExpiresAt means the token never expires.
type TokenInfo struct {
	Valid     bool
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

type debugTokenResponse struct {
	Data struct {
		IsValid   bool  `json:"is_valid"`
		ExpiresAt int64 `json:"expires_at"`
		IssuedAt  int64 `json:"issued_at"`
	} `json:"data"`
}

// DebugToken inspects a derived page token, returning its validity and
// lifetime metadata. An upstream expires_at of zero is reported as a nil
// expiry.
func (c *Client) DebugToken(ctx context.Context, pageToken, userToken, appSecret string) (*TokenInfo, error) {
	query := url.Values{}
	query.Set("input_token", pageToken)
	query.Set("access_token", userToken)
	query.Set("appsecret_proof", AppSecretProof(userToken, appSecret))

	var response debugTokenResponse
	err := c.get(ctx, c.baseURL+"/debug_token?"+query.Encode(), &response)
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{Valid: response.Data.IsValid}
	if response.Data.ExpiresAt > 0 {
		expiry := time.Unix(response.Data.ExpiresAt, 0).UTC()
		info.ExpiresAt = &expiry
	}
	if response.Data.IssuedAt > 0 {
		issued := time.Unix(response.Data.IssuedAt, 0).UTC()
		info.IssuedAt = &issued
	}

	return info, nil
}

func (c *Client) get(ctx context.Context, requestURL string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, requestURL, nil)
	if err != nil {
		return errors.Wrap(err, "failure creating token exchange request")
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "failure performing token exchange request")
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failure reading token exchange response body")
	}

	if resp.StatusCode != http.StatusOK {
		return &feed.UpstreamAuthError{
			Message: fmt.Sprintf("unexpected status code %d from token endpoint", resp.StatusCode),
		}
	}

	err = json.Unmarshal(body, target)
	if err != nil {
		return errors.Wrap(err, "failure parsing token exchange response body")
	}

	return nil
}

// refreshLock returns the per-provider mutex guarding the token
// read-modify-write so two concurrent refreshes cannot interleave a
// partial update.
func (c *Client) refreshLock(providerID uint) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[providerID] = lock
	}
	return lock
}
