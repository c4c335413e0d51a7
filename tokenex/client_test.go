package tokenex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

type fakeStore struct {
	setTokensCalls int

	providerID       uint
	longLivedToken   string
	longLivedExpires *time.Time
	pageToken        string
	pageTokenCreated time.Time

	err error
}

func (s *fakeStore) SetTokens(
	providerID uint,
	longLivedToken string,
	longLivedExpires *time.Time,
	pageToken string,
	pageTokenCreated time.Time,
) error {
	if s.err != nil {
		return s.err
	}
	s.setTokensCalls++
	s.providerID = providerID
	s.longLivedToken = longLivedToken
	s.longLivedExpires = longLivedExpires
	s.pageToken = pageToken
	s.pageTokenCreated = pageTokenCreated
	return nil
}

func (s *fakeStore) SetPageTokenMeta(providerID uint, created, expires *time.Time) error {
	return nil
}

func graphStub(t *testing.T, exchangeBody, pageBody string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			if r.URL.Query().Get("grant_type") != "fb_exchange_token" {
				t.Errorf("unexpected grant_type: %s", r.URL.Query().Get("grant_type"))
			}
			w.Write([]byte(exchangeBody))
		case "/page-1":
			if r.URL.Query().Get("appsecret_proof") == "" {
				t.Error("expected an appsecret_proof on the page token request")
			}
			w.Write([]byte(pageBody))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testProvider() *store.Provider {
	p := &store.Provider{
		Type:            store.ProviderFacebook,
		Enabled:         true,
		PageID:          "page-1",
		AppID:           "app-1",
		AppSecret:       "secret-1",
		UserAccessToken: "short-lived",
	}
	p.ID = 42
	return p
}

func TestEnsureFreshTokenRunsFullChain(t *testing.T) {
	server := graphStub(t,
		`{"access_token": "L", "expires_in": 5184000}`,
		`{"access_token": "P"}`,
	)
	defer server.Close()

	providerStore := &fakeStore{}
	client := New(server.Client(), server.URL, providerStore, zap.NewNop())

	provider := testProvider()
	before := time.Now().UTC()

	ok, err := client.EnsureFreshToken(context.Background(), provider, false)
	if err != nil {
		t.Fatalf("EnsureFreshToken failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a successful refresh")
	}

	if provider.LongLivedToken != "L" {
		t.Errorf("got long-lived token %q, want L", provider.LongLivedToken)
	}
	if provider.PageAccessToken != "P" {
		t.Errorf("got page token %q, want P", provider.PageAccessToken)
	}

	if provider.LongLivedTokenExpires == nil {
		t.Fatal("expected a long-lived token expiry")
	}
	wantExpiry := before.Add(5184000 * time.Second)
	diff := provider.LongLivedTokenExpires.Sub(wantExpiry)
	if diff < -time.Second || diff > time.Second {
		t.Errorf("expiry off by %s, want within 1s of now + 5184000s", diff)
	}

	if providerStore.setTokensCalls != 1 {
		t.Errorf("expected a single persistence write, got %d", providerStore.setTokensCalls)
	}
	if providerStore.pageToken != "P" || providerStore.longLivedToken != "L" {
		t.Error("persisted token material does not match the exchange result")
	}
}

func TestEnsureFreshTokenSkipsWhenTokenPresent(t *testing.T) {
	providerStore := &fakeStore{}
	client := New(http.DefaultClient, "http://unused.invalid", providerStore, zap.NewNop())

	provider := testProvider()
	provider.PageAccessToken = "existing"

	ok, err := client.EnsureFreshToken(context.Background(), provider, false)
	if err != nil {
		t.Fatalf("EnsureFreshToken failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the existing token to be reported fresh")
	}
	if providerStore.setTokensCalls != 0 {
		t.Error("no write should happen when the token is already present")
	}
}

func TestEnsureFreshTokenShortCircuitsWithoutUserToken(t *testing.T) {
	providerStore := &fakeStore{}
	client := New(http.DefaultClient, "http://unused.invalid", providerStore, zap.NewNop())

	provider := testProvider()
	provider.UserAccessToken = ""

	ok, err := client.EnsureFreshToken(context.Background(), provider, false)
	if err != nil {
		t.Fatalf("a missing user token is not a hard failure: %v", err)
	}
	if ok {
		t.Error("expected ok=false when no user token is configured")
	}
}

func TestEnsureFreshTokenMissingAccessTokenInExchange(t *testing.T) {
	server := graphStub(t, `{"token_type": "bearer"}`, `{"access_token": "P"}`)
	defer server.Close()

	providerStore := &fakeStore{}
	client := New(server.Client(), server.URL, providerStore, zap.NewNop())

	provider := testProvider()
	provider.PageAccessToken = "previously-valid"

	_, err := client.EnsureFreshToken(context.Background(), provider, true)
	if err == nil {
		t.Fatal("expected an error when the exchange response lacks access_token")
	}

	var authErr *feed.UpstreamAuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected an UpstreamAuthError in the chain, got %v", err)
	}
	var refreshErr *feed.TokenRefreshError
	if !errors.As(err, &refreshErr) {
		t.Errorf("expected the failure wrapped as TokenRefreshError, got %v", err)
	}

	if provider.PageAccessToken != "previously-valid" {
		t.Error("a failed refresh must leave the previously stored token untouched")
	}
	if providerStore.setTokensCalls != 0 {
		t.Error("nothing must be persisted on a failed refresh")
	}
}

func TestEnsureFreshTokenMissingAccessTokenInPageStep(t *testing.T) {
	server := graphStub(t, `{"access_token": "L", "expires_in": 60}`, `{"id": "page-1"}`)
	defer server.Close()

	providerStore := &fakeStore{}
	client := New(server.Client(), server.URL, providerStore, zap.NewNop())

	provider := testProvider()
	provider.PageAccessToken = "previously-valid"

	_, err := client.EnsureFreshToken(context.Background(), provider, true)
	if err == nil {
		t.Fatal("expected an error when the page response lacks access_token")
	}

	var authErr *feed.UpstreamAuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected an UpstreamAuthError in the chain, got %v", err)
	}
	if provider.PageAccessToken != "previously-valid" {
		t.Error("a failed refresh must leave the previously stored token untouched")
	}
}

func TestExchangeUserTokenNoExpiryMeansNever(t *testing.T) {
	server := graphStub(t, `{"access_token": "L"}`, `{}`)
	defer server.Close()

	client := New(server.Client(), server.URL, &fakeStore{}, zap.NewNop())

	token, expiresAt, err := client.ExchangeUserToken(context.Background(), "s", "a", "x")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if token != "L" {
		t.Errorf("got token %q, want L", token)
	}
	if expiresAt != nil {
		t.Errorf("absent expires_in must yield a nil expiry, got %v", expiresAt)
	}
}

func TestAppSecretProof(t *testing.T) {
	// echo -n "token" | openssl dgst -sha256 -hmac "secret"
	proof := AppSecretProof("token", "secret")
	want := "e941110e3d2bfe82621f0e3e1434730d7305d106c5f68c87165d0b27a4611a4a"
	if proof != want {
		t.Errorf("got %s, want %s", proof, want)
	}
}

func TestDebugTokenZeroExpiryMeansNever(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debug_token" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data": {"is_valid": true, "expires_at": 0, "issued_at": 1347235328}}`))
	}))
	defer server.Close()

	client := New(server.Client(), server.URL, &fakeStore{}, zap.NewNop())

	info, err := client.DebugToken(context.Background(), "P", "U", "x")
	if err != nil {
		t.Fatalf("debug token failed: %v", err)
	}
	if !info.Valid {
		t.Error("expected the token to be reported valid")
	}
	if info.ExpiresAt != nil {
		t.Errorf("expires_at of 0 must be reported as nil, got %v", info.ExpiresAt)
	}
	if info.IssuedAt == nil || info.IssuedAt.Unix() != 1347235328 {
		t.Errorf("unexpected issued_at: %v", info.IssuedAt)
	}
}
