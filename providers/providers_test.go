package providers

import (
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

func testDependencies() Dependencies {
	return Dependencies{
		Logger:           zap.NewNop(),
		HTTPClient:       http.DefaultClient,
		GraphBaseURL:     "https://graph.example.com",
		TwitterBaseURL:   "https://api.example.com/1.1",
		InstagramBaseURL: "https://insta.example.com",
	}
}

func TestNewByType(t *testing.T) {
	deps := testDependencies()

	for _, providerType := range []store.ProviderType{
		store.ProviderFacebook,
		store.ProviderInstagram,
		store.ProviderInstagramBasic,
		store.ProviderTwitter,
		store.ProviderRSS,
	} {
		record := &store.Provider{Type: providerType}

		provider, err := New(deps, record)
		if err != nil {
			t.Fatalf("%s: %v", providerType, err)
		}
		if provider.Type() != providerType {
			t.Fatalf("expected type %q, got %q", providerType, provider.Type())
		}
		if provider.Record() != record {
			t.Fatalf("%s: expected the provider to carry its record", providerType)
		}
	}
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(testDependencies(), &store.Provider{Type: "myspace"})

	var configErr *feed.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCredentialRefresherSurface(t *testing.T) {
	deps := testDependencies()

	refreshable, err := New(deps, &store.Provider{Type: store.ProviderFacebook})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := refreshable.(CredentialRefresher); !ok {
		t.Fatal("expected the facebook provider to refresh credentials")
	}

	static, err := New(deps, &store.Provider{Type: store.ProviderRSS})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := static.(CredentialRefresher); ok {
		t.Fatal("expected the rss provider to not refresh credentials")
	}
}

func TestAuthorizationFinalizerSurface(t *testing.T) {
	deps := testDependencies()

	authorizable, err := New(deps, &store.Provider{Type: store.ProviderInstagramBasic})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := authorizable.(AuthorizationFinalizer); !ok {
		t.Fatal("expected the instagram basic provider to finalize authorization")
	}
}
