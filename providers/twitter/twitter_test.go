package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

func testRecord() *store.Provider {
	record := &store.Provider{
		Type:        store.ProviderTwitter,
		ScreenName:  "example",
		AccessToken: "bearer-token",
	}
	record.ID = 2
	return record
}

func TestFetchRawFeed(t *testing.T) {
	var requestedAuth string
	var requestedQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedAuth = r.Header.Get("Authorization")
		requestedQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id_str":"1"},{"id_str":"2"},{"id_str":"3"}]`)) // nolint: errcheck
	}))
	defer server.Close()

	provider := New(zap.NewNop(), server.Client(), server.URL, testRecord())

	raw, err := provider.FetchRawFeed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 tweets, got %d", len(raw))
	}

	if requestedAuth != "Bearer bearer-token" {
		t.Fatalf("unexpected authorization header %q", requestedAuth)
	}
	if got := requestedQuery["screen_name"]; len(got) != 1 || got[0] != "example" {
		t.Fatalf("unexpected screen_name %v", got)
	}
	if got := requestedQuery["exclude_replies"]; len(got) != 1 || got[0] != "true" {
		t.Fatalf("unexpected exclude_replies %v", got)
	}
}

func TestFetchRawFeedUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"code":89}]}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := New(zap.NewNop(), server.Client(), server.URL, testRecord())

	_, err := provider.FetchRawFeed(context.Background())
	var authErr *feed.UpstreamAuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected upstream auth error, got %v", err)
	}
}

func TestFetchRawFeedMissingConfig(t *testing.T) {
	record := testRecord()
	record.ScreenName = ""

	provider := New(zap.NewNop(), http.DefaultClient, "http://example.invalid", record)

	_, err := provider.FetchRawFeed(context.Background())
	var configErr *feed.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNormalizePost(t *testing.T) {
	provider := New(zap.NewNop(), http.DefaultClient, "", testRecord())

	raw := json.RawMessage(`{
		"id_str": "1080000000000000001",
		"full_text": "read https://example.com/post",
		"created_at": "Tue Jan 01 10:30:00 +0000 2019",
		"user": {"id_str": "42", "name": "Example Account", "screen_name": "example"},
		"entities": {"media": [{"media_url_https": "https://pbs.example.com/img.jpg"}]}
	}`)

	post, err := provider.NormalizePost(raw)
	if err != nil {
		t.Fatal(err)
	}

	if post.ProviderType != "twitter" {
		t.Fatalf("unexpected provider type %q", post.ProviderType)
	}
	expectedURL := "https://twitter.com/42/status/1080000000000000001"
	if post.URL != expectedURL {
		t.Fatalf("unexpected url %q", post.URL)
	}
	expectedTime := time.Date(2019, 1, 1, 10, 30, 0, 0, time.UTC)
	if !post.CreatedAt.Equal(expectedTime) {
		t.Fatalf("unexpected created at %v", post.CreatedAt)
	}
	expectedContent := `read <a href="https://example.com/post" target="_blank">https://example.com/post</a>`
	if post.Content != expectedContent {
		t.Fatalf("unexpected content %q", post.Content)
	}
	if post.Image != "https://pbs.example.com/img.jpg" {
		t.Fatalf("unexpected image %q", post.Image)
	}
	if post.ImageLowRes != "https://pbs.example.com/img.jpg:small" {
		t.Fatalf("unexpected low res image %q", post.ImageLowRes)
	}
	if post.ImageThumb != "https://pbs.example.com/img.jpg:thumb" {
		t.Fatalf("unexpected thumbnail %q", post.ImageThumb)
	}
}

func TestNormalizePostWithoutMedia(t *testing.T) {
	provider := New(zap.NewNop(), http.DefaultClient, "", testRecord())

	post, err := provider.NormalizePost(json.RawMessage(
		`{"id_str": "5", "text": "plain tweet", "created_at": "Tue Jan 01 10:30:00 +0000 2019", "user": {"id_str": "42"}}`,
	))
	if err != nil {
		t.Fatal(err)
	}

	if post.Content != "plain tweet" {
		t.Fatalf("unexpected content %q", post.Content)
	}
	if post.Image != "" || post.ImageLowRes != "" || post.ImageThumb != "" {
		t.Fatal("expected no images")
	}
}
