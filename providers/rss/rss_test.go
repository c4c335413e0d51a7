package rss

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

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Example Blog</title>
    <link>https://blog.example.com</link>
    <item>
      <title>First Post</title>
      <link>https://blog.example.com/first</link>
      <description>read more at https://blog.example.com/first</description>
      <pubDate>Tue, 01 Jan 2019 10:30:00 +0000</pubDate>
      <media:content url="https://blog.example.com/first.jpg" />
    </item>
    <item>
      <title>Second Post</title>
      <link>https://blog.example.com/second</link>
      <description>&lt;p&gt;formatted&lt;/p&gt;</description>
      <pubDate>Wed, 02 Jan 2019 10:30:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func testRecord(feedURL string) *store.Provider {
	record := &store.Provider{
		Type:    store.ProviderRSS,
		FeedURL: feedURL,
	}
	record.ID = 3
	return record
}

func TestFetchRawFeed(t *testing.T) {
	var requestedQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML)) // nolint: errcheck
	}))
	defer server.Close()

	provider := New(zap.NewNop(), server.Client(), testRecord(server.URL+"/feed.xml"))

	raw, err := provider.FetchRawFeed(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(raw))
	}

	// cache busting query param
	if got := requestedQuery["_"]; len(got) != 1 || got[0] == "" {
		t.Fatalf("expected cache busting param, got %v", got)
	}

	var first entry
	err = json.Unmarshal(raw[0], &first)
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != "First Post" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Image != "https://blog.example.com/first.jpg" {
		t.Fatalf("unexpected image %q", first.Image)
	}
	if first.Author != "Example Blog" {
		t.Fatalf("unexpected author %q", first.Author)
	}
}

func TestFetchRawFeedMissingURL(t *testing.T) {
	provider := New(zap.NewNop(), http.DefaultClient, testRecord(""))

	_, err := provider.FetchRawFeed(context.Background())
	var configErr *feed.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNormalizePost(t *testing.T) {
	provider := New(zap.NewNop(), http.DefaultClient, testRecord("https://blog.example.com/feed.xml"))

	published := time.Date(2019, 1, 1, 10, 30, 0, 0, time.UTC)
	raw, err := json.Marshal(entry{
		Title:       "First Post",
		Description: "<p>read more at https://blog.example.com/first</p>",
		Link:        "https://blog.example.com/first",
		Author:      "Example Blog",
		Published:   &published,
		Image:       "https://blog.example.com/first.jpg",
	})
	if err != nil {
		t.Fatal(err)
	}

	post, err := provider.NormalizePost(raw)
	if err != nil {
		t.Fatal(err)
	}

	if post.ProviderType != "rss" {
		t.Fatalf("unexpected provider type %q", post.ProviderType)
	}
	expectedContent := `read more at <a href="https://blog.example.com/first" target="_blank">https://blog.example.com/first</a>`
	if post.Content != expectedContent {
		t.Fatalf("unexpected content %q", post.Content)
	}
	if post.RawContent == post.Content {
		t.Fatal("expected raw content to keep markup")
	}
	if !post.CreatedAt.Equal(published) {
		t.Fatalf("unexpected created at %v", post.CreatedAt)
	}
	if post.Image != "https://blog.example.com/first.jpg" {
		t.Fatalf("unexpected image %q", post.Image)
	}
}
