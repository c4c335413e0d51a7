package rss

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

// Provider aggregates entries from an RSS or Atom feed.
type Provider struct {
	logger     *zap.Logger
	httpClient *http.Client
	parser     *gofeed.Parser
	record     *store.Provider
}

func New(
	logger *zap.Logger,
	httpClient *http.Client,
	record *store.Provider,
) *Provider {
	return &Provider{
		logger:     logger,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		record:     record,
	}
}

func (p *Provider) Type() store.ProviderType {
	return store.ProviderRSS
}

func (p *Provider) Record() *store.Provider {
	return p.record
}

// FetchRawFeed downloads and parses the feed, returning one raw entry
// per item.
func (p *Provider) FetchRawFeed(ctx context.Context) ([]json.RawMessage, error) {
	if p.record.FeedURL == "" {
		return nil, &feed.ConfigurationError{Message: "rss: no feed url provided"}
	}

	parsedFeedURL, err := url.Parse(p.record.FeedURL)
	if err != nil {
		return nil, &feed.ConfigurationError{Message: "rss: invalid feed url: " + err.Error()}
	}

	// add cache busting
	newQueries := parsedFeedURL.Query()
	newQueries.Set("_", strconv.FormatInt(time.Now().Unix(), 10))
	parsedFeedURL.RawQuery = newQueries.Encode()

	req, err := http.NewRequest(http.MethodGet, parsedFeedURL.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failure creating feed request")
	}

	resp, err := p.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "rss: feed request failed", Err: err}
	}
	defer resp.Body.Close()

	parsed, err := p.parser.Parse(resp.Body)
	if err != nil {
		return nil, &feed.UpstreamFetchError{Message: "rss: failure parsing feed", Err: err}
	}

	items := make([]json.RawMessage, 0, len(parsed.Items))
	for _, post := range parsed.Items {
		entry := entryFromItem(parsed, post)

		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, errors.Wrap(err, "failure encoding feed entry")
		}

		items = append(items, raw)
	}

	return items, nil
}

func getThumbnailURL(post *gofeed.Item) string {
	if post.Image != nil && post.Image.URL != "" {
		return post.Image.URL
	}

	for key, extension := range post.Extensions {
		if key == "media" {
			for valueKey, value := range extension {
				if valueKey == "content" && len(value) > 0 {
					content := value[len(value)-1]
					for attrKey, attr := range content.Attrs {
						if attrKey == "url" && attr != "" {
							return attr
						}
					}
				}
			}
		}
	}

	return ""
}
