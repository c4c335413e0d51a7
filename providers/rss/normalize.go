package rss

import (
	"encoding/json"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

// entry is the reduced representation of a feed item stored as the raw
// post payload. gofeed items carry parser internals that do not survive
// a JSON round trip, so the provider flattens them first.
type entry struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Link        string     `json:"link"`
	Author      string     `json:"author"`
	Published   *time.Time `json:"published"`
	Image       string     `json:"image"`
}

func entryFromItem(parsed *gofeed.Feed, post *gofeed.Item) entry {
	author := ""
	if post.Author != nil {
		author = post.Author.Name
	}
	if author == "" {
		author = parsed.Title
	}

	published := post.PublishedParsed
	if published == nil {
		published = post.UpdatedParsed
	}

	return entry{
		Title:       post.Title,
		Description: post.Description,
		Content:     post.Content,
		Link:        post.Link,
		Author:      author,
		Published:   published,
		Image:       getThumbnailURL(post),
	}
}

// NormalizePost maps one flattened feed entry onto the canonical record.
func (p *Provider) NormalizePost(raw json.RawMessage) (feed.Post, error) {
	var data entry
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing feed entry")
	}

	content := data.Content
	if content == "" {
		content = data.Description
	}

	var createdAt time.Time
	if data.Published != nil {
		createdAt = data.Published.UTC()
	}

	return feed.Post{
		ProviderType: string(store.ProviderRSS),
		PostType:     "entry",
		Content:      feed.ProcessTextContent(content, true),
		RawContent:   feed.ProcessTextContent(content, false),
		CreatedAt:    createdAt,
		URL:          data.Link,
		AuthorName:   data.Author,
		Image:        data.Image,
		ImageLowRes:  data.Image,
		ImageThumb:   data.Image,
		Raw:          raw,
	}, nil
}
