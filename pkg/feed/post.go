package feed

import (
	"encoding/json"
	"sort"
	"time"
)

// Post is the canonical, provider-agnostic representation of one feed
// item. Once constructed by a provider's normalizer it is not mutated.
type Post struct {
	ProviderType string          `json:"provider_type"`
	PostType     string          `json:"post_type,omitempty"`
	Content      string          `json:"content"`
	RawContent   string          `json:"raw_content"`
	CreatedAt    time.Time       `json:"created_at"`
	URL          string          `json:"url,omitempty"`
	AuthorName   string          `json:"author_name"`
	Image        string          `json:"image"`
	ImageLowRes  string          `json:"image_low_res"`
	ImageThumb   string          `json:"image_thumb"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

// SortPosts orders posts by creation time, newest first. Posts with
// equal timestamps keep their relative order.
func SortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
