package instagram

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

// graph api media timestamps carry a zone offset without a colon
const timestampLayout = "2006-01-02T15:04:05-0700"

type media struct {
	Caption      string `json:"caption"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
	Username     string `json:"username"`
}

// NormalizePost maps one business discovery media item onto the
// canonical record.
func (p *Provider) NormalizePost(raw json.RawMessage) (feed.Post, error) {
	var data media
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing instagram media item")
	}

	var createdAt time.Time
	if data.Timestamp != "" {
		createdAt, err = time.Parse(timestampLayout, data.Timestamp)
		if err != nil {
			createdAt, err = time.Parse(time.RFC3339, data.Timestamp)
		}
		if err != nil {
			return feed.Post{}, errors.Wrap(err, "failure parsing instagram media timestamp")
		}
		createdAt = createdAt.UTC()
	}

	thumb := data.ThumbnailURL
	if thumb == "" {
		thumb = data.MediaURL
	}

	return feed.Post{
		ProviderType: string(store.ProviderInstagram),
		PostType:     data.MediaType,
		Content:      feed.ProcessTextContent(data.Caption, true),
		RawContent:   feed.ProcessTextContent(data.Caption, false),
		CreatedAt:    createdAt,
		URL:          data.Permalink,
		AuthorName:   data.Username,
		Image:        data.MediaURL,
		ImageLowRes:  data.MediaURL,
		ImageThumb:   thumb,
		Raw:          raw,
	}, nil
}
