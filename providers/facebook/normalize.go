package facebook

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

type post struct {
	Message     string      `json:"message"`
	Story       string      `json:"story"`
	CreatedTime json.Number `json:"created_time"`
	Link        string      `json:"link"`
	Type        string      `json:"type"`
	FullPicture string      `json:"full_picture"`
	Picture     string      `json:"picture"`
	From        struct {
		Name string `json:"name"`
	} `json:"from"`
}

// NormalizePost maps one Graph API page post onto the canonical record.
func (p *Provider) NormalizePost(raw json.RawMessage) (feed.Post, error) {
	var data post
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing facebook post")
	}

	content := data.Message
	if content == "" {
		content = data.Story
	}

	createdAt, err := parseCreatedTime(data.CreatedTime)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing facebook post timestamp")
	}

	return feed.Post{
		ProviderType: string(store.ProviderFacebook),
		PostType:     data.Type,
		Content:      feed.ProcessTextContent(content, true),
		RawContent:   feed.ProcessTextContent(content, false),
		CreatedAt:    createdAt,
		URL:          data.Link,
		AuthorName:   data.From.Name,
		Image:        data.FullPicture,
		// the Graph API only returns full_picture or picture, so the
		// low res slot mirrors the full image
		ImageLowRes: data.FullPicture,
		ImageThumb:  data.Picture,
		Raw:         raw,
	}, nil
}

// parseCreatedTime handles the unix timestamps requested via
// date_format=U. The value arrives as a JSON number.
func parseCreatedTime(value json.Number) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	unix, err := value.Int64()
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(unix, 0).UTC(), nil
}
