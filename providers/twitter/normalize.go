package twitter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

type tweet struct {
	IDStr     string `json:"id_str"`
	Text      string `json:"text"`
	FullText  string `json:"full_text"`
	CreatedAt string `json:"created_at"`
	User      struct {
		IDStr      string `json:"id_str"`
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	Entities struct {
		Media []struct {
			MediaURLHTTPS string `json:"media_url_https"`
		} `json:"media"`
	} `json:"entities"`
}

// NormalizePost maps one timeline tweet onto the canonical record.
func (p *Provider) NormalizePost(raw json.RawMessage) (feed.Post, error) {
	var data tweet
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing tweet")
	}

	text := data.FullText
	if text == "" {
		text = data.Text
	}

	var createdAt time.Time
	if data.CreatedAt != "" {
		createdAt, err = time.Parse(time.RubyDate, data.CreatedAt)
		if err != nil {
			return feed.Post{}, errors.Wrap(err, "failure parsing tweet timestamp")
		}
		createdAt = createdAt.UTC()
	}

	var image, imageLow, imageThumb string
	if len(data.Entities.Media) > 0 {
		mediaURL := data.Entities.Media[0].MediaURLHTTPS
		image = mediaURL
		imageLow = mediaURL + ":small"
		imageThumb = mediaURL + ":thumb"
	}

	return feed.Post{
		ProviderType: string(store.ProviderTwitter),
		PostType:     "tweet",
		Content:      feed.ProcessTextContent(text, true),
		RawContent:   feed.ProcessTextContent(text, false),
		CreatedAt:    createdAt,
		URL:          tweetURL(data),
		AuthorName:   data.User.Name,
		Image:        image,
		ImageLowRes:  imageLow,
		ImageThumb:   imageThumb,
		Raw:          raw,
	}, nil
}

func tweetURL(data tweet) string {
	if data.IDStr == "" {
		return ""
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", data.User.IDStr, data.IDStr)
}
