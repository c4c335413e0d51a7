package instagrambasic

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/pkg/feed"
	"gitlab.com/socialfeed/worker/store"
)

type mediaImage struct {
	URL string `json:"url"`
}

type mediaItem struct {
	Type        string `json:"type"`
	Link        string `json:"link"`
	CreatedTime string `json:"created_time"`
	Caption     struct {
		Text string `json:"text"`
	} `json:"caption"`
	User struct {
		FullName string `json:"full_name"`
		Username string `json:"username"`
	} `json:"user"`
	Images struct {
		StandardResolution mediaImage `json:"standard_resolution"`
		LowResolution      mediaImage `json:"low_resolution"`
		Thumbnail          mediaImage `json:"thumbnail"`
	} `json:"images"`
}

// NormalizePost maps one basic API media item onto the canonical record.
func (p *Provider) NormalizePost(raw json.RawMessage) (feed.Post, error) {
	var data mediaItem
	err := json.Unmarshal(raw, &data)
	if err != nil {
		return feed.Post{}, errors.Wrap(err, "failure parsing instagram media item")
	}

	var createdAt time.Time
	if data.CreatedTime != "" {
		unix, err := strconv.ParseInt(data.CreatedTime, 10, 64)
		if err != nil {
			return feed.Post{}, errors.Wrap(err, "failure parsing instagram media timestamp")
		}
		createdAt = time.Unix(unix, 0).UTC()
	}

	author := data.User.FullName
	if author == "" {
		author = data.User.Username
	}

	return feed.Post{
		ProviderType: string(store.ProviderInstagramBasic),
		PostType:     data.Type,
		Content:      feed.ProcessTextContent(data.Caption.Text, true),
		RawContent:   feed.ProcessTextContent(data.Caption.Text, false),
		CreatedAt:    createdAt,
		URL:          data.Link,
		AuthorName:   author,
		Image:        data.Images.StandardResolution.URL,
		ImageLowRes:  data.Images.LowResolution.URL,
		ImageThumb:   data.Images.Thumbnail.URL,
		Raw:          raw,
	}, nil
}
