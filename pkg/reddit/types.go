package reddit

import "encoding/json"

// Subreddit is the subset of subreddit fields the skills expose.
type Subreddit struct {
	DisplayName       string  `json:"display_name"`
	Title             string  `json:"title"`
	PublicDescription string  `json:"public_description"`
	Subscribers       int     `json:"subscribers"`
	URL               string  `json:"url"`
	Over18            bool    `json:"over18"`
	CreatedUTC        float64 `json:"created_utc"`
}

// Submission is the subset of link fields the skills expose.
type Submission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Selftext    string  `json:"selftext"`
	CreatedUTC  float64 `json:"created_utc"`
	Over18      bool    `json:"over_18"`
}

// listing is the envelope Reddit wraps collections in.
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func decodeChildren[T any](l listing) ([]T, error) {
	items := make([]T, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		var item T
		if err := json.Unmarshal(child.Data, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
