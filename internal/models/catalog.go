package models

// ResultSet is the featured playlists listing relayed to clients.
//
// Field names follow the provider's JSON so existing clients can render it unchanged.
type ResultSet struct {
	Message   string       `json:"message,omitempty"`
	Playlists PlaylistPage `json:"playlists"`
}

// PlaylistPage is the provider's paging object. Paging fields describe the upstream page, not the filtered items.
type PlaylistPage struct {
	Href     string     `json:"href"`
	Items    []Playlist `json:"items"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Total    int        `json:"total"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
}

// Playlist is a simplified playlist object.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Owner        Owner             `json:"owner"`
	Public       *bool             `json:"public"`
	Tracks       TrackRef          `json:"tracks"`
	Images       []Image           `json:"images"`
	URI          string            `json:"uri"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// Owner identifies the user who owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// TrackRef points at a playlist's tracks without embedding them.
type TrackRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}
