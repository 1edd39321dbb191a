package services

import (
	"strings"

	"github.com/desertthunder/tunegate/internal/models"
)

// FilterPlaylists keeps the playlists whose name or description contains filter, ignoring case.
//
// Order is preserved and the paging fields are copied unchanged. An empty filter keeps everything.
// The input is never modified.
func FilterPlaylists(result *models.ResultSet, filter string) *models.ResultSet {
	if result == nil {
		return nil
	}

	out := *result
	items := make([]models.Playlist, 0, len(result.Playlists.Items))

	needle := strings.ToLower(filter)
	for _, p := range result.Playlists.Items {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			items = append(items, p)
		}
	}

	out.Playlists.Items = items
	return &out
}
