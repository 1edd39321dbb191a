package services

import (
	"testing"

	"github.com/desertthunder/tunegate/internal/models"
)

func playlistsFixture() *models.ResultSet {
	next := "https://api.example.com/next"
	return &models.ResultSet{
		Message: "Popular Playlists",
		Playlists: models.PlaylistPage{
			Href:  "https://api.example.com/browse/featured-playlists",
			Limit: 20,
			Total: 42,
			Next:  &next,
			Items: []models.Playlist{
				{ID: "1", Name: "Rock Classics", Description: "Guitar anthems"},
				{ID: "2", Name: "Chill Vibes", Description: "Lo-fi beats to relax"},
				{ID: "3", Name: "ROCKSTEADY", Description: ""},
				{ID: "4", Name: "Focus", Description: "Instrumental rock and ambient"},
			},
		},
	}
}

func ids(r *models.ResultSet) []string {
	out := make([]string, 0, len(r.Playlists.Items))
	for _, p := range r.Playlists.Items {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterPlaylists(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"EmptyKeepsAll", "", []string{"1", "2", "3", "4"}},
		{"CaseInsensitiveName", "rock", []string{"1", "3", "4"}},
		{"UpperCaseFilter", "CHILL", []string{"2"}},
		{"DescriptionOnly", "lo-fi", []string{"2"}},
		{"NoMatch", "polka", []string{}},
		{"WhitespaceIsLiteral", " vibes", []string{"2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterPlaylists(playlistsFixture(), tc.filter)
			gotIDs := ids(got)
			if len(gotIDs) != len(tc.want) {
				t.Fatalf("got %v, want %v", gotIDs, tc.want)
			}
			for i := range gotIDs {
				if gotIDs[i] != tc.want[i] {
					t.Errorf("got %v, want %v", gotIDs, tc.want)
					break
				}
			}
			if got.Playlists.Items == nil {
				t.Error("expected an empty slice, not nil")
			}
		})
	}

	t.Run("PagingUntouched", func(t *testing.T) {
		in := playlistsFixture()
		got := FilterPlaylists(in, "chill")

		if got.Playlists.Total != 42 || got.Playlists.Limit != 20 || got.Playlists.Next != in.Playlists.Next {
			t.Errorf("paging changed: %+v", got.Playlists)
		}
		if got.Message != in.Message || got.Playlists.Href != in.Playlists.Href {
			t.Error("expected message and href to be copied")
		}
	})

	t.Run("InputNotModified", func(t *testing.T) {
		in := playlistsFixture()
		FilterPlaylists(in, "focus")
		if len(in.Playlists.Items) != 4 {
			t.Errorf("input was modified: %v", ids(in))
		}
	})

	t.Run("Nil", func(t *testing.T) {
		if FilterPlaylists(nil, "x") != nil {
			t.Error("expected nil for nil input")
		}
	})
}
