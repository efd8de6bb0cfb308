package netease

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SongURL is one playable rendition returned by /song/url/v1.
type SongURL struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Br    int    `json:"br"`
	Size  int64  `json:"size"`
	Type  string `json:"type"`
	Level string `json:"level"`
}

// Artist is a song artist.
type Artist struct {
	Name string `json:"name"`
}

// Song is the subset of /song/detail the broadcaster uses.
type Song struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Artists  []Artist `json:"ar"`
	Duration int64    `json:"dt"` // milliseconds
}

// DisplayTitle renders "Artist1, Artist2 - Name".
func (s Song) DisplayTitle() string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return s.Name
	}
	return strings.Join(names, ", ") + " - " + s.Name
}

// Length returns the song duration.
func (s Song) Length() time.Duration {
	return time.Duration(s.Duration) * time.Millisecond
}

// GetSongURL fetches the URL for songID at one quality level.
// A nil result with no error means the song is unavailable at that level.
func (c *Client) GetSongURL(ctx context.Context, songID, level string) (*SongURL, error) {
	q := url.Values{}
	q.Set("id", songID)
	q.Set("level", level)

	var result struct {
		Data []SongURL `json:"data"`
		Code int       `json:"code"`
		Msg  string    `json:"msg,omitempty"`
	}
	if err := c.getJSON(ctx, "/song/url/v1?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	if result.Code != 200 {
		return nil, fmt.Errorf("song url api error: %s (code: %d)", result.Msg, result.Code)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		// Empty URL usually means a copyright restriction.
		return nil, nil
	}
	return &result.Data[0], nil
}

// GetSongDetail fetches song metadata.
func (c *Client) GetSongDetail(ctx context.Context, songID string) (*Song, error) {
	var result struct {
		Songs []Song `json:"songs"`
		Code  int    `json:"code"`
	}
	if err := c.getJSON(ctx, "/song/detail?ids="+url.QueryEscape(songID), &result); err != nil {
		return nil, err
	}
	if len(result.Songs) == 0 {
		return nil, fmt.Errorf("song %s not found", songID)
	}
	return &result.Songs[0], nil
}
