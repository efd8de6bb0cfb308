package netease

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"LiveFM/core/acquire"
	"LiveFM/core/utils"
	"LiveFM/logger"
)

// Source adapts the client to acquire.Source.
type Source struct {
	client *Client
	media  *http.Client // no overall timeout; downloads are bounded by ctx
}

// NewSource wraps client.
func NewSource(client *Client) *Source {
	return &Source{client: client, media: &http.Client{}}
}

// Streams queries every configured level and returns the distinct renditions.
// An error is returned only when no level could be queried at all.
func (s *Source) Streams(ctx context.Context, contentID string) ([]acquire.StreamDescriptor, error) {
	var (
		streams []acquire.StreamDescriptor
		seen    = make(map[string]bool)
		lastErr error
		okCount int
	)
	for _, level := range s.client.levels {
		u, err := s.client.GetSongURL(ctx, contentID, level)
		if err != nil {
			lastErr = err
			logger.Debug("netease level lookup failed",
				logger.String("contentId", contentID),
				logger.String("level", level),
				logger.ErrorField(err))
			continue
		}
		okCount++
		if u == nil || seen[u.URL] {
			continue
		}
		seen[u.URL] = true
		streams = append(streams, acquire.StreamDescriptor{
			ID:        level,
			Bitrate:   u.Br,
			Container: container(u),
			URL:       u.URL,
		})
	}
	if okCount == 0 && lastErr != nil {
		return nil, lastErr
	}
	return streams, nil
}

// Download fetches the rendition's URL into dest.
func (s *Source) Download(ctx context.Context, contentID string, stream acquire.StreamDescriptor, dest string) error {
	if stream.URL == "" {
		return fmt.Errorf("stream %s of %s has no url", stream.ID, contentID)
	}
	_, err := utils.DownloadFile(ctx, s.media, stream.URL, dest)
	return err
}

func container(u *SongURL) string {
	if t := strings.ToLower(u.Type); t != "" {
		return t
	}
	if ext := strings.TrimPrefix(path.Ext(strings.SplitN(u.URL, "?", 2)[0]), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "mp3"
}
