// Package ytdlp lists and downloads audio renditions through the yt-dlp CLI.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"LiveFM/core/acquire"
	"LiveFM/logger"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Source resolves content ids (video ids or full URLs) with yt-dlp.
type Source struct {
	binary  string
	baseURL string
	run     runFunc
}

// NewSource creates a Source using the yt-dlp binary at path.
func NewSource(path string) *Source {
	if path == "" {
		path = "yt-dlp"
	}
	return &Source{
		binary:  path,
		baseURL: "https://www.youtube.com/watch?v=",
		run:     execRun,
	}
}

type format struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	ACodec   string  `json:"acodec"`
	VCodec   string  `json:"vcodec"`
	ABR      float64 `json:"abr"`
	TBR      float64 `json:"tbr"`
	URL      string  `json:"url"`
}

type info struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration float64  `json:"duration"`
	Formats  []format `json:"formats"`
}

// target is always passed after "--" so an id starting with a dash is never
// read as an option.
func (s *Source) target(contentID string) string {
	if strings.Contains(contentID, "://") {
		return contentID
	}
	return s.baseURL + contentID
}

// Streams runs `yt-dlp -J` and keeps the audio-only formats.
func (s *Source) Streams(ctx context.Context, contentID string) ([]acquire.StreamDescriptor, error) {
	out, err := s.run(ctx, s.binary, "-J", "--no-playlist", "--no-warnings", "--", s.target(contentID))
	if err != nil {
		return nil, err
	}
	var meta info
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	var streams []acquire.StreamDescriptor
	for _, f := range meta.Formats {
		if f.VCodec != "none" || f.ACodec == "" || f.ACodec == "none" {
			continue
		}
		kbps := f.ABR
		if kbps == 0 {
			kbps = f.TBR
		}
		streams = append(streams, acquire.StreamDescriptor{
			ID:        f.FormatID,
			Bitrate:   int(math.Round(kbps * 1000)),
			Container: f.Ext,
			URL:       f.URL,
		})
	}
	logger.Debug("yt-dlp formats listed",
		logger.String("contentId", contentID),
		logger.Int("formats", len(meta.Formats)),
		logger.Int("audioOnly", len(streams)))
	return streams, nil
}

// Download fetches one format into dest.
func (s *Source) Download(ctx context.Context, contentID string, stream acquire.StreamDescriptor, dest string) error {
	// yt-dlp treats -o as a template.
	tmpl := strings.ReplaceAll(dest, "%", "%%")
	_, err := s.run(ctx, s.binary,
		"-f", stream.ID,
		"--no-playlist",
		"--no-part",
		"--no-warnings",
		"--force-overwrites",
		"-o", tmpl,
		"--", s.target(contentID))
	return err
}
