package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"LiveFM/logger"
)

// FFmpegProcessor wraps the ffmpeg and ffprobe binaries for one-shot jobs.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor. An empty ffprobePath is
// derived from ffmpegPath.
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffprobePath == "" {
		dir, base := filepath.Split(ffmpegPath)
		ffprobePath = dir + strings.Replace(base, "ffmpeg", "ffprobe", 1)
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

func (p *FFmpegProcessor) probe(ctx context.Context, inputFile string, args ...string) (*ffprobeOutput, error) {
	args = append([]string{"-v", "error"}, args...)
	args = append(args, "-of", "json", inputFile)

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", inputFile, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", inputFile, err)
	}
	return &probeData, nil
}

// Duration uses ffprobe to get the duration of an audio file.
func (p *FFmpegProcessor) Duration(ctx context.Context, inputFile string) (time.Duration, error) {
	probeData, err := p.probe(ctx, inputFile, "-show_entries", "format=duration")
	if err != nil {
		return 0, err
	}
	return parseDuration(probeData.Format.Duration)
}

// AudioCodec returns the codec of the first audio stream.
func (p *FFmpegProcessor) AudioCodec(ctx context.Context, inputFile string) (string, error) {
	probeData, err := p.probe(ctx, inputFile, "-select_streams", "a:0", "-show_entries", "stream=codec_name")
	if err != nil {
		return "", err
	}
	if len(probeData.Streams) == 0 {
		return "", fmt.Errorf("no audio streams found in %s", inputFile)
	}
	return probeData.Streams[0].CodecName, nil
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("duration not found in ffprobe output")
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", raw, err)
	}
	if secs < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// SilenceOptions describes the generated fallback entry.
type SilenceOptions struct {
	Seconds    int
	SampleRate int
	Bitrate    string
}

func silenceArgs(dest string, opts SilenceOptions) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", opts.SampleRate),
		"-t", strconv.Itoa(opts.Seconds),
		"-c:a", "libmp3lame",
		"-b:a", opts.Bitrate,
		dest,
	}
}

// GenerateSilence renders a silent mp3 at dest. An existing file is left
// untouched unless force is set.
func (p *FFmpegProcessor) GenerateSilence(ctx context.Context, dest string, opts SilenceOptions, force bool) error {
	if !force {
		if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
			return nil
		}
	}
	if opts.Seconds <= 0 {
		opts.Seconds = 30
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.Bitrate == "" {
		opts.Bitrate = "128k"
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	args := silenceArgs(dest, opts)
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger.Info("generating silence",
		logger.String("path", dest),
		logger.Int("seconds", opts.Seconds))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg execution failed for %s: %w\nFFmpeg Error: %s", dest, err, stderr.String())
	}
	return nil
}
