package acquire

import (
	"context"
	"sort"
)

// StreamDescriptor is one audio-only rendition a Source can materialize.
type StreamDescriptor struct {
	ID        string // provider-specific format identifier
	Bitrate   int    // bits per second
	Container string // file extension without the dot, e.g. "mp3"
	URL       string // direct media URL when the provider exposes one
}

// Source is an external audio provider.
type Source interface {
	// Streams lists the audio-only renditions available for contentID.
	Streams(ctx context.Context, contentID string) ([]StreamDescriptor, error)
	// Download writes the chosen rendition to dest.
	Download(ctx context.Context, contentID string, stream StreamDescriptor, dest string) error
}

// Archive is an optional second-level store consulted before the Source.
type Archive interface {
	// Fetch restores contentID into dir and returns the local path, or ok=false.
	Fetch(ctx context.Context, contentID, dir string) (path string, ok bool, err error)
	Store(ctx context.Context, contentID, path string) error
}

// SelectBest returns the highest-bitrate descriptor. Ties keep provider order.
func SelectBest(streams []StreamDescriptor) (StreamDescriptor, bool) {
	if len(streams) == 0 {
		return StreamDescriptor{}, false
	}
	ranked := make([]StreamDescriptor, len(streams))
	copy(ranked, streams)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Bitrate > ranked[j].Bitrate })
	return ranked[0], true
}
