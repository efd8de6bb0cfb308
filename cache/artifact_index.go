package cache

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// DefaultArtifactKey is the hash holding contentID -> local path.
const DefaultArtifactKey = "livefm:artifacts"

// ArtifactIndex mirrors the in-memory content cache into a Redis hash so a
// restarted process can reuse artifacts still on disk.
type ArtifactIndex struct {
	client *redis.Client
	key    string
}

// NewArtifactIndex creates an index stored under key.
func NewArtifactIndex(client *redis.Client, key string) *ArtifactIndex {
	if key == "" {
		key = DefaultArtifactKey
	}
	return &ArtifactIndex{client: client, key: key}
}

// Put records one entry.
func (i *ArtifactIndex) Put(ctx context.Context, contentID, path string) error {
	return i.client.HSet(ctx, i.key, contentID, path).Err()
}

// All returns every entry.
func (i *ArtifactIndex) All(ctx context.Context) (map[string]string, error) {
	return i.client.HGetAll(ctx, i.key).Result()
}

// Remove forgets entries.
func (i *ArtifactIndex) Remove(ctx context.Context, contentIDs ...string) error {
	if len(contentIDs) == 0 {
		return nil
	}
	return i.client.HDel(ctx, i.key, contentIDs...).Err()
}
