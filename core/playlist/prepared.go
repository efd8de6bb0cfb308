// Package playlist holds the prepared song sequence and renders it into the
// concat playlist the encoder reads.
package playlist

import (
	"sync"

	"LiveFM/model"
)

// Prepared is the ordered set of songs with a local artifact. It never holds
// two entries with the same content id. One mutex covers the entries and the
// version counter so readers never observe a partial mutation.
type Prepared struct {
	mu      sync.Mutex
	songs   []model.PreparedSong
	ids     map[string]struct{}
	version uint64
}

// NewPrepared returns an empty set.
func NewPrepared() *Prepared {
	return &Prepared{ids: make(map[string]struct{})}
}

// Insert appends song unless its content id is already present.
func (p *Prepared) Insert(song model.PreparedSong) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.ids[song.ContentID]; ok {
		return false
	}
	p.ids[song.ContentID] = struct{}{}
	p.songs = append(p.songs, song)
	p.version++
	return true
}

// Contains reports whether contentID is prepared.
func (p *Prepared) Contains(contentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[contentID]
	return ok
}

// Snapshot returns a copy of the entries in insertion order.
func (p *Prepared) Snapshot() []model.PreparedSong {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Prepared) snapshotLocked() []model.PreparedSong {
	out := make([]model.PreparedSong, len(p.songs))
	copy(out, p.songs)
	return out
}

// Prune removes entries whose artifact fails exists and returns them.
func (p *Prepared) Prune(exists func(path string) bool) []model.PreparedSong {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pruneLocked(exists)
}

func (p *Prepared) pruneLocked(exists func(path string) bool) []model.PreparedSong {
	var removed []model.PreparedSong
	kept := p.songs[:0]
	for _, s := range p.songs {
		if exists(s.Path) {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, s)
		delete(p.ids, s.ContentID)
	}
	// Clear the tail so dropped entries are not retained by the backing array.
	for i := len(kept); i < len(p.songs); i++ {
		p.songs[i] = model.PreparedSong{}
	}
	p.songs = kept
	if len(removed) > 0 {
		p.version++
	}
	return removed
}

// PruneSnapshot prunes and snapshots under a single lock acquisition.
func (p *Prepared) PruneSnapshot(exists func(path string) bool) (snapshot, removed []model.PreparedSong, version uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed = p.pruneLocked(exists)
	return p.snapshotLocked(), removed, p.version
}

// Len returns the number of prepared songs.
func (p *Prepared) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.songs)
}

// Version is bumped by every mutation.
func (p *Prepared) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}
