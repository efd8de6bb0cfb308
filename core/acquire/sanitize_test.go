package acquire

import (
	"strings"
	"testing"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		id, title, container string
		want                 string
	}{
		{"abc123", "", "mp3", "abc123-6ca13d52.mp3"},
		{"abc123", "Café del Mar", "m4a", "abc123-Cafe_del_Mar-6ca13d52.m4a"},
		{"../../etc/passwd", "", "", "etc_passwd-3754d6cb.mp3"},
		{"", "", "webm", "track-e3b0c442.webm"},
		{"id", "a/b\\c'd", "MP3", "id-a_b_c_d-a5614527.mp3"},
	}
	for _, tt := range tests {
		if got := FileName(tt.id, tt.title, tt.container); got != tt.want {
			t.Errorf("FileName(%q, %q, %q) = %q, want %q", tt.id, tt.title, tt.container, got, tt.want)
		}
	}
}

func TestFileNameKeepsSimilarIDsApart(t *testing.T) {
	seen := map[string]string{}
	for _, id := range []string{"a b", "a.b", "a_b", "a/b"} {
		name := FileName(id, "", "mp3")
		if prev, ok := seen[name]; ok {
			t.Errorf("FileName(%q) = %q, same as %q", id, name, prev)
		}
		seen[name] = id
	}
}

func TestSlugLength(t *testing.T) {
	got := slug(strings.Repeat("x", 200))
	if len(got) != maxSlugLen {
		t.Errorf("len = %d, want %d", len(got), maxSlugLen)
	}
}

func TestSelectBest(t *testing.T) {
	if _, ok := SelectBest(nil); ok {
		t.Error("SelectBest(nil) reported ok")
	}
	got, ok := SelectBest([]StreamDescriptor{
		{ID: "a", Bitrate: 128000},
		{ID: "b", Bitrate: 320000},
		{ID: "c", Bitrate: 320000},
	})
	if !ok || got.ID != "b" {
		t.Errorf("SelectBest = %+v, want b", got)
	}
}
