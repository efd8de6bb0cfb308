package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 60

// slug folds accents away and keeps only [A-Za-z0-9-_], joining the rest
// with single underscores.
func slug(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	out := b.String()
	if len(out) > maxSlugLen {
		out = out[:maxSlugLen]
	}
	return strings.Trim(out, "_-")
}

// idHash is a short digest of the raw content id. Slugging is lossy, so the
// digest keeps ids like "a b" and "a_b" apart on disk.
func idHash(contentID string) string {
	sum := sha256.Sum256([]byte(contentID))
	return hex.EncodeToString(sum[:4])
}

// FileName builds the local artifact name for a content id.
func FileName(contentID, title, container string) string {
	name := slug(contentID)
	if name == "" {
		name = "track"
	}
	if t := slug(title); t != "" {
		name += "-" + t
	}
	name += "-" + idHash(contentID)
	ext := slug(container)
	if ext == "" {
		ext = "mp3"
	}
	return name + "." + strings.ToLower(ext)
}
