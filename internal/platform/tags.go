package platform

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// ReadPerformer returns the artist embedded in the audio file at path, or
// an empty string if the file has no readable tags.
func ReadPerformer(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}

	artist := strings.TrimSpace(m.Artist())
	if artist == "" {
		artist = strings.TrimSpace(m.AlbumArtist())
	}
	return artist
}
