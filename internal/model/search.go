package model

// Kind tags a catalog search result
type Kind string

const (
	KindTrack  Kind = "track"
	KindAlbum  Kind = "album"
	KindArtist Kind = "artist"
)

// SearchResult is one candidate item returned by the catalog search.
// Link is the canonical resource URL; it is carried as callback data and
// re-submitted to trigger a download.
type SearchResult struct {
	Kind       Kind   `json:"type"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	Link       string `json:"link"`
}

// Glyph returns the emoji shown in front of a result of this kind
func (k Kind) Glyph() string {
	switch k {
	case KindTrack:
		return "🎵"
	case KindAlbum:
		return "💿"
	default:
		return "🎤"
	}
}

// Label returns the button text for the result. Tracks read
// "artist - title"; albums and everything else read "title – artist".
func (r SearchResult) Label() string {
	if r.Kind == KindTrack {
		return r.Kind.Glyph() + " " + r.ArtistName + " - " + r.Title
	}
	return r.Kind.Glyph() + " " + r.Title + " – " + r.ArtistName
}
