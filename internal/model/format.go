package model

import "strings"

// Format is the output audio format requested from the downloader
type Format string

const (
	FormatFLAC Format = "flac"
	FormatMP3  Format = "mp3"

	// DefaultFormat is used for users who never picked one
	DefaultFormat = FormatFLAC
)

// String returns the string representation of Format
func (f Format) String() string {
	return string(f)
}

// Label returns the upper-case name shown to users (e.g. "FLAC")
func (f Format) Label() string {
	return strings.ToUpper(string(f))
}

// Valid reports whether f is one of the supported formats
func (f Format) Valid() bool {
	return f == FormatFLAC || f == FormatMP3
}

// ParseFormat normalizes s and reports whether it names a supported format
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", false
	}
	return f, true
}
