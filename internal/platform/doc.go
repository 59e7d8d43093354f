package platform

// Package platform contains OS integration used by the download pipeline:
// per-job scratch directories, the sorted audio-file walk over downloader
// output, and embedded audio tag reading.
