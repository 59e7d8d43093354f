package download

// Package download implements the download-and-deliver pipeline built on top
// of the external streamrip CLI (`rip`). A job owns a fresh scratch directory,
// runs the downloader inside it, walks the output for deliverable audio files
// and hands each one to a Sink. The scratch directory is removed on every exit
// path.
