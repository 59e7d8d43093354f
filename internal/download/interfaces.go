package download

import (
	"context"

	"github.com/ytget/rip-bot/internal/model"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	// Run executes one complete job for req and reports how it ended.
	Run(ctx context.Context, req model.DownloadRequest, sink Sink) model.Result
}

// Runner launches the external downloader and waits for it to exit.
// A process that started and exited non-zero is reported as *ExitError; any
// other error means the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// Sink receives the outcome of each harvested file.
type Sink interface {
	// DeliverAudio uploads file to the requester.
	DeliverAudio(ctx context.Context, file model.HarvestedFile, format model.Format) error

	// FileSkipped is told about a file that exceeds the size limit.
	FileSkipped(ctx context.Context, file model.HarvestedFile)
}
