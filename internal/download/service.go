package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/rip-bot/internal/logging"
	"github.com/ytget/rip-bot/internal/metrics"
	"github.com/ytget/rip-bot/internal/model"
	"github.com/ytget/rip-bot/internal/platform"
)

// Downloader CLI constants
const (
	RipCommand         = "rip"
	RipURLSubcommand   = "url"
	ConfigFolderFlag   = "--config-folder"
	FormatFlag         = "--format"
	DefaultScratchRoot = "."

	// DefaultMaxFileBytes is the largest file delivered; the limit is inclusive
	DefaultMaxFileBytes = 49_000_000

	// Portion of downloader output included in warn logs
	outputTailInLog = 512
)

// Options configures a Service
type Options struct {
	RipPath           string
	ScratchRoot       string
	MaxFileBytes      int64
	MaxConcurrentJobs int           // 0 means unbounded
	JobTimeout        time.Duration // 0 means wait for the downloader forever
}

// Service handles download jobs
type Service struct {
	runner       Runner
	ripPath      string
	scratchRoot  string
	maxFileBytes int64
	jobTimeout   time.Duration
	slots        chan struct{} // nil when unbounded
	readTags     func(path string) string
}

// NewService creates a new download service
func NewService(runner Runner, opts Options) *Service {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.RipPath == "" {
		opts.RipPath = RipCommand
	}
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = DefaultScratchRoot
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}

	s := &Service{
		runner:       runner,
		ripPath:      opts.RipPath,
		scratchRoot:  opts.ScratchRoot,
		maxFileBytes: opts.MaxFileBytes,
		jobTimeout:   opts.JobTimeout,
		readTags:     platform.ReadPerformer,
	}
	if opts.MaxConcurrentJobs > 0 {
		s.slots = make(chan struct{}, opts.MaxConcurrentJobs)
	}
	return s
}

// Run executes one job: scratch directory, downloader, harvest. The scratch
// directory is removed before Run returns, whatever the outcome, including
// a panic inside the job.
func (s *Service) Run(ctx context.Context, req model.DownloadRequest, sink Sink) (result model.Result) {
	if err := s.acquire(ctx); err != nil {
		return model.Failed(err)
	}
	defer s.release()

	job := model.NewDownloadJob(req, "")
	metrics.JobStarted()
	ctx = logging.WithFields(ctx,
		logging.Int64("requester_id", req.RequesterID),
		logging.String("link", req.Link),
		logging.String("format", req.Format.String()))
	log := logging.WithContext(ctx)

	defer func() {
		elapsed := time.Since(job.StartedAt)
		metrics.RecordJob(result.Outcome.String(), elapsed)
		fields := []zap.Field{
			logging.String("outcome", result.Outcome.String()),
			logging.Int("sent", result.Sent),
			logging.Int("skipped", result.Skipped),
			logging.Duration("duration", elapsed),
		}
		if result.Outcome.IsFailure() {
			log.Warn("job finished", append(fields, logging.Err(result.Err))...)
			return
		}
		log.Info("job finished", fields...)
	}()

	dir, err := platform.NewScratchDir(s.scratchRoot, req.RequesterID)
	if err != nil {
		return model.Failed(err)
	}
	job.ScratchDir = dir

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", logging.Any("panic", r))
			result = model.Failed(fmt.Errorf("unexpected failure: %v", r))
		}
		if err := platform.RemoveScratchDir(dir); err != nil {
			log.Error("scratch cleanup failed", logging.String("scratch_dir", dir), logging.Err(err))
		}
	}()

	if err := s.Fetch(ctx, job); err != nil {
		return model.Failed(err)
	}

	sent, skipped, err := s.Harvest(ctx, job, sink)
	if err != nil {
		return model.Failed(err)
	}
	return model.Delivered(sent, skipped)
}

// Fetch runs the downloader for job and waits for it to exit. The exit status
// does not decide success: whatever the process left in the scratch
// directory is harvested. Only a process that could not be started is an
// error.
func (s *Service) Fetch(ctx context.Context, job *model.DownloadJob) error {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}
	log := logging.WithContext(ctx)

	args := BuildRipArgs(job.SourceLink, job.ScratchDir, job.Format)
	log.Debug("starting downloader",
		logging.String("command", s.ripPath),
		logging.String("scratch_dir", job.ScratchDir))

	out, err := s.runner.Run(ctx, s.ripPath, args)
	log.Debug("downloader output", logging.String("output", string(out)))
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fields := []zap.Field{
			logging.Int("exit_code", exitErr.Code),
			logging.String("output_tail", tail(out, outputTailInLog)),
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			fields = append(fields, logging.Err(ctxErr))
		}
		log.Warn("downloader exited non-zero, harvesting whatever it produced", fields...)
		return nil
	}
	return fmt.Errorf("failed to start %s: %w", s.ripPath, err)
}

// Harvest walks job's scratch directory and hands every deliverable file to
// sink. Files over the size limit are reported to sink and skipped; a failed
// upload is logged and the walk continues.
func (s *Service) Harvest(ctx context.Context, job *model.DownloadJob, sink Sink) (sent, skipped int, err error) {
	log := logging.WithContext(ctx)

	err = platform.WalkAudioFiles(job.ScratchDir, func(file model.HarvestedFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if file.Size > s.maxFileBytes {
			skipped++
			metrics.RecordFileSkipped(metrics.SkipTooLarge)
			log.Info("file too large, skipping",
				logging.String("file", file.Name()),
				logging.Int64("size", file.Size))
			sink.FileSkipped(ctx, file)
			return nil
		}

		file.Performer = s.readTags(file.Path)
		if err := sink.DeliverAudio(ctx, file, job.Format); err != nil {
			metrics.RecordFileSkipped(metrics.SkipUploadFailed)
			log.Warn("failed to deliver file",
				logging.String("file", file.Name()),
				logging.Err(err))
			return nil
		}
		sent++
		metrics.RecordFileDelivered(file.Size)
		log.Debug("file delivered",
			logging.String("file", file.Name()),
			logging.String("ext", file.Ext),
			logging.Int64("size", file.Size))
		return nil
	})
	return sent, skipped, err
}

// BuildRipArgs builds the downloader command arguments
func BuildRipArgs(link, scratchDir string, format model.Format) []string {
	return []string{
		RipURLSubcommand, link,
		ConfigFolderFlag, scratchDir, // keeps config and cache per job
		FormatFlag, format.String(),
	}
}

func (s *Service) acquire(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) release() {
	if s.slots != nil {
		<-s.slots
	}
}

func tail(out []byte, n int) string {
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return strings.TrimSpace(string(out))
}
