package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/maauso/findsilence/internal/silence"
	"github.com/maauso/findsilence/internal/split"
	"github.com/maauso/findsilence/internal/storage"
)

// ErrJobNotQueued is returned by Run when the job already started or ended.
var ErrJobNotQueued = errors.New("job is not queued")

// Splitter runs one blocking split. It is implemented by split.Service.
type Splitter interface {
	Split(ctx context.Context, req split.Request, hooks silence.Hooks) (*split.Result, error)
}

// CreateInput describes a new split job. Exactly one of SourcePath and
// Upload is set.
type CreateInput struct {
	// SourcePath is a recording already readable by the server.
	SourcePath string
	// Upload is recording content to store in the temp directory.
	Upload io.Reader
	// UploadName is the original file name of Upload. Its extension selects the decoder.
	UploadName string
	// Params holds the split parameters.
	Params Params
	// Publish uploads the written tracks to object storage.
	Publish bool
}

// Service creates, runs and cancels split jobs.
type Service struct {
	repo      Repository
	splitter  Splitter
	storage   storage.Storage
	outputDir string
	logger    *slog.Logger
	slots     chan struct{}

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	running sync.WaitGroup
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxConcurrentJobs limits how many jobs split at the same time.
// Non-positive values are ignored.
func WithMaxConcurrentJobs(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// NewService creates a Service writing each job's tracks to a
// sub-directory of outputDir named after the job ID.
func NewService(repo Repository, splitter Splitter, store storage.Storage, outputDir string, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		splitter:  splitter,
		storage:   store,
		outputDir: outputDir,
		logger:    slog.Default(),
		slots:     make(chan struct{}, 2),
		cancels:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores the upload, if any, prepares the output directory and
// persists a QUEUED job. Processing starts with Run.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Job, error) {
	job := New()
	job.Params = in.Params
	job.Publish = in.Publish
	job.SourcePath = in.SourcePath
	job.OutputDir = filepath.Join(s.outputDir, job.ID)

	if in.Upload != nil {
		name := in.UploadName
		if name == "" {
			name = "upload.wav"
		}
		p, err := s.storage.SaveTemp(ctx, filepath.Base(name), in.Upload)
		if err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		job.SourcePath = p
		job.TempSource = true
	}

	if err := os.MkdirAll(job.OutputDir, 0750); err != nil {
		s.cleanupSource(ctx, job)
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if err := s.repo.Save(ctx, job); err != nil {
		s.cleanupSource(ctx, job)
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("source", job.SourcePath),
		slog.Bool("upload", job.TempSource),
		slog.Bool("publish", job.Publish),
	)

	return job, nil
}

// Get retrieves a job by ID.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all jobs, oldest first.
func (s *Service) List(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Run processes a queued job and blocks until it reaches a terminal state.
// It waits for a free slot first; a cancellation while waiting ends the job
// as CANCELLED without splitting. The returned error is only about
// bookkeeping; split failures are recorded on the job.
func (s *Service) Run(ctx context.Context, id string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if job.GetStatus() != StatusQueued {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotQueued, job.GetStatus())
	}
	s.cancels[id] = cancel
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	defer func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
	}()
	defer s.cleanupSource(context.WithoutCancel(ctx), job)

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		_ = job.Cancel()
		s.logger.Info("job cancelled before start", slog.String("job_id", id))
		return s.save(context.WithoutCancel(ctx), job)
	}

	if err := job.Start(); err != nil {
		return err
	}
	if err := s.save(ctx, job); err != nil {
		return err
	}

	s.process(ctx, job)
	return s.save(context.WithoutCancel(ctx), job)
}

func (s *Service) process(ctx context.Context, job *Job) {
	logger := s.logger.With(slog.String("job_id", job.ID))

	hooks := silence.Hooks{
		FramesTotal: func(total int) {
			job.SetFramesTotal(total)
			_ = s.save(ctx, job)
		},
		CurrentFrame: func(pos int) {
			job.SetCurrentFrame(pos)
			_ = s.save(ctx, job)
		},
	}

	result, err := s.splitter.Split(ctx, s.request(job), hooks)
	switch {
	case errors.Is(err, split.ErrCancelled):
		logger.Info("job cancelled")
		_ = job.Cancel()
		return
	case errors.Is(err, split.ErrNoSilence):
		logger.Info("no silence found", slog.Int("cap", job.Params.VolumeCap))
		_ = job.MarkNoSilence()
		return
	case err != nil:
		logger.Error("split failed", slog.String("error", err.Error()))
		_ = job.Fail(err.Error())
		return
	}

	tracks := make([]Track, len(result.Tracks))
	for i, wt := range result.Tracks {
		tracks[i] = Track{
			Number:     wt.Number,
			Path:       wt.Path,
			StartFrame: wt.StartFrame,
			EndFrame:   wt.EndFrame,
			Seconds:    wt.Seconds,
		}
	}
	job.SetResult(result.Cap, result.Iterations, result.Silence, tracks)

	if job.Publish {
		if err := s.publish(ctx, job, tracks); err != nil {
			if errors.Is(err, context.Canceled) {
				_ = job.Cancel()
				return
			}
			logger.Error("publish failed", slog.String("error", err.Error()))
			_ = job.Fail(err.Error())
			return
		}
	}

	_ = job.Complete()
	logger.Info("job completed",
		slog.Int("tracks", len(tracks)),
		slog.Int("cap", result.Cap),
	)
}

func (s *Service) request(job *Job) split.Request {
	p := job.Params
	return split.Request{
		SourcePath:      job.SourcePath,
		DestDir:         job.OutputDir,
		PauseSeconds:    p.PauseSeconds,
		VolumeCap:       p.VolumeCap,
		MinTrackSeconds: p.MinTrackSeconds,
		TargetTracks:    p.TargetTracks,
		DeepScan:        p.DeepScan,
	}
}

func (s *Service) publish(ctx context.Context, job *Job, tracks []Track) error {
	for i, t := range tracks {
		url, err := s.publishTrack(ctx, path.Join(job.ID, filepath.Base(t.Path)), t.Path)
		if err != nil {
			return fmt.Errorf("publish track %d: %w", t.Number, err)
		}
		job.SetTrackURL(i, url)
	}
	return nil
}

func (s *Service) publishTrack(ctx context.Context, key, localPath string) (string, error) {
	f, err := s.storage.Open(ctx, localPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return s.storage.Publish(ctx, key, f)
}

// Cancel asks a job to stop. A queued job that is not running yet is
// cancelled immediately; a running job stops at its next cancellation
// check. Returns ErrInvalidTransition for jobs that already ended.
func (s *Service) Cancel(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cancel, ok := s.cancels[id]; ok {
		cancel()
		s.logger.Info("job cancellation requested", slog.String("job_id", id))
		return job, nil
	}

	if err := job.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, job); err != nil {
		return nil, err
	}
	s.cleanupSource(ctx, job)
	s.logger.Info("queued job cancelled", slog.String("job_id", id))
	return job, nil
}

// Delete removes a finished job together with its track files.
// Returns ErrInvalidTransition while the job is still queued or running.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrInvalidTransition
	}

	if job.OutputDir != "" {
		if err := os.RemoveAll(job.OutputDir); err != nil {
			return fmt.Errorf("remove tracks: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("job deleted", slog.String("job_id", id))
	return nil
}

// CancelAll cancels every job currently waiting for a slot or running.
func (s *Service) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
}

// Wait blocks until every running job has returned and cleaned up its
// temporary source, or until ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

func (s *Service) save(ctx context.Context, job *Job) error {
	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (s *Service) cleanupSource(ctx context.Context, job *Job) {
	if !job.TempSource {
		return
	}
	if err := s.storage.CleanupTemp(ctx, []string{job.SourcePath}); err != nil {
		s.logger.Warn("failed to remove uploaded recording",
			slog.String("job_id", job.ID),
			slog.String("path", job.SourcePath),
			slog.String("error", err.Error()),
		)
	}
}
