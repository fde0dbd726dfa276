// Package job runs split operations asynchronously for the HTTP front end.
// It includes the Job aggregate with its state machine, the repository port
// and the service that schedules jobs.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/maauso/findsilence/internal/job/id"
	"github.com/maauso/findsilence/internal/silence"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the job is waiting for a free worker.
	StatusQueued Status = "QUEUED"
	// StatusRunning indicates the recording is being scanned or split.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the tracks were written.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the split ended with an error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the job was cancelled by the client.
	StatusCancelled Status = "CANCELLED"
	// StatusNoSilence indicates no pause was found at the requested cap.
	StatusNoSilence Status = "NO_SILENCE"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusQueued:    {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusNoSilence},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusNoSilence: {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Params are the split parameters a job was created with.
type Params struct {
	PauseSeconds    float64
	VolumeCap       int
	MinTrackSeconds float64
	TargetTracks    *int
	DeepScan        bool
}

// Track describes one written track.
type Track struct {
	// Number is the output number used in the file name.
	Number int
	// Path is the local file.
	Path string
	// URL is set once the track is published.
	URL string
	// StartFrame and EndFrame delimit the track in the source.
	StartFrame int
	EndFrame   int
	// Seconds is the track duration.
	Seconds float64
}

// Job is one asynchronous split of a recording.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this job.
	ID string
	// Status is the current job state.
	Status Status
	// SourcePath is the recording being split.
	SourcePath string
	// TempSource is true when SourcePath is an upload owned by the job.
	TempSource bool
	// OutputDir receives the track files.
	OutputDir string
	// Params holds the split parameters.
	Params Params
	// Publish indicates whether tracks are uploaded after splitting.
	Publish bool
	// FramesTotal is the source length reported when scanning starts.
	FramesTotal int
	// CurrentFrame is the last scan position reported.
	CurrentFrame int
	// Progress is the percentage of the source scanned (0-100).
	Progress int
	// Cap is the silence cap used, calibrated or fixed.
	Cap int
	// Iterations is the number of calibration scans.
	Iterations int
	// Silence is the list of detected silence intervals.
	Silence []silence.Interval
	// Tracks lists the written tracks.
	Tracks []Track
	// Error contains any error message if the job failed.
	Error string
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a queued Job with a generated ID.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a queued Job with the specified ID.
func NewWithID(jobID string) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Status:    StatusQueued,
		Tracks:    make([]Track, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted:
		j.Progress = 100
		j.CompletedAt = j.UpdatedAt
	case StatusFailed, StatusCancelled, StatusNoSilence:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from QUEUED to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusFailed); err != nil {
		return err
	}
	j.Error = errMsg
	return nil
}

// Cancel transitions the job to CANCELLED.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// MarkNoSilence transitions the job to NO_SILENCE.
func (j *Job) MarkNoSilence() error {
	return j.TransitionTo(StatusNoSilence)
}

// GetStatus returns the current job status.
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetFramesTotal records the source length and resets progress.
func (j *Job) SetFramesTotal(total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.FramesTotal = total
	j.CurrentFrame = 0
	j.Progress = 0
	j.UpdatedAt = time.Now()
}

// SetCurrentFrame records the scan position and derives Progress from it.
// Calibration rescans the source, so the position may move backwards.
func (j *Job) SetCurrentFrame(pos int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.CurrentFrame = pos
	if j.FramesTotal > 0 {
		j.Progress = clampPercent(pos * 100 / j.FramesTotal)
	}
	j.UpdatedAt = time.Now()
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// SetResult stores the outcome of a split.
func (j *Job) SetResult(silenceCap, iterations int, intervals []silence.Interval, tracks []Track) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Cap = silenceCap
	j.Iterations = iterations
	j.Silence = append([]silence.Interval(nil), intervals...)
	j.Tracks = append(make([]Track, 0, len(tracks)), tracks...)
	j.UpdatedAt = time.Now()
}

// SetTrackURL records the published URL of the track at index i.
func (j *Job) SetTrackURL(i int, url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if i >= 0 && i < len(j.Tracks) {
		j.Tracks[i].URL = url
		j.UpdatedAt = time.Now()
	}
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(validTransitions[j.Status]) == 0
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	params := j.Params
	if j.Params.TargetTracks != nil {
		target := *j.Params.TargetTracks
		params.TargetTracks = &target
	}

	return &Job{
		ID:           j.ID,
		Status:       j.Status,
		SourcePath:   j.SourcePath,
		TempSource:   j.TempSource,
		OutputDir:    j.OutputDir,
		Params:       params,
		Publish:      j.Publish,
		FramesTotal:  j.FramesTotal,
		CurrentFrame: j.CurrentFrame,
		Progress:     j.Progress,
		Cap:          j.Cap,
		Iterations:   j.Iterations,
		Silence:      append([]silence.Interval(nil), j.Silence...),
		Tracks:       append(make([]Track, 0, len(j.Tracks)), j.Tracks...),
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
