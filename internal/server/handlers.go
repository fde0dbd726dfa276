package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/findsilence/internal/job"
)

// JobService is the job use case the handlers drive. It is implemented by
// job.Service.
type JobService interface {
	Create(ctx context.Context, in job.CreateInput) (*job.Job, error)
	Run(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context) ([]*job.Job, error)
	Cancel(ctx context.Context, id string) (*job.Job, error)
	Delete(ctx context.Context, id string) error
}

// Defaults are the split parameters used when a request omits them.
type Defaults struct {
	PauseSeconds    float64
	VolumeCap       int
	MinTrackSeconds float64
	DeepScan        bool
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            JobService
	validator          *validator.Validate
	logger             *slog.Logger
	defaults           Defaults
	publishEnabled     bool
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreateJob only persists the job.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// WithDefaults sets the split parameters used for omitted request fields.
func WithDefaults(d Defaults) HandlerOption {
	return func(h *Handlers) {
		h.defaults = d
	}
}

// WithPublishing allows requests to ask for S3 publication.
func WithPublishing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.publishEnabled = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service JobService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
		defaults: Defaults{
			PauseSeconds:    2,
			VolumeCap:       300,
			MinTrackSeconds: 10,
		},
		enableAsyncProcess: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	if req.PushToS3 && !h.publishEnabled {
		writeError(w, http.StatusBadRequest, "S3 publication is not configured", "PUBLISH_NOT_CONFIGURED")
		return
	}

	input := job.CreateInput{
		SourcePath: req.SourcePath,
		Params:     h.params(req),
		Publish:    req.PushToS3,
	}
	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid base64 audio", "VALIDATION_ERROR")
			return
		}
		input.Upload = bytes.NewReader(data)
		input.UploadName = req.FileName
	}

	createdJob, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
		return
	}

	// The split outlives the request.
	if h.enableAsyncProcess {
		go func(ctx context.Context, jobID string) {
			if err := h.service.Run(ctx, jobID); err != nil {
				h.logger.Error("background processing failed",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), createdJob.ID)
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:     createdJob.ID,
		Status: string(createdJob.Status),
	})
}

func (h *Handlers) params(req CreateJobRequest) job.Params {
	p := job.Params{
		PauseSeconds:    h.defaults.PauseSeconds,
		VolumeCap:       h.defaults.VolumeCap,
		MinTrackSeconds: h.defaults.MinTrackSeconds,
		DeepScan:        h.defaults.DeepScan,
		TargetTracks:    req.TargetTracks,
	}
	if req.PauseSeconds != nil {
		p.PauseSeconds = *req.PauseSeconds
	}
	if req.VolumeCap != nil {
		p.VolumeCap = *req.VolumeCap
	}
	if req.MinTrackSeconds != nil {
		p.MinTrackSeconds = *req.MinTrackSeconds
	}
	if req.DeepScan != nil {
		p.DeepScan = *req.DeepScan
	}
	return p
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := ListJobsResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(foundJob))
}

// DeleteJob handles DELETE /jobs/{id} requests. A queued or running job is
// cancelled (202); a finished job is removed with its tracks (204).
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	foundJob, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		h.writeJobError(w, jobID, err)
		return
	}

	if !foundJob.IsTerminal() {
		cancelled, err := h.service.Cancel(r.Context(), jobID)
		if err == nil {
			writeJSON(w, http.StatusAccepted, toJobResponse(cancelled))
			return
		}
		if !errors.Is(err, job.ErrInvalidTransition) {
			h.writeJobError(w, jobID, err)
			return
		}
		// Finished in the meantime.
	}

	if err := h.service.Delete(r.Context(), jobID); err != nil {
		h.writeJobError(w, jobID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeJobError(w http.ResponseWriter, jobID string, err error) {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
	case errors.Is(err, job.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "job state does not allow this operation", "INVALID_JOB_STATE")
	default:
		h.logger.Error("job operation failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "job operation failed", "JOB_OPERATION_FAILED")
	}
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:           j.ID,
		Status:       string(j.Status),
		Progress:     j.Progress,
		FramesTotal:  j.FramesTotal,
		CurrentFrame: j.CurrentFrame,
		Cap:          j.Cap,
		Iterations:   j.Iterations,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	for _, iv := range j.Silence {
		resp.Silence = append(resp.Silence, IntervalResponse{Start: iv.Start, End: iv.End})
	}
	for _, t := range j.Tracks {
		resp.Tracks = append(resp.Tracks, TrackResponse{
			Number:     t.Number,
			Path:       t.Path,
			URL:        t.URL,
			StartFrame: t.StartFrame,
			EndFrame:   t.EndFrame,
			Seconds:    t.Seconds,
		})
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
