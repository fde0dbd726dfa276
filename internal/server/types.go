// Package server provides the HTTP front end for asynchronous split jobs.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateJobRequest is the HTTP request body for creating a split job.
// Either SourcePath or AudioBase64 must be set, not both.
type CreateJobRequest struct {
	// SourcePath is a recording readable by the server.
	SourcePath string `json:"source_path,omitempty" validate:"required_without=AudioBase64,excluded_with=AudioBase64"`
	// AudioBase64 is an uploaded recording.
	AudioBase64 string `json:"audio_base64,omitempty" validate:"required_without=SourcePath,omitempty,base64"`
	// FileName names the upload; its extension selects the decoder. Defaults to upload.wav.
	FileName string `json:"file_name,omitempty" validate:"omitempty,max=255"`
	// PauseSeconds is the minimum pause between tracks.
	PauseSeconds *float64 `json:"pause_seconds,omitempty" validate:"omitnil,gt=0,lte=60"`
	// VolumeCap is the RMS below which audio is silence.
	VolumeCap *int `json:"volume_cap,omitempty" validate:"omitnil,gte=0"`
	// MinTrackSeconds drops shorter tracks.
	MinTrackSeconds *float64 `json:"min_track_seconds,omitempty" validate:"omitnil,gte=0"`
	// TargetTracks calibrates the cap to produce this many tracks.
	TargetTracks *int `json:"target_tracks,omitempty" validate:"omitnil,gte=1,lte=99"`
	// DeepScan enables the exhaustive scan.
	DeepScan *bool `json:"deep_scan,omitempty"`
	// PushToS3 uploads the written tracks to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// IntervalResponse is a silence interval in frames.
type IntervalResponse struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// TrackResponse describes one written track.
type TrackResponse struct {
	Number     int     `json:"number"`
	Path       string  `json:"path"`
	URL        string  `json:"url,omitempty"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Seconds    float64 `json:"seconds"`
}

// JobResponse is the HTTP response for job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// Status is the current job status.
	Status string `json:"status"`
	// Progress is the percentage of the recording scanned (0-100).
	Progress int `json:"progress"`
	// FramesTotal and CurrentFrame are the raw scan position.
	FramesTotal  int `json:"frames_total"`
	CurrentFrame int `json:"current_frame"`
	// Cap is the silence cap used once the job completed.
	Cap int `json:"cap,omitempty"`
	// Iterations is the number of calibration scans.
	Iterations int `json:"iterations,omitempty"`
	// Silence lists the detected silence intervals.
	Silence []IntervalResponse `json:"silence,omitempty"`
	// Tracks lists the written tracks.
	Tracks []TrackResponse `json:"tracks,omitempty"`
	// Error contains any error message if the job failed.
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListJobsResponse is the HTTP response for listing jobs.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
