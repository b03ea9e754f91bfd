package model

import "time"

// GenerateRequest starts a video generation job for an article URL.
type GenerateRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// GenerateResponse is returned immediately; the job runs in the background.
type GenerateResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
	Reused  bool      `json:"reused,omitempty"`
}

// JobListResponse wraps a jobs listing.
type JobListResponse struct {
	Jobs  []Job `json:"jobs"`
	Count int   `json:"count"`
}

// VideoListResponse wraps a videos listing.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
	Count  int     `json:"count"`
}

// CancelResponse reports the outcome of a cancellation request.
type CancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse reports service liveness and collaborator configuration.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Services  map[string]bool `json:"services"`
}
