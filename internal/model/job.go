package model

import "time"

// Job is a persisted unit of background work. A job row is created in Pending
// before its task is scheduled and is only ever written by that task's
// orchestrator afterwards.
type Job struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Status          JobStatus  `json:"status" gorm:"index;not null"`
	Progress        int        `json:"progress"`
	ProgressMessage string     `json:"progress_message"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	VideoID         *uint      `json:"video_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// ProgressEvent is a single progress update fanned out to subscribers. It is
// not persisted beyond the owning job row.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}
