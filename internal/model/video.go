package model

import "time"

// Video is a completed artifact. At most one video exists per distinct
// source URL (see the reuse policy in the generation pipeline).
type Video struct {
	ID              uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Title           string          `json:"title" gorm:"not null"`
	SourceURL       string          `json:"source_url" gorm:"index;not null"`
	FilePath        string          `json:"file_path"`
	StorageLocation StorageLocation `json:"storage_location" gorm:"default:local"`
	Duration        *float64        `json:"duration,omitempty"`
	SizeMB          *float64        `json:"size_mb,omitempty"`
	ScriptJSON      *string         `json:"-"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index;not null"`
}
