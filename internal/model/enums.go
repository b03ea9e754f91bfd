package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var ValidJobStatuses = []JobStatus{
	JobStatusPending, JobStatusProcessing, JobStatusCompleted,
	JobStatusFailed, JobStatusCancelled,
}

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// IsValid reports whether s is a known status value.
func (s JobStatus) IsValid() bool {
	for _, v := range ValidJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Scene types
type SceneType string

const (
	SceneTypeMedia SceneType = "media"
	SceneTypeText  SceneType = "text"
)

// Asset type hints from the script generator. Mixed means the generator could
// not decide between image and video; the resolver treats it as video.
type AssetType string

const (
	AssetTypeImage AssetType = "image"
	AssetTypeVideo AssetType = "video"
	AssetTypeMixed AssetType = "mixed"
)

// Visual asset types in a render plan
type VisualType string

const (
	VisualTypeImage VisualType = "image"
	VisualTypeVideo VisualType = "video"
	VisualTypeText  VisualType = "text"
)

// Storage locations for a produced video file
type StorageLocation string

const (
	StorageLocal StorageLocation = "local"
	StorageCloud StorageLocation = "cloud"
)
