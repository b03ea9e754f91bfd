package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeConnection WSMessageType = "connection"
	WSMessageTypeSubscribed WSMessageType = "subscribed"
	WSMessageTypeProgress   WSMessageType = "job_progress"
	WSMessageTypeStatus     WSMessageType = "job_status"
	WSMessageTypePing       WSMessageType = "ping"
	WSMessageTypePong       WSMessageType = "pong"
)

// WSMessage is the minimal envelope for client control messages.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

// WSProgressMessage pushes a live progress event for a job.
type WSProgressMessage struct {
	Type     WSMessageType `json:"type"`
	JobID    string        `json:"job_id"`
	Progress int           `json:"progress"`
	Message  string        `json:"message"`
}

// WSStatusMessage pushes a full job snapshot, sent once on subscription so a
// late subscriber does not miss history (push delivery itself has no replay).
type WSStatusMessage struct {
	Type  WSMessageType `json:"type"`
	JobID string        `json:"job_id"`
	Job   *Job          `json:"job"`
}
