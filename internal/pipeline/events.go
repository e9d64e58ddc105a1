package pipeline

// EventType names a document change.
type EventType string

const (
	EventUpdated EventType = "document.updated"
	EventRemoved EventType = "document.removed"
	EventFailed  EventType = "document.failed"
)

// Event is delivered to the listener after a document changes.
type Event struct {
	Type  EventType `json:"type"`
	DocID string    `json:"doc_id"`
	JobID string    `json:"job_id,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Listener receives document events. It must not block.
type Listener func(Event)
