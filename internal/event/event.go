package event

type Type string

const (
	// TypeSessionExpired is published by the upstream client when any call
	// comes back unauthorized. The app-level listener tears the session down.
	TypeSessionExpired Type = "session.expired"

	TypeNotificationReceived Type = "notification.received"
	TypeFeedStopped          Type = "feed.stopped"
	TypeSidebarClosed        Type = "sidebar.closed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
