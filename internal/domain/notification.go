package domain

import "time"

// Notification kind, matching the server's "type" field.
const (
	NotificationKindUser   = "user"
	NotificationKindTask   = "task"
	NotificationKindRole   = "role"
	NotificationKindSystem = "system"
)

// Notification action verbs emitted by the server.
const (
	NotificationActionCreated        = "created"
	NotificationActionUpdated        = "updated"
	NotificationActionDeleted        = "deleted"
	NotificationActionRegistered     = "registered"
	NotificationActionDetailsUpdated = "details_updated"
)

// Notification is a single feed item. IDs are server-assigned and unique
// within the feed. The mixed snake/camel JSON keys mirror the backend's wire
// format and must not be normalized.
type Notification struct {
	NotificationID int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Title          string     `json:"title"`
	Body           string     `json:"body,omitempty"`
	Kind           string     `json:"type"`
	Action         string     `json:"action"`
	EntityType     *string    `json:"entity_type,omitempty"`
	EntityID       *int64     `json:"entity_id,omitempty"`
	SeenAt         *time.Time `json:"seen_at"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Unread reports whether the item has not been seen yet.
func (n *Notification) Unread() bool {
	return n.SeenAt == nil
}
