package models

import "time"

// NotificationKind names the event an email is sent for.
type NotificationKind string

const (
	NotifyRegistered  NotificationKind = "registered"
	NotifyLoggedIn    NotificationKind = "logged_in"
	NotifyPostCreated NotificationKind = "post_created"
	NotifyPostUpdated NotificationKind = "post_updated"
	NotifyPostDeleted NotificationKind = "post_deleted"
)

// Notification is queued by the request path and consumed by the notify
// workers. The recipient is resolved from UserID when it is delivered.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	UserID    string           `json:"userId"`
	PostTitle string           `json:"postTitle,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// Delivery is a row in the Postgres notification_log table.
type Delivery struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	UserID    string           `json:"userId"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
