package model

import (
	"time"
)

type NotificationStatus string

const (
	// NotificationStatusPending is reserved for delivery confirmation; no
	// producer creates notifications in this state today.
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusRead    NotificationStatus = "read"
)

type NotificationType string

const (
	NotificationTypeAppointmentReminder NotificationType = "appointment_reminder"
	NotificationTypeSystemAlert         NotificationType = "system_alert"
	NotificationTypePaymentReminder     NotificationType = "payment_reminder"
	NotificationTypePaymentConfirmation NotificationType = "payment_confirmation"
	NotificationTypeLabResult           NotificationType = "lab_result"
	NotificationTypeAccountStatus       NotificationType = "account_status"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeAppointmentReminder, NotificationTypeSystemAlert,
		NotificationTypePaymentReminder, NotificationTypePaymentConfirmation,
		NotificationTypeLabResult, NotificationTypeAccountStatus:
		return true
	}
	return false
}

type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
)

func (c NotificationChannel) Valid() bool {
	return c == NotificationChannelInApp || c == NotificationChannelEmail
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

func (p NotificationPriority) Valid() bool {
	switch p {
	case NotificationPriorityLow, NotificationPriorityMedium, NotificationPriorityHigh, NotificationPriorityUrgent:
		return true
	}
	return false
}

// Notification is a message delivered to exactly one owner.
// IsRead, Status == read and ReadAt != nil always agree.
type Notification struct {
	ID           string               `json:"id" db:"id"`
	OwnerActorID string               `json:"owner_actor_id" db:"owner_actor_id"`
	Type         NotificationType     `json:"type" db:"type"`
	Channel      NotificationChannel  `json:"channel" db:"channel"`
	Status       NotificationStatus   `json:"status" db:"status"`
	Title        string               `json:"title" db:"title"`
	Message      string               `json:"message" db:"message"`
	Priority     NotificationPriority `json:"priority" db:"priority"`
	IsRead       bool                 `json:"is_read" db:"is_read"`
	ActionURL    *string              `json:"action_url,omitempty" db:"action_url"`
	ActionText   *string              `json:"action_text,omitempty" db:"action_text"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
	ReadAt       *time.Time           `json:"read_at,omitempty" db:"read_at"`
}

// MarkRead moves the notification to read. ReadAt is only set once.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead && n.ReadAt != nil {
		return
	}
	n.IsRead = true
	n.Status = NotificationStatusRead
	if n.ReadAt == nil {
		n.ReadAt = &now
	}
}

// NotificationPayload is what a producer supplies for a new notification.
type NotificationPayload struct {
	Type       NotificationType     `json:"type" binding:"required,notification_type"`
	Channel    NotificationChannel  `json:"channel"`
	Title      string               `json:"title" binding:"required,max=200"`
	Message    string               `json:"message" binding:"max=4000"`
	Priority   NotificationPriority `json:"priority"`
	ActionURL  *string              `json:"action_url,omitempty" binding:"omitempty,url"`
	ActionText *string              `json:"action_text,omitempty"`
}

type CreateNotificationRequest struct {
	OwnerActorID string `json:"owner_actor_id" binding:"required"`
	NotificationPayload
}

const MaxNotificationPageSize = 100

// NotificationFilter is the typed filter for list queries. The owner is
// not part of it: every query takes the owner separately and always
// applies it.
type NotificationFilter struct {
	UnreadOnly bool                `form:"unread_only"`
	Type       NotificationType    `form:"type"`
	Channel    NotificationChannel `form:"channel"`
	Limit      int                 `form:"limit"`
	Offset     int                 `form:"offset"`
}

type NotificationPage struct {
	Items       []*Notification `json:"items"`
	TotalCount  int             `json:"total_count"`
	UnreadCount int             `json:"unread_count"`
	HasMore     bool            `json:"has_more"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}
