package models

import "time"

// NotificationKind classifies a notification widget.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyWarning NotificationKind = "warning"
	NotifyInfo    NotificationKind = "info"
	NotifyConfirm NotificationKind = "confirm"
)

// NotificationState is the lifecycle state of a tracked notification.
// Transitions are visible -> hiding -> removed; removed is terminal and
// no transition skips hiding.
type NotificationState int

const (
	NotificationVisible NotificationState = iota
	NotificationHiding
	NotificationRemoved
)

func (s NotificationState) String() string {
	switch s {
	case NotificationVisible:
		return "visible"
	case NotificationHiding:
		return "hiding"
	case NotificationRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Notification is the authoritative record of one transient UI widget.
// The queue owns it from creation to removal; renderers only ever hold the
// render handle.
type Notification struct {
	ID               int64
	Kind             NotificationKind
	Message          string
	Title            string
	State            NotificationState
	AutoDismissAfter time.Duration // <= 0 means never auto-dismiss
	OKLabel          string        // confirm kind only
	CancelLabel      string        // confirm kind only
	RenderHandle     string
}
