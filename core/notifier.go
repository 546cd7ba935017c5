package core

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notifier is any service that can present transient, fire-and-forget
// notifications ("toasts") to the logged in user.
type Notifier interface {
	Notify(kind NotificationKind, title, message string)
}
