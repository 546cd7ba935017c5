package dummynotif

import (
	"sync"

	"github.com/trezcool/masomo-admin/core"
)

// Notification is one recorded Notify call.
type Notification struct {
	Kind    core.NotificationKind
	Title   string
	Message string
}

// Service records notifications instead of presenting them; for tests.
type Service struct {
	mu   sync.Mutex
	sent []Notification
}

var _ core.Notifier = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) Notify(kind core.NotificationKind, title, message string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = append(svc.sent, Notification{Kind: kind, Title: title, Message: message})
}

// Sent returns a copy of all recorded notifications.
func (svc *Service) Sent() []Notification {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]Notification, len(svc.sent))
	copy(out, svc.sent)
	return out
}

// CountTitle returns how many recorded notifications carry the given title.
func (svc *Service) CountTitle(title string) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	var n int
	for _, notif := range svc.sent {
		if notif.Title == title {
			n++
		}
	}
	return n
}

// Reset drops all recorded notifications.
func (svc *Service) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
}
