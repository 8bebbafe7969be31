package storetest

import (
	"sync"

	"github.com/ayush/social-media-api/internal/models"
)

// Notifier collects notifications instead of delivering them.
type Notifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *Notifier) Notify(note models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

// Kinds returns the kinds notified so far, in order.
func (n *Notifier) Kinds() []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]models.NotificationKind, len(n.sent))
	for i, note := range n.sent {
		kinds[i] = note.Kind
	}
	return kinds
}

func (n *Notifier) Sent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.sent...)
}
