package notification

import (
	"context"
)

// Service queues notifications for asynchronous delivery.
type Service interface {
	// Queue never blocks on delivery; a full queue drops the notification.
	Queue(ctx context.Context, n Notification)

	// Stop drains the queue and waits for workers to exit.
	Stop()
}

// Sender delivers one notification to an external channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}
