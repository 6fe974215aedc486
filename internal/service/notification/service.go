package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/notification"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 50
	FlushInterval time.Duration // default: 2 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
	SendTimeout   time.Duration // default: 10 seconds
}

type service struct {
	senders []notification.Sender
	config  Config
	logger  *slog.Logger

	queue    chan notification.Notification
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	// mu orders Queue against Stop so nothing lands in the buffer after
	// the workers have drained it.
	mu      sync.RWMutex
	stopped bool
}

// NewNotificationService starts background workers that fan every queued
// notification out to all senders. Sender failures are logged and dropped.
func NewNotificationService(logger *slog.Logger, cfg Config, senders ...notification.Sender) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &service{
		senders: senders,
		config:  cfg,
		logger:  logger.With("component", "notification"),
		queue:   make(chan notification.Notification, cfg.QueueSize),
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info("notification service started",
		"workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval, "senders", len(senders))

	return s
}

func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.Notification, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		for _, n := range batch {
			s.deliver(id, n)
		}
		batch = batch[:0]
	}

	for {
		select {
		case n := <-s.queue:
			batch = append(batch, n)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case n := <-s.queue:
					batch = append(batch, n)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *service) deliver(worker int, n notification.Notification) {
	for _, sender := range s.senders {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
		err := sender.Send(ctx, n)
		cancel()
		if err != nil {
			s.logger.Warn("notification delivery failed",
				"worker", worker, "type", n.Type, "recipient_id", n.RecipientID, "error", err)
		}
	}
}

// Queue implements notification.Service.
func (s *service) Queue(ctx context.Context, n notification.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.logger.Warn("notification dropped after shutdown", "type", n.Type)
		return
	}

	select {
	case s.queue <- n:
	default:
		s.logger.Warn("notification queue full, dropping", "type", n.Type, "recipient_id", n.RecipientID)
	}
}

// Stop implements notification.Service.
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.stopCh)
		s.mu.Unlock()

		s.wg.Wait()
		s.logger.Info("notification service stopped")
	})
}
