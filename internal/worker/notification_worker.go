package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/config"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/service"
)

// RelayStats counts what the relay worker did with queued events.
type RelayStats struct {
	Queued    int   `json:"queued"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// NotificationWorker drains relay publishes on its own goroutine so the write
// path only pays for a channel send.
type NotificationWorker struct {
	service *service.NotificationService
	queue   chan events.Event
	timeout time.Duration
	logger  *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	published atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// StartNotificationWorker registers the notification handlers and starts the
// goroutine that publishes what they queue.
func StartNotificationWorker(notificationService *service.NotificationService, cfg config.RelayConfig, logger *zap.Logger) *NotificationWorker {
	if notificationService == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	w := &NotificationWorker{
		service: notificationService,
		queue:   make(chan events.Event, size),
		timeout: cfg.PublishTimeout(),
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	notificationService.RegisterHandlers(w)
	go w.run()
	return w
}

// Enqueue hands event to the worker without blocking. A full queue drops the
// event.
func (w *NotificationWorker) Enqueue(event events.Event) bool {
	select {
	case <-w.stop:
		w.dropped.Add(1)
		return false
	default:
	}
	select {
	case w.queue <- event:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Stop publishes what is already queued and waits for the goroutine to exit.
// Events enqueued afterwards are dropped.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	stats := w.Stats()
	w.logger.Debug("relay worker stopped",
		zap.Int64("published", stats.Published),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped))
}

// Stats reports relay counters.
func (w *NotificationWorker) Stats() RelayStats {
	if w == nil {
		return RelayStats{}
	}
	return RelayStats{
		Queued:    len(w.queue),
		Published: w.published.Load(),
		Failed:    w.failed.Load(),
		Dropped:   w.dropped.Load(),
	}
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for {
		select {
		case event := <-w.queue:
			w.publish(event)
		case <-w.stop:
			for {
				select {
				case event := <-w.queue:
					w.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (w *NotificationWorker) publish(event events.Event) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.service.Relay(ctx, event); err != nil {
		w.failed.Add(1)
		return
	}
	w.published.Add(1)
}
