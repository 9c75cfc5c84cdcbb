package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/config"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/wire"
)

// Publisher forwards encoded events to an external pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RelayQueue accepts events for publication off the write path. Enqueue must
// not block; it reports false when the event was dropped.
type RelayQueue interface {
	Enqueue(event events.Event) bool
}

// NotificationService relays domain events to systems outside the process.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  Publisher
	queue      RelayQueue
	logger     *zap.Logger
	cfg        config.RelayConfig
}

// RelayMessage is the JSON document published for every event.
type RelayMessage struct {
	ID        string           `json:"id"`
	Type      events.EventType `json:"type"`
	FacultyID string           `json:"faculty_id"`
	Timestamp time.Time        `json:"timestamp"`
	Data      any              `json:"data"`
}

// NewNotificationService creates the service. A nil publisher only logs.
func NewNotificationService(dispatcher events.Dispatcher, publisher Publisher, logger *zap.Logger, cfg config.RelayConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events. Handlers only log and hand the event
// to queue, so a slow publisher never delays the write that raised it. A nil
// queue disables relaying.
func (n *NotificationService) RegisterHandlers(queue RelayQueue) {
	if n.dispatcher == nil {
		return
	}
	n.queue = queue
	n.dispatcher.Subscribe(events.EventFacultyAdded, n.handleFacultyAdded)
	n.dispatcher.Subscribe(events.EventStatusUpdated, n.handleStatusUpdated)
	n.dispatcher.Subscribe(events.EventFacultyRemoved, n.handleFacultyRemoved)
}

func (n *NotificationService) handleFacultyAdded(_ context.Context, event events.Event) error {
	n.logger.Info("FacultyAdded", zap.String("faculty_id", event.FacultyID))
	return n.enqueue(event)
}

func (n *NotificationService) handleStatusUpdated(_ context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("faculty_id", event.FacultyID)}
	if p, ok := event.Payload.(events.RecordPayload); ok {
		fields = append(fields, zap.String("status", string(p.Record.Status)))
	}
	n.logger.Info("StatusUpdated", fields...)
	return n.enqueue(event)
}

func (n *NotificationService) handleFacultyRemoved(_ context.Context, event events.Event) error {
	n.logger.Info("FacultyRemoved", zap.String("faculty_id", event.FacultyID))
	return n.enqueue(event)
}

func (n *NotificationService) enqueue(event events.Event) error {
	if n.queue == nil || !n.Enabled() {
		return nil
	}
	if !n.queue.Enqueue(event) {
		n.logger.Warn("relay queue full; event dropped",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Enabled reports whether events are published anywhere.
func (n *NotificationService) Enabled() bool {
	return n.publisher != nil && n.cfg.Channel != ""
}

// Relay publishes one event to the configured channel.
func (n *NotificationService) Relay(ctx context.Context, event events.Event) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(newRelayMessage(event))
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, n.cfg.Channel, payload); err != nil {
		n.logger.Warn("relay publish failed",
			zap.String("channel", n.cfg.Channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	n.logger.Debug("relayed event",
		zap.String("channel", n.cfg.Channel),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
	return nil
}

func newRelayMessage(event events.Event) RelayMessage {
	msg := RelayMessage{
		ID:        event.ID,
		Type:      event.Type,
		FacultyID: event.FacultyID,
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	}
	if p, ok := event.Payload.(events.RecordPayload); ok {
		msg.Data = wire.NewFaculty(p.Record)
	}
	return msg
}
