package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/domain"
	"github.com/campusdesk/officehours/internal/events"
	"github.com/campusdesk/officehours/internal/wire"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("realtime hub closed")

// Conn is the transport a subscriber writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// SnapshotSource supplies the records sent to a new subscriber.
type SnapshotSource interface {
	ListActive(ctx context.Context) ([]domain.StatusRecord, error)
}

// Config tunes per-subscriber delivery.
type Config struct {
	QueueSize    int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Stats is a point-in-time view of hub activity.
type Stats struct {
	Subscribers int   `json:"subscribers"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// Hub fans change notifications out to every live subscriber.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool

	source SnapshotSource
	cfg    Config
	logger *zap.Logger

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewHub builds a hub reading snapshots from source.
func NewHub(source SnapshotSource, cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		source:      source,
		cfg:         cfg.withDefaults(),
		logger:      logger,
	}
}

// Subscribe registers conn and queues exactly one initial snapshot for it. The
// snapshot is queued before the subscriber becomes visible to Broadcast, so it
// is always the first frame the connection receives.
func (h *Hub) Subscribe(ctx context.Context, conn Conn) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	records, err := h.source.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := encode(Message{Type: MessageInitialData, Data: wire.NewFacultyList(records)})
	if err != nil {
		return nil, err
	}

	sub := newSubscriber(h, conn)
	sub.queue <- snapshot
	h.subscribers[sub.id] = sub
	go sub.writeLoop()

	h.logger.Debug("subscriber connected",
		zap.String("subscriber_id", sub.id),
		zap.Int("snapshot_size", len(records)),
		zap.Int("subscribers", len(h.subscribers)))
	return sub, nil
}

// Unsubscribe removes sub and closes its connection. Safe to call repeatedly.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, present := h.subscribers[sub.id]
	delete(h.subscribers, sub.id)
	remaining := len(h.subscribers)
	h.mu.Unlock()

	sub.close()
	<-sub.done

	if present {
		h.logger.Debug("subscriber disconnected",
			zap.String("subscriber_id", sub.id),
			zap.Int("subscribers", remaining))
	}
}

// Broadcast queues msg for every open subscriber without waiting on any of them.
func (h *Hub) Broadcast(msg Message) error {
	payload, err := encode(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		switch sub.enqueue(payload) {
		case enqueueOverflow:
			h.dropped.Add(1)
			h.logger.Warn("subscriber queue full; closing connection",
				zap.String("subscriber_id", sub.id),
				zap.String("message_type", string(msg.Type)))
			sub.close()
		case enqueueClosed:
			// closed connections are skipped until their own close unsubscribes them
		}
	}
	return nil
}

// HandleEvent adapts Broadcast to the dispatcher handler signature.
func (h *Hub) HandleEvent(_ context.Context, event events.Event) error {
	msg, ok := MessageFromEvent(event)
	if !ok {
		h.logger.Warn("ignoring event without live representation",
			zap.String("event_type", string(event.Type)))
		return nil
	}
	return h.Broadcast(msg)
}

// Register subscribes the hub to every event type it can forward.
func (h *Hub) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventFacultyAdded, h.HandleEvent)
	dispatcher.Subscribe(events.EventStatusUpdated, h.HandleEvent)
	dispatcher.Subscribe(events.EventFacultyRemoved, h.HandleEvent)
}

// Stats reports counters for metrics and readiness.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.subscribers)
	h.mu.RUnlock()
	return Stats{
		Subscribers: n,
		Delivered:   h.delivered.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Closed reports whether Close has been called.
func (h *Hub) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs = append(subs, sub)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		<-sub.done
	}
}

type enqueueResult int

const (
	enqueueOK enqueueResult = iota
	enqueueClosed
	enqueueOverflow
)

// Subscriber is one live connection with its own FIFO outbound queue.
type Subscriber struct {
	id    string
	hub   *Hub
	conn  Conn
	queue chan []byte
	stop  chan struct{}
	done  chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
}

func newSubscriber(h *Hub, conn Conn) *Subscriber {
	return &Subscriber{
		id:    uuid.NewString(),
		hub:   h,
		conn:  conn,
		queue: make(chan []byte, h.cfg.QueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// ID returns the subscriber identity used as the set key.
func (s *Subscriber) ID() string {
	return s.id
}

// Open reports whether the subscriber still accepts frames.
func (s *Subscriber) Open() bool {
	return !s.closed.Load()
}

func (s *Subscriber) enqueue(payload []byte) enqueueResult {
	if s.closed.Load() {
		return enqueueClosed
	}
	select {
	case <-s.stop:
		return enqueueClosed
	case s.queue <- payload:
		return enqueueOK
	default:
		return enqueueOverflow
	}
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		_ = s.conn.Close()
	})
}

func (s *Subscriber) writeLoop() {
	defer close(s.done)

	var ping <-chan time.Time
	if s.hub.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.hub.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-s.stop:
			return
		case payload := <-s.queue:
			if err := s.write(websocket.TextMessage, payload); err != nil {
				s.fail(err)
				return
			}
			s.hub.delivered.Add(1)
		case <-ping:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.fail(err)
				return
			}
		}
	}
}

func (s *Subscriber) write(messageType int, payload []byte) error {
	if s.hub.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(messageType, payload)
}

func (s *Subscriber) fail(err error) {
	if s.closed.Load() {
		return
	}
	s.hub.logger.Debug("subscriber write failed",
		zap.String("subscriber_id", s.id),
		zap.Error(err))
	s.close()
}
