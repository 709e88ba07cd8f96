package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/BearBump/CareTrack/internal/broker/messages"
	"github.com/BearBump/CareTrack/internal/models"
)

// Envelope is one published message as delivered to a session queue.
type Envelope struct {
	Topic string
	Data  json.RawMessage
}

const DefaultQueueSize = 32

// Hub is the per-patient pub/sub layer. Each patient has two logical
// topics (location, alerts); sessions subscribe per topic and receive
// envelopes over a bounded queue. Publishing never blocks on a slow
// subscriber: a full queue drops its oldest envelope (drop-oldest policy),
// so a lagging consumer converges on fresh data and resyncs the rest via
// Latest / UnacknowledgedFor.
type Hub struct {
	queueSize int

	mu     sync.RWMutex
	topics map[string]map[*Session]struct{}
}

func New(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize: queueSize,
		topics:    map[string]map[*Session]struct{}{},
	}
}

// Open creates a new session in the Disconnected state. The caller owns
// its lifecycle: Connect, subscribe, and Close when done.
func (h *Hub) Open() *Session {
	return &Session{
		id:     uuid.NewString(),
		hub:    h,
		queue:  make(chan Envelope, h.queueSize),
		done:   make(chan struct{}),
		topics: map[string]struct{}{},
	}
}

// Subscription is an idempotent unsubscribe handle.
type Subscription struct {
	once    sync.Once
	session *Session
	topic   string
}

func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.session.hub.remove(sub.topic, sub.session)
		sub.session.forgetTopic(sub.topic)
	})
}

func (h *Hub) SubscribeLocation(s *Session, patientID string) (*Subscription, error) {
	return h.subscribe(s, LocationTopic(patientID))
}

func (h *Hub) SubscribeAlerts(s *Session, patientID string) (*Subscription, error) {
	return h.subscribe(s, AlertsTopic(patientID))
}

func (h *Hub) subscribe(s *Session, topic string) (*Subscription, error) {
	if !s.isConnected() {
		return nil, models.ErrDisconnected
	}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = map[*Session]struct{}{}
		h.topics[topic] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()

	s.rememberTopic(topic)
	return &Subscription{session: s, topic: topic}, nil
}

func (h *Hub) remove(topic string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// PublishLocation fans the fix out to every session on the patient's
// location topic. Delivery is best-effort, at-most-once per connected
// session; a session mid-reconnect simply misses it.
func (h *Hub) PublishLocation(patientID string, fix *models.Fix) {
	b, err := json.Marshal(messages.FromFix(fix))
	if err != nil {
		slog.Error("marshal location update", "patient_id", patientID, "error", err.Error())
		return
	}
	h.publish(LocationTopic(patientID), b)
}

// PublishAlert broadcasts an alert event (raised or acknowledged) on the
// patient's alert topic. Missed pushes are recoverable: alerts are durable
// and resurface via UnacknowledgedFor.
func (h *Hub) PublishAlert(patientID string, event string, alert *models.Alert) {
	b, err := json.Marshal(messages.AlertEvent{Event: event, Alert: messages.FromAlert(alert)})
	if err != nil {
		slog.Error("marshal alert event", "patient_id", patientID, "error", err.Error())
		return
	}
	h.publish(AlertsTopic(patientID), b)
}

func (h *Hub) publish(topic string, data []byte) {
	env := Envelope{Topic: topic, Data: data}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.topics[topic]))
	for s := range h.topics[topic] {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.deliver(env)
	}
}

// Subscribers reports the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
