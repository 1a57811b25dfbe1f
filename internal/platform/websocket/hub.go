// Package websocket pushes availability changes to connected browsers so that
// open booking screens can refresh without polling. Clients watch one or more
// doctors; each doctor is a topic of the form "doctor/<uuid>".
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event types published by the scheduling domain.
const (
	EventSlotBooked          = "slot.booked"
	EventSlotReleased        = "slot.released"
	EventAvailabilityChanged = "availability.updated"
)

const topicPrefix = "doctor/"

// DoctorTopic returns the topic that carries events for a doctor.
func DoctorTopic(doctorID uuid.UUID) string {
	return topicPrefix + doctorID.String()
}

// validTopic reports whether topic names a doctor.
func validTopic(topic string) bool {
	rest, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// Event is one change to a doctor's bookable slots. Date and Time are empty
// for availability.updated.
type Event struct {
	Type      string    `json:"type"`
	Topic     string    `json:"topic"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Date      string    `json:"date,omitempty"`
	Time      string    `json:"time,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event for doctorID stamped with the current time.
func NewEvent(eventType string, doctorID uuid.UUID, date, slot string) Event {
	return Event{
		Type:      eventType,
		Topic:     DoctorTopic(doctorID),
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
		Timestamp: time.Now().UTC(),
	}
}

// ClientMessage is an inbound subscribe or unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher is what the scheduling service depends on.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a single connected browser.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
	conn   Conn
}

// NewClient returns a client with a buffered outbound queue.
func NewClient(conn Conn, topics ...string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		Topics: topics,
		Send:   make(chan []byte, sendBuffer),
		conn:   conn,
	}
}

const sendBuffer = 64

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	all     map[*Client]struct{}
	dropped int
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.subscribeLocked(client, topic)
	}
}

// Unregister removes a client from every topic and closes its Send channel.
// Calling it twice is safe.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.unsubscribeLocked(client, topic)
	}
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) unsubscribeLocked(client *Client, topic string) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// Subscribe adds doctor topics to a registered client. Malformed topics are
// rejected and nothing is subscribed.
func (h *Hub) Subscribe(client *Client, topics []string) error {
	for _, t := range topics {
		if !validTopic(t) {
			return fmt.Errorf("invalid topic %q", t)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[client]; !ok {
		return fmt.Errorf("client %s is not registered", client.ID)
	}
	for _, topic := range topics {
		if _, already := h.clients[topic][client]; already {
			continue
		}
		h.subscribeLocked(client, topic)
		client.Topics = append(client.Topics, topic)
	}
	return nil
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	remove := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		remove[t] = struct{}{}
		h.unsubscribeLocked(client, t)
	}

	remaining := client.Topics[:0]
	for _, t := range client.Topics {
		if _, rm := remove[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches an inbound client message.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) error {
	switch msg.Action {
	case "subscribe":
		return h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
		return nil
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}

// Broadcast queues event for every subscriber of topic. Subscribers whose
// queue is full miss the event rather than block the publisher.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("marshal event")
		return
	}

	h.mu.RLock()
	var skipped int
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			skipped++
		}
	}
	h.mu.RUnlock()

	if skipped > 0 {
		h.mu.Lock()
		h.dropped += skipped
		h.mu.Unlock()
		h.logger.Warn().Str("topic", topic).Int("skipped", skipped).Msg("slow subscribers missed event")
	}
}

// Publish implements EventPublisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Topic == "" {
		event.Topic = DoctorTopic(event.DoctorID)
	}
	h.Broadcast(event.Topic, event)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients watching topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Dropped returns how many deliveries were skipped because a client queue
// was full.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.all))
	for c := range h.all {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.Unregister(c)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}
