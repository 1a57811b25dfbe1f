package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHub() *Hub {
	return NewHub(zerolog.New(io.Discard))
}

func newTestClient(topics ...string) *Client {
	return NewClient(nil, topics...)
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s did not receive event", c.ID)
	}
	return Event{}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Send:
		t.Fatalf("client %s should not have received an event", c.ID)
	default:
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub()
	topic := DoctorTopic(uuid.New())
	client := newTestClient(topic)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 1 {
		t.Fatalf("expected 1 client on %s, got %d", topic, hub.TopicCount(topic))
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount(topic) != 0 {
		t.Fatalf("expected 0 clients on %s, got %d", topic, hub.TopicCount(topic))
	}
	if _, ok := <-client.Send; ok {
		t.Fatal("expected Send channel to be closed")
	}
}

func TestHub_PublishReachesOnlyDoctorSubscribers(t *testing.T) {
	hub := newTestHub()
	docA, docB := uuid.New(), uuid.New()

	watcherA1 := newTestClient(DoctorTopic(docA))
	watcherA2 := newTestClient(DoctorTopic(docA))
	watcherB := newTestClient(DoctorTopic(docB))
	hub.Register(watcherA1)
	hub.Register(watcherA2)
	hub.Register(watcherB)

	ev := NewEvent(EventSlotBooked, docA, "2024-05-01", "11am-1pm")
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, c := range []*Client{watcherA1, watcherA2} {
		got := receive(t, c)
		if got.Type != EventSlotBooked || got.DoctorID != docA || got.Time != "11am-1pm" {
			t.Errorf("unexpected event %+v", got)
		}
	}
	assertNothing(t, watcherB)
}

func TestHub_PublishFillsTopic(t *testing.T) {
	hub := newTestHub()
	doc := uuid.New()
	c := newTestClient(DoctorTopic(doc))
	hub.Register(c)

	_ = hub.Publish(context.Background(), Event{Type: EventAvailabilityChanged, DoctorID: doc})

	if got := receive(t, c); got.Topic != DoctorTopic(doc) {
		t.Errorf("expected topic to be derived from doctor id, got %q", got.Topic)
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newTestHub()
	doc := uuid.New()
	slow := &Client{ID: "slow", Topics: []string{DoctorTopic(doc)}, Send: make(chan []byte, 1)}
	hub.Register(slow)

	for i := 0; i < 3; i++ {
		hub.Broadcast(DoctorTopic(doc), NewEvent(EventSlotReleased, doc, "2024-05-01", "3pm-5pm"))
	}
	if hub.Dropped() != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", hub.Dropped())
	}
}

func TestHub_SubscribeValidatesTopics(t *testing.T) {
	hub := newTestHub()
	c := newTestClient()
	hub.Register(c)

	if err := hub.Subscribe(c, []string{"Patient/123"}); err == nil {
		t.Error("expected error for non doctor topic")
	}
	if err := hub.Subscribe(c, []string{"doctor/not-a-uuid"}); err == nil {
		t.Error("expected error for malformed doctor id")
	}

	topic := DoctorTopic(uuid.New())
	if err := hub.Subscribe(c, []string{topic, topic}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.TopicCount(topic) != 1 || len(c.Topics) != 1 {
		t.Errorf("expected a single subscription, got count=%d topics=%v", hub.TopicCount(topic), c.Topics)
	}

	stranger := newTestClient()
	if err := hub.Subscribe(stranger, []string{topic}); err == nil {
		t.Error("expected error for unregistered client")
	}
}

func TestHub_ProcessMessage(t *testing.T) {
	hub := newTestHub()
	c := newTestClient()
	hub.Register(c)
	t1, t2 := DoctorTopic(uuid.New()), DoctorTopic(uuid.New())

	raw := `{"action":"subscribe","topics":["` + t1 + `","` + t2 + `"]}`
	var msg ClientMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if err := hub.ProcessMessage(c, msg); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if hub.TopicCount(t1) != 1 || hub.TopicCount(t2) != 1 {
		t.Fatal("expected both topics subscribed")
	}

	if err := hub.ProcessMessage(c, ClientMessage{Action: "unsubscribe", Topics: []string{t1}}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if hub.TopicCount(t1) != 0 || hub.TopicCount(t2) != 1 {
		t.Errorf("expected only %s to remain", t2)
	}
	if len(c.Topics) != 1 || c.Topics[0] != t2 {
		t.Errorf("unexpected client topics %v", c.Topics)
	}

	if err := hub.ProcessMessage(c, ClientMessage{Action: "shout"}); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestHub_ConcurrentRegisterPublish(t *testing.T) {
	hub := newTestHub()
	doc := uuid.New()
	topic := DoctorTopic(doc)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newTestClient(topic)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			_ = hub.Publish(context.Background(), NewEvent(EventSlotBooked, doc, "2024-05-01", "5pm-7pm"))
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHandler_RejectsInvalidDoctorID(t *testing.T) {
	h := NewHandler(newTestHub(), nil, zerolog.New(io.Discard))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws/doctors/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := newTestHub()
	h := NewHandler(hub, []string{"http://allowed.example"}, zerolog.New(io.Discard))
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	doc := uuid.New()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/doctors/" + doc.String()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := gorillawebsocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for disallowed origin")
	}

	header.Set("Origin", "http://allowed.example")
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(DoctorTopic(doc)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = hub.Publish(context.Background(), NewEvent(EventSlotBooked, doc, "2024-05-01", "11am-1pm"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventSlotBooked || got.Date != "2024-05-01" {
		t.Errorf("unexpected event %+v", got)
	}
}
