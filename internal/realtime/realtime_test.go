package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boardpacks/internal/domains"

	"github.com/google/uuid"
)

func section(packID uuid.UUID) domains.PackSection {
	return domains.PackSection{
		ID:     uuid.New(),
		PackID: packID,
		Title:  "CFO Report",
		Status: domains.SectionStatusPending,
	}
}

func TestChannelName(t *testing.T) {
	id := uuid.MustParse("0b7c1c2e-3f4a-4d8e-9a1b-2c3d4e5f6a7b")
	if got, want := Channel(id), "pack_sections:pack_id=eq.0b7c1c2e-3f4a-4d8e-9a1b-2c3d4e5f6a7b"; got != want {
		t.Fatalf("Channel() = %q, want %q", got, want)
	}
}

func TestBrokerDeliversToSubscribedPackOnly(t *testing.T) {
	hub := NewHub(nil)
	var invalidated []uuid.UUID
	broker := NewBroker(NewLocalBus(), hub, func(packID uuid.UUID) {
		invalidated = append(invalidated, packID)
	})
	if err := broker.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	packID := uuid.New()
	watching := hub.NewClient(uuid.New())
	hub.AddChannel(watching, Channel(packID))
	other := hub.NewClient(uuid.New())
	hub.AddChannel(other, Channel(uuid.New()))

	changed := section(packID)
	broker.PublishSectionChange(context.Background(), EventUpdate, changed)

	select {
	case event := <-watching.Outbound:
		if event.Type != EventUpdate || event.Record.ID != changed.ID || event.Table != "pack_sections" {
			t.Fatalf("unexpected event %+v", event)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}
	select {
	case event := <-other.Outbound:
		t.Fatalf("client of another pack received %+v", event)
	default:
	}
	if len(invalidated) != 1 || invalidated[0] != packID {
		t.Fatalf("invalidated = %v", invalidated)
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	packID := uuid.New()
	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, Channel(packID))

	for i := 0; i < clientBuffer+5; i++ {
		hub.Broadcast(NewSectionEvent(EventInsert, section(packID)))
	}
	if len(client.Outbound) != clientBuffer {
		t.Fatalf("buffered %d events, want %d", len(client.Outbound), clientBuffer)
	}
}

func TestCloseClientUnsubscribes(t *testing.T) {
	hub := NewHub(nil)
	channel := Channel(uuid.New())
	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, channel)

	hub.CloseClient(client)
	hub.CloseClient(client)

	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers = %d after close", n)
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	hub := NewHub(nil)
	packID := uuid.New()
	subscribed := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := hub.NewClient(uuid.New())
		defer hub.CloseClient(client)
		hub.AddChannel(client, Channel(packID))
		close(subscribed)
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	<-subscribed
	changed := section(packID)
	hub.Broadcast(NewSectionEvent(EventInsert, changed))

	reader := bufio.NewReader(resp.Body)
	var eventName string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event: ") {
			eventName = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if eventName != "insert" || event.Record.ID != changed.ID {
				t.Fatalf("got %s %+v", eventName, event)
			}
			return
		}
	}
}
