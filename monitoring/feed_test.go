package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestFeedBroadcast(t *testing.T) {
	feed := NewFeed()
	go feed.Run()
	defer feed.Stop()

	server := httptest.NewServer(http.HandlerFunc(feed.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// registration races the publish; retry until the subscriber is wired
	event := PredictionEvent{Magnitude: 6.5, Probability: 0.75, Risk: "high", Timestamp: time.Now()}
	received := make(chan []byte, 1)
	go func() {
		_, message, err := conn.ReadMessage()
		if err == nil {
			received <- message
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		feed.Publish(event)
		select {
		case message := <-received:
			var got PredictionEvent
			if err := json.Unmarshal(message, &got); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if got.Risk != "high" || got.Probability != 0.75 {
				t.Fatalf("unexpected event: %+v", got)
			}
			return
		case <-deadline:
			t.Fatal("no broadcast received")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFeedPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	feed := NewFeed()
	go feed.Run()
	defer feed.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			feed.Publish(PredictionEvent{Probability: 0.1, Risk: "low"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}
