// Package monitoring streams served predictions to websocket subscribers.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PredictionEvent is one served prediction as broadcast to subscribers.
type PredictionEvent struct {
	Magnitude   float64   `json:"magnitude"`
	Depth       float64   `json:"depth"`
	CDI         float64   `json:"cdi"`
	MMI         float64   `json:"mmi"`
	Sig         float64   `json:"sig"`
	Probability float64   `json:"probability"`
	Risk        string    `json:"risk"`
	Timestamp   time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed is a websocket hub. A single Run goroutine owns the client set;
// clients whose send buffer is full are dropped rather than blocking the
// broadcast path.
type Feed struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewFeed() *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (f *Feed) Run() {
	for {
		select {
		case <-f.ctx.Done():
			for c := range f.clients {
				close(c.send)
				c.conn.Close()
			}
			return
		case c := <-f.register:
			f.clients[c] = true
		case c := <-f.unregister:
			if f.clients[c] {
				delete(f.clients, c)
				close(c.send)
			}
		case message := <-f.broadcast:
			for c := range f.clients {
				select {
				case c.send <- message:
				default:
					delete(f.clients, c)
					close(c.send)
				}
			}
		}
	}
}

func (f *Feed) Stop() {
	f.cancel()
}

// Publish broadcasts an event to all subscribers. Never blocks; the event
// is dropped when the hub is saturated.
func (f *Feed) Publish(event PredictionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case f.broadcast <- payload:
	default:
		zap.S().Warn("prediction feed saturated, dropping event")
	}
}

// ServeWS upgrades an HTTP request into a feed subscription.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 16)}
	f.register <- c

	go func() {
		defer conn.Close()
		for message := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				break
			}
		}
	}()
	go func() {
		defer func() {
			select {
			case f.unregister <- c:
			case <-f.ctx.Done():
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
