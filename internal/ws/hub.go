package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Starter triggers a room's simulation; satisfied by the round scheduler.
type Starter interface {
	Start(ctx context.Context, roomID string) error
}

// RoundReporter answers what round a room is in, for late-joining sockets.
type RoundReporter interface {
	CurrentRound(roomID string) (int, bool)
}

// Envelope is the wire frame in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client-originated message types.
const (
	msgJoinLobby   = "join-lobby"
	msgSendMessage = "send-message"
	msgStartGame   = "start-game"
)

// Hub-originated message types outside the scheduler's set.
const (
	evtPlayerJoined   = "player-joined"
	evtSyncState      = "sync-state"
	evtReceiveMessage = "receive-message"
)

type chatPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Round     int    `json:"roundNumber"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Hub fans broadcast events out to every socket subscribed to a room. Sends
// are non-blocking: each client has a buffered outbox and is dropped when it
// cannot keep up, so a stalled reader can never reorder or delay a room's
// event stream.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	starter Starter
	rounds  RoundReporter
	log     *slog.Logger

	upgrader websocket.Upgrader
}

func NewHub(starter Starter, rounds RoundReporter, allowedOrigin string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:   make(map[string]map[*client]struct{}),
		starter: starter,
		rounds:  rounds,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// ServeHTTP upgrades the connection and runs the client's pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, 64)}
	go c.writePump()
	c.readPump()
}

// Broadcast publishes one event to every subscriber of the room, in call
// order. The payload is marshalled once.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.Error("broadcast marshal failed", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	subs := h.rooms[roomID]
	for c := range subs {
		c.enqueue(frame)
	}
	h.mu.RUnlock()
}

func (h *Hub) subscribe(roomID string, c *client) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	for roomID, subs := range h.rooms {
		if _, ok := subs[c]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()
}

// broadcastOthers sends to everyone in the room except the originator.
func (h *Hub) broadcastOthers(roomID string, origin *client, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		h.log.Error("broadcast marshal failed", "event", event, "err", err)
		return
	}
	h.mu.RLock()
	for c := range h.rooms[roomID] {
		if c != origin {
			c.enqueue(frame)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) handleMessage(c *client, env Envelope) {
	switch env.Type {
	case msgJoinLobby:
		if env.Room == "" {
			return
		}
		h.subscribe(env.Room, c)
		c.room = env.Room
		h.broadcastOthers(env.Room, c, evtPlayerJoined, nil)
		if round, ok := h.rounds.CurrentRound(env.Room); ok {
			frame, err := marshalEnvelope(evtSyncState, map[string]int{"round": round})
			if err == nil {
				c.enqueue(frame)
			}
		}
	case msgSendMessage:
		room := env.Room
		if room == "" {
			room = c.room
		}
		if room == "" {
			return
		}
		var msg chatPayload
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			h.log.Warn("bad chat payload", "err", err)
			return
		}
		msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		h.Broadcast(room, evtReceiveMessage, msg)
	case msgStartGame:
		if env.Room == "" {
			return
		}
		roomID := env.Room
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.starter.Start(ctx, roomID); err != nil {
				h.log.Error("game start failed", "room", roomID, "err", err)
			}
		}()
	default:
		h.log.Warn("unknown message type", "type", env.Type)
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	env := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: event, Data: payload}
	return json.Marshal(env)
}
