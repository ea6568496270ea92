package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"challenge-arena/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	sendBuffer   = 32
	maxFrameSize = 4096
)

var (
	errChannelClosed = errors.New("channel closed")
	errSlowConsumer  = errors.New("send buffer full")
)

// wsChannel is the registry's view of one websocket. Events are encoded on
// Send and written by a single writer goroutine.
type wsChannel struct {
	mu     sync.Mutex
	closed bool
	out    chan []byte
}

func newWSChannel() *wsChannel {
	return &wsChannel{out: make(chan []byte, sendBuffer)}
}

func (c *wsChannel) Send(event domain.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return errSlowConsumer
	}
}

// Close stops the writer, which then closes the connection.
func (c *wsChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

func (c *wsChannel) writeLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	// closing the conn unblocks the read loop
	defer conn.Close()
	for msg := range c.out {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// inboundMessage covers every client message. Answer and Message are
// pointers so a missing field can be told apart from an empty one.
type inboundMessage struct {
	Type    string  `json:"type"`
	Answer  *string `json:"answer"`
	Time    float64 `json:"time"`
	Message *string `json:"message"`
}

// ServeWS upgrades a roster member's connection and feeds their messages
// into the room.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("room")
	playerID := ps.ByName("player")

	if h.identities.Enforced() {
		who, err := h.identities.Resolve(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if who.ID != playerID {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "token does not match player"})
			return
		}
	}
	room, err := h.service.Snapshot(roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !room.HasPlayer(playerID) {
		writeError(w, domain.ErrParticipantNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	ch := newWSChannel()
	writerDone := make(chan struct{})
	go ch.writeLoop(conn, writerDone)

	if err := h.service.Connect(room.ID, playerID, ch); err != nil {
		log.Printf("ws connect %s/%s: %v", room.ID, playerID, err)
		ch.Close()
		<-writerDone
		return
	}
	h.logf("player %s connected to room %s", playerID, room.ID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logf("room %s: dropping malformed message from %s: %v", room.ID, playerID, err)
			continue
		}
		h.dispatch(r, room.ID, playerID, msg)
	}

	h.service.Disconnect(playerID, ch)
	ch.Close()
	<-writerDone
	h.logf("player %s left room %s", playerID, room.ID)
}

func (h *Handler) dispatch(r *http.Request, roomID, playerID string, msg inboundMessage) {
	var err error
	switch msg.Type {
	case "ready":
		err = h.service.Ready(r.Context(), roomID, playerID)
	case "answer":
		if msg.Answer == nil {
			h.logf("room %s: dropping answer without a value from %s", roomID, playerID)
			return
		}
		_, err = h.service.SubmitAnswer(roomID, playerID, *msg.Answer, msg.Time)
	case "chat":
		if msg.Message == nil {
			h.logf("room %s: dropping chat without a message from %s", roomID, playerID)
			return
		}
		err = h.service.Chat(roomID, playerID, *msg.Message)
	default:
		h.logf("room %s: unsupported message type %q from %s", roomID, msg.Type, playerID)
		return
	}
	if err != nil {
		h.logf("room %s: %s from %s rejected: %v", roomID, msg.Type, playerID, err)
	}
}
