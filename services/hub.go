package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub tracks live websocket sessions keyed by the user they joined as.
// Delivery is fire-and-forget: a user with no connected session simply
// misses the event and picks it up on the next notification poll.
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	mutex      sync.RWMutex
}

type Client struct {
	hub    *Hub
	id     string
	socket *websocket.Conn
	send   chan []byte

	// authID is the token-verified identity the transport handed us at
	// registration. userID stays zero until the session sends a join
	// message, and may only ever become authID.
	authID uint
	userID uint
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NotificationEvent is the push counterpart of a stored notification.
type NotificationEvent struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	RequestID *uint     `json:"request_id,omitempty"`
	QuizID    *uint     `json:"quiz_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type joinPayload struct {
	UserID uint `json:"user_id"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for client := range h.unregister {
		h.mutex.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
			log.Printf("Client unregistered: %s (user %d) - Total clients: %d", client.id, client.userID, len(h.clients))
		}
		h.mutex.Unlock()
	}
}

// NotifyUser sends a new-notification event to every session joined as the
// given user. It never blocks: sessions with a full send buffer are dropped,
// and a user with no sessions is a silent no-op.
func (h *Hub) NotifyUser(userID uint, event NotificationEvent) {
	message := Message{
		Type:    "new-notification",
		Payload: event,
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling notification event: %v", err)
		return
	}

	h.mutex.Lock()
	sent := 0
	for client := range h.clients {
		if client.userID == 0 || client.userID != userID {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			log.Printf("Client %s (user %d) send buffer full, closing connection", client.id, client.userID)
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()

	log.Printf("Notification event for user %d delivered to %d session(s)", userID, sent)
}

func (h *Hub) IsUserConnected(userID uint) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// RegisterClient attaches a websocket connection to the hub. authID is the
// authenticated user behind the connection; the transport must have verified
// it before handing the socket over.
func (h *Hub) RegisterClient(conn *websocket.Conn, authID uint) *Client {
	client := &Client{
		hub:    h,
		id:     uuid.NewString(),
		socket: conn,
		send:   make(chan []byte, 256),
		authID: authID,
	}

	// Register before the pumps start so the first inbound message already
	// sees the session in the client set.
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()
	log.Printf("Client registered: %s (user %d) - Total clients: %d", client.id, authID, h.ClientCount())

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}

	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

// enqueue sends data to the client if it is still registered. Sessions the
// hub has already dropped (and whose send channel is closed) are skipped.
func (h *Hub) enqueue(c *Client, data []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		response := Message{Type: "pong", Payload: "pong"}
		data, _ := json.Marshal(response)
		c.hub.enqueue(c, data)

	case "join":
		// The session associates itself with a recipient identity; events
		// for that user are delivered here from now on. The identity must
		// match the one the token carried at upgrade time.
		raw, err := json.Marshal(msg.Payload)
		if err != nil {
			log.Printf("Error re-marshaling join payload: %v", err)
			return
		}
		var payload joinPayload
		if err := json.Unmarshal(raw, &payload); err != nil || payload.UserID == 0 {
			log.Printf("Client %s sent invalid join payload", c.id)
			return
		}
		if payload.UserID != c.authID {
			log.Printf("Client %s asked to join user %d but is authenticated as user %d, refusing", c.id, payload.UserID, c.authID)
			return
		}

		c.hub.mutex.Lock()
		c.userID = payload.UserID
		c.hub.mutex.Unlock()
		log.Printf("Client %s joined notification channel for user %d", c.id, payload.UserID)

		response := Message{Type: "joined", Payload: joinPayload{UserID: payload.UserID}}
		data, _ := json.Marshal(response)
		c.hub.enqueue(c, data)

	case "leave":
		c.hub.mutex.Lock()
		c.userID = 0
		c.hub.mutex.Unlock()
		log.Printf("Client %s left its notification channel", c.id)

	default:
		log.Printf("Unknown message type: %s from client %s", msg.Type, c.id)
	}
}
