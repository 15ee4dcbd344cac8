package websocket

import (
	"log"

	"github.com/gorilla/websocket"

	"polls-backend/models"
)

// Client is one live-results subscriber, watching a single question.
type Client struct {
	// ID identifies the connection in logs.
	ID string

	// QuestionID is the question the client is watching.
	QuestionID uint

	conn *websocket.Conn
	send chan []byte
}

type broadcastMessage struct {
	questionID uint
	payload    []byte
}

// Hub tracks subscribers grouped by question and fans result updates out to
// them. The clients map is owned exclusively by the Run goroutine; every
// mutation, including closing a client's send channel, happens there.
type Hub struct {
	clients    map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
}

// NewHub creates an empty hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, 16),
	}
}

// Run processes registration, unregistration and broadcasts until the
// process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if _, ok := h.clients[client.QuestionID]; !ok {
				h.clients[client.QuestionID] = make(map[*Client]bool)
			}
			h.clients[client.QuestionID][client] = true
			log.Printf("client %s registered for question %d", client.ID, client.QuestionID)

		case client := <-h.unregister:
			if _, ok := h.clients[client.QuestionID][client]; ok {
				h.dropClient(client)
				log.Printf("client %s unregistered from question %d", client.ID, client.QuestionID)
			}

		case message := <-h.broadcast:
			// Slow clients are dropped rather than blocking the broadcast.
			for client := range h.clients[message.questionID] {
				select {
				case client.send <- message.payload:
				default:
					h.dropClient(client)
				}
			}
		}
	}
}

// dropClient must only be called from the Run goroutine.
func (h *Hub) dropClient(client *Client) {
	delete(h.clients[client.QuestionID], client)
	close(client.send)
	if len(h.clients[client.QuestionID]) == 0 {
		delete(h.clients, client.QuestionID)
	}
}

// BroadcastResults pushes an updated aggregate to every client watching the
// question.
func (h *Hub) BroadcastResults(questionID uint, results *models.QuestionResults) {
	message := &models.WebSocketMessage{
		Type:       "results_update",
		QuestionID: questionID,
		Payload:    results,
	}
	payload, err := message.ToJSON()
	if err != nil {
		log.Printf("failed to encode results update: %v", err)
		return
	}

	h.broadcast <- broadcastMessage{questionID: questionID, payload: payload}
}

// RegisterClient adds a subscriber to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a subscriber from the hub.
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
