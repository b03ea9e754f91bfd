package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/reelcraft/api/internal/job"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/logger"
)

// Client is one WebSocket connection watching one job.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans job progress out to WebSocket clients. Each connection registers a
// manager subscription on connect and drops it on disconnect; push delivery
// is best-effort with no replay, so connect sends a one-time status snapshot.
type Hub struct {
	manager *job.Manager
	log     *logger.Logger

	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	jobID   string
	payload []byte
}

func NewHub(manager *job.Manager, log *logger.Logger) *Hub {
	return &Hub{
		manager:    manager,
		log:        log,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run is the hub's main loop; start it once in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			h.log.Debug("websocket client registered", "job_id", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.JobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.JobID)
					}
				}
			}
			h.mu.Unlock()
			h.log.Debug("websocket client unregistered", "job_id", client.JobID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := h.clients[msg.jobID]
			for client := range clients {
				select {
				case client.Send <- msg.payload:
				default:
					// slow consumer, drop the event rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastProgress pushes a progress event to every client watching the job.
func (h *Hub) BroadcastProgress(jobID string, event model.ProgressEvent) {
	msg := model.WSProgressMessage{
		Type:     model.WSMessageTypeProgress,
		JobID:    jobID,
		Progress: event.Progress,
		Message:  event.Message,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal progress message", "error", err)
		return
	}
	h.broadcast <- &broadcastMessage{jobID: jobID, payload: data}
}

// HandleConnection serves one WebSocket connection until the client leaves.
// It bridges the manager's subscriber callback onto the connection and sends
// the current job snapshot first so the client does not miss past progress.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}

	h.register <- client
	token := h.manager.Subscribe(jobID, func(event model.ProgressEvent) {
		h.BroadcastProgress(jobID, event)
	})
	defer func() {
		h.manager.Unsubscribe(jobID, token)
		h.unregister <- client
	}()

	h.sendSnapshot(client, jobID)

	// writer
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// reader
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", "job_id", jobID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}

func (h *Hub) sendSnapshot(client *Client, jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	j, err := h.manager.GetStatus(ctx, jobID)
	if err != nil {
		return
	}

	data, err := json.Marshal(model.WSStatusMessage{
		Type:  model.WSMessageTypeStatus,
		JobID: jobID,
		Job:   j,
	})
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}
