package controller

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"sporty/services"
	"sporty/utils"
)

const (
	clientBuffer = 16
	writeWait    = 10 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan services.Message
}

// Hub pushes team messages (move confirmations, registration changes) to the
// websocket clients watching that team's calendar.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	Teams   *services.TeamService
	Logger  *logrus.Entry
}

func NewHub(teams *services.TeamService, logger *logrus.Entry) *Hub {
	return &Hub{
		clients: make(map[string]map[*wsClient]struct{}),
		Teams:   teams,
		Logger:  logger.WithField("component", "calendar_ws"),
	}
}

// Publish queues msg for every client of teamID. Slow clients drop messages
// instead of blocking the publisher.
func (h *Hub) Publish(teamID string, msg services.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[teamID] {
		select {
		case client.send <- msg:
		default:
			h.Logger.WithFields(logrus.Fields{
				"team_id": teamID,
				"type":    msg.Type,
			}).Warn("dropping message for slow websocket client")
		}
	}
}

// Subscribers reports how many clients watch teamID.
func (h *Hub) Subscribers(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[teamID])
}

func (h *Hub) register(teamID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[teamID] == nil {
		h.clients[teamID] = make(map[*wsClient]struct{})
	}
	h.clients[teamID][client] = struct{}{}
}

func (h *Hub) unregister(teamID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[teamID][client]; !ok {
		return
	}
	delete(h.clients[teamID], client)
	close(client.send)
	if len(h.clients[teamID]) == 0 {
		delete(h.clients, teamID)
	}
}

// Upgrade admits team members to the websocket endpoint.
func (h *Hub) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.ErrorResponse(c, fiber.StatusUpgradeRequired, "Websocket upgrade required", nil)
	}
	if _, _, err := h.Teams.Get(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return utils.HandleError(c, err)
	}
	c.Locals("teamID", c.Params("id"))
	return c.Next()
}

// Serve runs one websocket connection until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn) {
	teamID, _ := conn.Locals("teamID").(string)
	client := &wsClient{conn: conn, send: make(chan services.Message, clientBuffer)}
	h.register(teamID, client)
	h.Logger.WithField("team_id", teamID).Debug("websocket client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.Logger.WithError(err).WithField("team_id", teamID).Debug("websocket write failed")
				return
			}
		}
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(teamID, client)
	<-done
	h.Logger.WithField("team_id", teamID).Debug("websocket client disconnected")
}
