package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/models"
	storage "github.com/chatwire/chat-service/internal/storages"
	usecase "github.com/chatwire/chat-service/internal/usecases"
)

// Gateway authenticates websocket sessions and dispatches their events to
// the chat usecase. Events of one session run in arrival order; sessions
// run concurrently, and shared mutations go through the storage upsert.
type Gateway struct {
	hub      *Hub
	chats    *usecase.ChatsUsecase
	registry storage.Registry
	verifier *auth.Verifier
	logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, chats *usecase.ChatsUsecase, registry storage.Registry, verifier *auth.Verifier, logger *logrus.Logger) *Gateway {
	return &Gateway{
		hub:      hub,
		chats:    chats,
		registry: registry,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS is the handshake: a bearer credential is required up front, and an
// invalid one terminates the connection before the upgrade.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(g.hub, conn, claims.UserID, claims.Username)

	g.hub.Register(client)
	g.setOnline(r.Context(), client.UserID, true)
	g.broadcastOnlineUsers(r.Context())

	g.logger.
		WithField("user_id", client.UserID).
		WithField("username", client.Username).
		Info("websocket session connected")

	go client.writePump()
	client.readPump(g.dispatch)

	last := g.hub.Unregister(client)
	if last {
		g.setOnline(context.Background(), client.UserID, false)
	}
	g.broadcastOnlineUsers(context.Background())

	g.logger.
		WithField("user_id", client.UserID).
		Info("websocket session disconnected")
}

func (g *Gateway) setOnline(ctx context.Context, userId string, online bool) {
	if err := g.registry.GetUsersStore().SetOnline(ctx, userId, online); err != nil {
		g.logger.WithError(err).Warning("can't update presence flag")
	}
}

func (g *Gateway) broadcastOnlineUsers(ctx context.Context) {
	ids, err := g.registry.GetUsersStore().ListOnlineUserIDs(ctx)
	if err != nil {
		g.logger.WithError(err).Warning("can't list online users")
		return
	}
	g.hub.BroadcastAll("online_users", ids)
}

type targetPayload struct {
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
	GroupID     string `json:"groupId"`
}

type sendMessagePayload struct {
	targetPayload
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (g *Gateway) dispatch(c *Client, raw []byte) {
	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed event")
		return
	}

	switch env.Event {
	case "join":
		g.handleJoin(c, env.Data)
	case "send_message":
		g.handleSendMessage(c, env.Data)
	case "typing":
		g.handleTyping(c, env.Data, true)
	case "stop_typing":
		g.handleTyping(c, env.Data, false)
	default:
		c.sendError("unknown event: " + env.Event)
	}
}

func (g *Gateway) handleJoin(c *Client, data json.RawMessage) {
	var payload targetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed event")
		return
	}

	chat, err := g.resolve(c, payload)
	if err != nil {
		g.logger.WithError(err).Debug("join failed")
		c.sendError("Failed to join chat")
		return
	}

	g.hub.Join(c, chat.ChatID)
	c.enqueue("joined_chat", map[string]string{
		"chatId":      chat.ChatID,
		"recipientId": payload.RecipientID,
	})
}

func (g *Gateway) handleSendMessage(c *Client, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed event")
		return
	}

	if payload.Message == "" {
		c.sendError("Missing message content")
		return
	}

	chat, err := g.resolve(c, payload.targetPayload)
	if err != nil {
		g.logger.WithError(err).Debug("send_message resolve failed")
		c.sendError("Chat or Group not found")
		return
	}

	// Sending implies being in the room; join before the broadcast so the
	// sender gets its own echo.
	g.hub.Join(c, chat.ChatID)

	view, err := g.chats.SendMessage(context.Background(), c.UserID, chat, payload.Message, payload.Type, nil)
	if err != nil {
		g.logger.WithError(err).Debug("send_message failed")
		c.sendError("Failed to send message")
		return
	}

	g.hub.Broadcast(chat.ChatID, "receive_message", view)
}

func (g *Gateway) handleTyping(c *Client, data json.RawMessage, typing bool) {
	var payload targetPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.sendError("malformed event")
		return
	}
	if payload.ChatID == "" {
		return
	}

	if typing {
		g.hub.BroadcastExcept(payload.ChatID, c, "typing", map[string]string{
			"userId":   c.UserID,
			"username": c.Username,
		})
	} else {
		g.hub.BroadcastExcept(payload.ChatID, c, "stop_typing", c.UserID)
	}
}

func (g *Gateway) resolve(c *Client, payload targetPayload) (*models.ChatWithMembers, error) {
	target, err := usecase.NewChatTarget(payload.ChatID, payload.RecipientID, payload.GroupID)
	if err != nil {
		return nil, err
	}
	return g.chats.ResolveChat(context.Background(), c.UserID, target)
}
