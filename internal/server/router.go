package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chatwire/chat-service/internal/auth"
	"github.com/chatwire/chat-service/internal/ws"
)

// NewRouter wires the HTTP surface. The auth gate is applied per route:
// register, login and the file route stay public, everything else requires
// a bearer token. The websocket endpoint authenticates at handshake.
func NewRouter(
	authHandler *AuthHandler,
	chatsHandler *ChatsHandler,
	groupsHandler *GroupsHandler,
	gateway *ws.Gateway,
	verifier *auth.Verifier,
	uploadDir string,
	uploadBase string,
	logger *logrus.Logger,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	gate := NewAuthMiddleware(verifier)
	protected := func(h http.HandlerFunc) http.Handler {
		return gate(h)
	}

	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.Handle("/api/auth/logout", protected(authHandler.Logout)).Methods("POST")

	r.Handle("/api/users", protected(authHandler.ListUsers)).Methods("GET")
	r.Handle("/api/users/me", protected(authHandler.Me)).Methods("GET")

	r.Handle("/api/chats/send", protected(chatsHandler.Send)).Methods("POST")
	r.Handle("/api/chats/private/{userId1}/{userId2}", protected(chatsHandler.GetPrivateMessages)).Methods("GET")
	r.Handle("/api/chats/group/{groupId}", protected(chatsHandler.GetGroupMessages)).Methods("GET")
	r.Handle("/api/chats/upload/{chatId}", protected(chatsHandler.Upload)).Methods("POST")
	r.Handle("/api/chats/private/{userId1}/{userId2}/clear", protected(chatsHandler.ClearPrivateChat)).Methods("DELETE")
	r.Handle("/api/chats/group/{groupId}/clear", protected(chatsHandler.ClearGroupChat)).Methods("DELETE")
	r.Handle("/api/chats/{chatId}/read", protected(chatsHandler.MarkRead)).Methods("POST")

	r.Handle("/api/groups", protected(groupsHandler.Create)).Methods("POST")
	r.Handle("/api/groups", protected(groupsHandler.List)).Methods("GET")
	r.Handle("/api/groups/{groupId}/members", protected(groupsHandler.AddMember)).Methods("POST")

	r.HandleFunc("/ws", gateway.ServeWS)

	uploadBase = strings.TrimSuffix(uploadBase, "/")
	r.PathPrefix(uploadBase + "/").Handler(
		http.StripPrefix(uploadBase+"/", http.FileServer(http.Dir(uploadDir))))

	return r
}
