package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chatwire/chat-service/internal/blob"
	usecase "github.com/chatwire/chat-service/internal/usecases"
	"github.com/chatwire/chat-service/internal/ws"
)

const maxUploadSize = 32 << 20

type ChatsHandler struct {
	chats    *usecase.ChatsUsecase
	blobs    blob.Store
	hub      *ws.Hub
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewChatsHandler(chats *usecase.ChatsUsecase, blobs blob.Store, hub *ws.Hub, validate *validator.Validate, logger *logrus.Logger) *ChatsHandler {
	return &ChatsHandler{
		chats:    chats,
		blobs:    blobs,
		hub:      hub,
		validate: validate,
		logger:   logger,
	}
}

type sendMessageRequest struct {
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
	GroupID     string `json:"groupId"`
	Content     string `json:"content" validate:"required,max=5000"`
	Type        string `json:"type"`
}

// Send persists a message over plain HTTP. Unlike the socket path and the
// upload path it does not broadcast; clients polling over HTTP fetch the
// history instead.
func (h *ChatsHandler) Send(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %s", usecase.ErrInvalidRequest, err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %s", usecase.ErrInvalidRequest, err))
		return
	}

	target, err := usecase.NewChatTarget(req.ChatID, req.RecipientID, req.GroupID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	chat, err := h.chats.ResolveChat(r.Context(), claims.UserID, target)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.chats.SendMessage(r.Context(), claims.UserID, chat, req.Content, req.Type, nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *ChatsHandler) GetPrivateMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit, offset := pagination(r)

	views, err := h.chats.GetPrivateMessages(r.Context(), vars["userId1"], vars["userId2"], limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *ChatsHandler) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	limit, offset := pagination(r)

	views, err := h.chats.GetGroupMessages(r.Context(), vars["groupId"], limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// Upload stores the file with the blob provider, persists a file message
// with an optional caption, and broadcasts it to the chat's room.
func (h *ChatsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	vars := mux.Vars(r)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %s", usecase.ErrInvalidRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: no file uploaded", usecase.ErrInvalidRequest))
		return
	}
	defer file.Close()

	target, err := usecase.NewChatTarget(vars["chatId"], r.FormValue("recipientId"), r.FormValue("groupId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	chat, err := h.chats.ResolveChat(r.Context(), claims.UserID, target)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Gate before the blob write so a forbidden upload leaves no orphan file.
	if !chat.HasMember(claims.UserID) {
		writeError(w, h.logger, usecase.ErrUserIsNotAChatMember)
		return
	}

	meta, err := h.blobs.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.chats.SendMessage(r.Context(), claims.UserID, chat, r.FormValue("caption"), "", meta)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.hub.Broadcast(chat.ChatID, "receive_message", view)

	writeJSON(w, http.StatusCreated, view)
}

func (h *ChatsHandler) ClearPrivateChat(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	vars := mux.Vars(r)

	deleted, err := h.chats.ClearPrivateChat(r.Context(), claims.UserID, vars["userId1"], vars["userId2"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Chat cleared successfully",
		"deletedCount": deleted,
	})
}

func (h *ChatsHandler) ClearGroupChat(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	vars := mux.Vars(r)

	deleted, err := h.chats.ClearGroupChat(r.Context(), claims.UserID, vars["groupId"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Chat cleared successfully",
		"deletedCount": deleted,
	})
}

func (h *ChatsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	vars := mux.Vars(r)

	if err := h.chats.MarkChatRead(r.Context(), claims.UserID, vars["chatId"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "messages marked as read"})
}

func pagination(r *http.Request) (limit, offset uint64) {
	limit, _ = strconv.ParseUint(r.URL.Query().Get("limit"), 10, 64)
	offset, _ = strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	return limit, offset
}
