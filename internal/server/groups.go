package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	usecase "github.com/chatwire/chat-service/internal/usecases"
)

type GroupsHandler struct {
	groups   *usecase.GroupsUsecase
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewGroupsHandler(groups *usecase.GroupsUsecase, validate *validator.Validate, logger *logrus.Logger) *GroupsHandler {
	return &GroupsHandler{
		groups:   groups,
		validate: validate,
		logger:   logger,
	}
}

type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=50"`
	Description string   `json:"description" validate:"max=500"`
	Members     []string `json:"members" validate:"required,min=1,dive,uuid"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

func (h *GroupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req createGroupRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), claims.UserID, req.Name, req.Description, req.Members)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	groups, err := h.groups.GetUserGroups(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *GroupsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	vars := mux.Vars(r)

	var req addMemberRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.groups.AddMember(r.Context(), claims.UserID, vars["groupId"], req.UserID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User added to group",
	})
}

func (h *GroupsHandler) decode(r *http.Request, req interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return fmt.Errorf("%w: %s", usecase.ErrInvalidRequest, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", usecase.ErrInvalidRequest, err)
	}
	return nil
}
