package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

// InvitationService is the invitation surface used by InvitationHandler.
type InvitationService interface {
	InviteUser(ctx context.Context, callerID, groupID int64, in service.InviteUserInput) (*service.InviteResult, error)
	ListMine(ctx context.Context, userID int64, status string) ([]*model.Invitation, error)
	ListForGroup(ctx context.Context, callerID, groupID int64, status string) ([]*model.Invitation, error)
	Accept(ctx context.Context, userID, invitationID int64) (*service.AcceptResult, error)
	Decline(ctx context.Context, userID, invitationID int64) (string, error)
	Cancel(ctx context.Context, userID, invitationID int64) (string, error)
}

// InvitationHandler handles in-app group invitations.
type InvitationHandler struct {
	svc    InvitationService
	logger *slog.Logger
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(svc InvitationService, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{svc: svc, logger: logger}
}

// InviteUser handles POST /api/groups/{id}/invite-user.
func (h *InvitationHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.InviteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.InviteUser(r.Context(), currentUserID(r), groupID, service.InviteUserInput{
		UserID: req.UserID,
		Note:   req.Note,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListMine handles GET /api/invitations?status=.
func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.svc.ListMine(r.Context(), currentUserID(r), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

// ListForGroup handles GET /api/groups/{id}/invitations?status=.
func (h *InvitationHandler) ListForGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invitations, err := h.svc.ListForGroup(r.Context(), currentUserID(r), groupID, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

// Accept handles POST /api/invitations/{id}/accept.
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.svc.Accept(r.Context(), currentUserID(r), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Decline handles POST /api/invitations/{id}/decline.
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Decline)
}

// Cancel handles POST /api/invitations/{id}/cancel. Only the inviter may cancel.
func (h *InvitationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *InvitationHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, int64) (string, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	msg, err := fn(r.Context(), currentUserID(r), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, msg)
}
