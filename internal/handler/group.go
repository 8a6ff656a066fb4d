package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/handler/dto"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/service"
)

const (
	msgGroupDeleted  = "그룹이 성공적으로 삭제되었습니다."
	msgMemberRemoved = "멤버가 성공적으로 제거되었습니다."
)

// GroupService is the group surface used by GroupHandler.
type GroupService interface {
	Create(ctx context.Context, userID int64, in service.CreateGroupInput) (*model.Group, error)
	List(ctx context.Context, userID int64, includePending bool) ([]*model.Group, error)
	Detail(ctx context.Context, userID, groupID int64) (*model.GroupDetail, error)
	Update(ctx context.Context, userID, groupID int64, in service.UpdateGroupInput) (*model.Group, error)
	Delete(ctx context.Context, userID, groupID int64) error
	AddMember(ctx context.Context, callerID, groupID int64, in service.AddMemberInput) (*model.GroupMember, error)
	UpdateMember(ctx context.Context, callerID, groupID, memberID int64, in service.UpdateMemberInput) (*model.GroupMember, error)
	RemoveMember(ctx context.Context, callerID, groupID, memberID int64) error
	PendingMembers(ctx context.Context, callerID, groupID int64) ([]model.GroupMember, error)
	ApproveMember(ctx context.Context, callerID, groupID, memberID int64) (*model.GroupMember, error)
}

// EmailInvitationAcceptor accepts invitations that were sent by email.
type EmailInvitationAcceptor interface {
	AcceptEmailInvitation(ctx context.Context, user *model.User, token string) (*service.AcceptResult, error)
}

// GroupHandler handles /api/groups endpoints.
type GroupHandler struct {
	svc     GroupService
	invites EmailInvitationAcceptor
	logger  *slog.Logger
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(svc GroupService, invites EmailInvitationAcceptor, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, invites: invites, logger: logger}
}

// Create handles POST /api/groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.svc.Create(r.Context(), currentUserID(r), service.CreateGroupInput{
		Name:     req.Name,
		APIKeyID: req.APIKeyID,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// List handles GET /api/groups?include_pending=.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	includePending := false
	if v := r.URL.Query().Get("include_pending"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "include_pending 값이 올바르지 않습니다.")
			return
		}
		includePending = parsed
	}

	groups, err := h.svc.List(r.Context(), currentUserID(r), includePending)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Get handles GET /api/groups/{id}.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.svc.Detail(r.Context(), currentUserID(r), groupID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update handles PUT /api/groups/{id}.
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.UpdateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	group, err := h.svc.Update(r.Context(), currentUserID(r), groupID, service.UpdateGroupInput{
		Name:     req.Name,
		IsActive: req.IsActive,
		APIKeyID: req.APIKeyID,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Delete handles DELETE /api/groups/{id}.
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), currentUserID(r), groupID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, msgGroupDeleted)
}

// AddMember handles POST /api/groups/{id}/members.
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dto.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.svc.AddMember(r.Context(), currentUserID(r), groupID, service.AddMemberInput{
		UserID: req.UserID,
		Note:   req.Note,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// UpdateMember handles PUT /api/groups/{id}/members/{mid}.
func (h *GroupHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	groupID, memberID, ok := memberPath(w, r)
	if !ok {
		return
	}
	var req dto.UpdateMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.svc.UpdateMember(r.Context(), currentUserID(r), groupID, memberID, service.UpdateMemberInput{
		IsAccepted: req.IsAccepted,
		IsActive:   req.IsActive,
		Note:       req.Note,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/groups/{id}/members/{mid}.
// Owners remove anyone but themselves; members may remove themselves.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, memberID, ok := memberPath(w, r)
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(r.Context(), currentUserID(r), groupID, memberID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeMessage(w, msgMemberRemoved)
}

// PendingMembers handles GET /api/groups/{id}/pending-members.
func (h *GroupHandler) PendingMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.svc.PendingMembers(r.Context(), currentUserID(r), groupID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// ApproveMember handles POST /api/groups/{id}/members/{mid}/approve.
func (h *GroupHandler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	groupID, memberID, ok := memberPath(w, r)
	if !ok {
		return
	}

	member, err := h.svc.ApproveMember(r.Context(), currentUserID(r), groupID, memberID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// AcceptEmailInvitation handles POST /api/groups/accept-invitation.
func (h *GroupHandler) AcceptEmailInvitation(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptEmailInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.invites.AcceptEmailInvitation(r.Context(), auth.UserFromContext(r.Context()), req.InvitationToken)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func memberPath(w http.ResponseWriter, r *http.Request) (groupID, memberID int64, ok bool) {
	if groupID, ok = pathID(w, r, "id"); !ok {
		return 0, 0, false
	}
	if memberID, ok = pathID(w, r, "mid"); !ok {
		return 0, 0, false
	}
	return groupID, memberID, true
}
