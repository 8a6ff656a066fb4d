package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/cache"
	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

// MsgAlreadyInvited is returned when a pending invitation already exists.
const MsgAlreadyInvited = "이미 초대된 사용자입니다."

// InvitationStore is the persistence InvitationService needs.
type InvitationStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	GetMemberByUser(ctx context.Context, groupID, userID int64) (*model.GroupMember, error)
	AddMember(ctx context.Context, groupID, userID int64, accepted bool, note *string) (*model.GroupMember, error)

	CreateInvitation(ctx context.Context, inv *model.Invitation) (*model.Invitation, error)
	GetInvitation(ctx context.Context, id int64) (*model.Invitation, error)
	ListUserInvitations(ctx context.Context, userID int64, status model.InvitationStatus) ([]*model.Invitation, error)
	ListGroupInvitations(ctx context.Context, groupID int64, status model.InvitationStatus) ([]*model.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, id int64, status model.InvitationStatus) error
	AcceptInvitation(ctx context.Context, inv *model.Invitation) error
}

// InvitationService handles invitations of existing users and email invitations.
type InvitationService struct {
	store   InvitationStore
	tokens  InvitationCache
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(store InvitationStore, tokens InvitationCache, logger *slog.Logger, recorder metrics.Recorder) *InvitationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &InvitationService{
		store:   store,
		tokens:  tokens,
		logger:  logger,
		metrics: recorder,
	}
}

// InviteResult is the response to an invitation of an existing user.
// InvitationID is nil when the user already had a pending invitation.
type InviteResult struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	InvitationID *int64         `json:"invitation_id"`
	UserInfo     model.UserInfo `json:"user_info"`
}

// InviteUserInput defines input for inviting a user to a group.
type InviteUserInput struct {
	UserID int64
	Note   *string
}

// InviteUser invites an existing user to the caller's group.
func (s *InvitationService) InviteUser(ctx context.Context, callerID, groupID int64, in InviteUserInput) (*InviteResult, error) {
	if in.UserID <= 0 {
		return nil, invalid("user_id", "user_id는 0보다 커야 합니다.")
	}
	if err := validateNote(in.Note); err != nil {
		return nil, err
	}

	group, err := s.group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwner(callerID) {
		return nil, forbidden("그룹에 초대할 권한이 없습니다.")
	}

	invitee, err := s.store.GetUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInviteeNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if invitee.ID == callerID {
		return nil, ErrInviteSelf
	}

	member, err := s.store.GetMemberByUser(ctx, groupID, invitee.ID)
	if err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	if member.IsActiveMember() {
		return nil, ErrAlreadyActiveMember
	}

	info := model.UserInfo{ID: invitee.ID, Username: invitee.Username, Email: invitee.Email}

	inv, err := s.store.CreateInvitation(ctx, &model.Invitation{
		GroupID:   groupID,
		UserID:    invitee.ID,
		InvitedBy: callerID,
		Note:      in.Note,
	})
	switch {
	case errors.Is(err, repository.ErrInvitationPending):
		s.metrics.IncInvitation("duplicate")
		return &InviteResult{Success: true, Message: MsgAlreadyInvited, UserInfo: info}, nil
	case errors.Is(err, repository.ErrInvitationAccepted):
		return nil, ErrAlreadyJoined
	case errors.Is(err, repository.ErrGroupNotFound):
		return nil, ErrGroupNotFound
	case err != nil:
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.metrics.IncInvitation(string(model.InvitationPending))
	s.logger.InfoContext(ctx, "invitation_created",
		"invitation_id", inv.ID,
		"group_id", groupID,
		"user_id", invitee.ID,
	)

	id := inv.ID
	return &InviteResult{
		Success:      true,
		Message:      fmt.Sprintf("%s 사용자를 그룹에 초대했습니다.", invitee.Username),
		InvitationID: &id,
		UserInfo:     info,
	}, nil
}

// ListMine lists invitations the user received, optionally by status.
func (s *InvitationService) ListMine(ctx context.Context, userID int64, status string) ([]*model.Invitation, error) {
	st, err := parseInvitationStatus(status)
	if err != nil {
		return nil, err
	}
	invitations, err := s.store.ListUserInvitations(ctx, userID, st)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// ListForGroup lists a group's invitations. Only the owner may list them.
func (s *InvitationService) ListForGroup(ctx context.Context, callerID, groupID int64, status string) ([]*model.Invitation, error) {
	st, err := parseInvitationStatus(status)
	if err != nil {
		return nil, err
	}

	group, err := s.group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwner(callerID) {
		return nil, forbidden("그룹 초대 목록을 조회할 권한이 없습니다.")
	}

	invitations, err := s.store.ListGroupInvitations(ctx, groupID, st)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

// AcceptResult is the response to accepting an invitation. Group fields are
// empty when the invitation had already been accepted.
type AcceptResult struct {
	Message   string `json:"message"`
	GroupID   int64  `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// Accept accepts an invitation and joins its group.
func (s *InvitationService) Accept(ctx context.Context, userID, invitationID int64) (*AcceptResult, error) {
	inv, err := s.invitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, forbidden("이 초대를 수락할 권한이 없습니다.")
	}

	if inv.Status != model.InvitationPending {
		if inv.Status == model.InvitationAccepted {
			return &AcceptResult{Message: "이미 수락한 초대입니다."}, nil
		}
		return nil, badRequest("이 초대는 현재 %s 상태여서 수락할 수 없습니다.", inv.Status)
	}

	if err := s.store.AcceptInvitation(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return nil, s.raced(ctx, invitationID, "수락")
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	s.metrics.IncInvitation(string(model.InvitationAccepted))
	s.logger.InfoContext(ctx, "invitation_accepted", "invitation_id", inv.ID, "group_id", inv.GroupID, "user_id", userID)

	return &AcceptResult{
		Message:   fmt.Sprintf("%s 그룹 초대를 수락했습니다.", inv.GroupName),
		GroupID:   inv.GroupID,
		GroupName: inv.GroupName,
	}, nil
}

// Decline declines an invitation addressed to the user.
func (s *InvitationService) Decline(ctx context.Context, userID, invitationID int64) (string, error) {
	inv, err := s.invitation(ctx, invitationID)
	if err != nil {
		return "", err
	}
	if inv.UserID != userID {
		return "", forbidden("이 초대를 거절할 권한이 없습니다.")
	}

	if inv.Status != model.InvitationPending {
		if inv.Status == model.InvitationDeclined {
			return "이미 거절한 초대입니다.", nil
		}
		return "", badRequest("이 초대는 현재 %s 상태여서 거절할 수 없습니다.", inv.Status)
	}

	if err := s.transition(ctx, inv, model.InvitationDeclined, "거절"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s 그룹 초대를 거절했습니다.", inv.GroupName), nil
}

// Cancel withdraws an invitation. Only the inviter may cancel it.
func (s *InvitationService) Cancel(ctx context.Context, userID, invitationID int64) (string, error) {
	inv, err := s.invitation(ctx, invitationID)
	if err != nil {
		return "", err
	}
	if inv.InvitedBy != userID {
		return "", forbidden("이 초대를 취소할 권한이 없습니다.")
	}

	if inv.Status != model.InvitationPending {
		if inv.Status == model.InvitationCanceled {
			return "이미 취소된 초대입니다.", nil
		}
		return "", badRequest("이 초대는 현재 %s 상태여서 취소할 수 없습니다.", inv.Status)
	}

	if err := s.transition(ctx, inv, model.InvitationCanceled, "취소"); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s 사용자에 대한 초대를 취소했습니다.", inv.Username), nil
}

// AcceptEmailInvitation joins the group named by an emailed invitation
// token. The token must have been sent to the user's own address.
func (s *InvitationService) AcceptEmailInvitation(ctx context.Context, user *model.User, token string) (*AcceptResult, error) {
	key := auth.QuickHash(token)

	inv, err := s.tokens.GetInvitation(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrCacheMiss):
			return nil, ErrInvitationTokenInvalid
		case errors.Is(err, cache.ErrInvitationExpired):
			return nil, ErrInvitationTokenExpired
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if !strings.EqualFold(inv.Email, user.Email) {
		return nil, ErrInvitationEmailMismatch
	}

	group, err := s.group(ctx, inv.GroupID)
	if err != nil {
		return nil, err
	}

	_, err = s.store.AddMember(ctx, group.ID, user.ID, true, nil)
	if err != nil && !errors.Is(err, repository.ErrMemberAlreadyActive) {
		return nil, fmt.Errorf("add member: %w", err)
	}

	if err := s.tokens.DeleteInvitation(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete used invitation", "group_id", group.ID, "error", err)
	}

	s.metrics.IncInvitation(string(model.InvitationAccepted))
	s.logger.InfoContext(ctx, "email_invitation_accepted", "group_id", group.ID, "user_id", user.ID)

	return &AcceptResult{
		Message:   fmt.Sprintf("%s 그룹 초대를 수락했습니다.", group.Name),
		GroupID:   group.ID,
		GroupName: group.Name,
	}, nil
}

func (s *InvitationService) transition(ctx context.Context, inv *model.Invitation, to model.InvitationStatus, verb string) error {
	if err := s.store.UpdateInvitationStatus(ctx, inv.ID, to); err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return s.raced(ctx, inv.ID, verb)
		}
		return fmt.Errorf("update invitation: %w", err)
	}
	s.metrics.IncInvitation(string(to))
	s.logger.InfoContext(ctx, "invitation_"+string(to), "invitation_id", inv.ID, "group_id", inv.GroupID)
	return nil
}

// raced reports an invitation that left the pending state between read and write.
func (s *InvitationService) raced(ctx context.Context, id int64, verb string) error {
	current, err := s.invitation(ctx, id)
	if err != nil {
		return err
	}
	return badRequest("이 초대는 현재 %s 상태여서 %s할 수 없습니다.", current.Status, verb)
}

func (s *InvitationService) invitation(ctx context.Context, id int64) (*model.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *InvitationService) group(ctx context.Context, id int64) (*model.Group, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

func parseInvitationStatus(status string) (model.InvitationStatus, error) {
	if status == "" {
		return "", nil
	}
	st := model.InvitationStatus(strings.ToLower(status))
	if !st.IsValid() {
		return "", invalid("status", "status는 pending, accepted, declined, canceled 중 하나여야 합니다.")
	}
	return st, nil
}
