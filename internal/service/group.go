package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aichatbot/chatbot-api/internal/metrics"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

const (
	minGroupNameLength = 2
	maxGroupNameLength = 20
	maxNoteLength      = 100
)

// GroupStore is the persistence GroupService needs.
type GroupStore interface {
	GetAPIKeyByID(ctx context.Context, id int64) (*model.APIKey, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)

	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	GetGroupDetail(ctx context.Context, id int64) (*model.GroupDetail, error)
	ListUserGroups(ctx context.Context, userID int64, includePending bool) ([]*model.Group, error)
	UpdateGroup(ctx context.Context, id int64, upd model.GroupUpdate) (*model.Group, error)
	DeactivateGroup(ctx context.Context, id int64) error

	AddMember(ctx context.Context, groupID, userID int64, accepted bool, note *string) (*model.GroupMember, error)
	GetMember(ctx context.Context, memberID int64) (*model.GroupMember, error)
	GetMemberByUser(ctx context.Context, groupID, userID int64) (*model.GroupMember, error)
	ListPendingMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error)
	UpdateMember(ctx context.Context, memberID int64, upd model.MemberUpdate) (*model.GroupMember, error)
	RemoveMember(ctx context.Context, memberID int64) error
}

// GroupService manages groups sharing an API key and their members.
type GroupService struct {
	store    GroupStore
	sessions Sessions
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewGroupService creates a new GroupService.
func NewGroupService(store GroupStore, sessions Sessions, logger *slog.Logger, recorder metrics.Recorder) *GroupService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &GroupService{
		store:    store,
		sessions: sessions,
		logger:   logger,
		metrics:  recorder,
	}
}

// CreateGroupInput defines input for creating a group.
type CreateGroupInput struct {
	Name     string
	APIKeyID int64
}

// Create makes a group owned by userID around one of the user's keys.
func (s *GroupService) Create(ctx context.Context, userID int64, in CreateGroupInput) (*model.Group, error) {
	name, err := validateGroupName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.APIKeyID <= 0 {
		return nil, invalid("api_key_id", "api_key_id는 0보다 커야 합니다.")
	}
	if err := s.checkKeyOwner(ctx, userID, in.APIKeyID); err != nil {
		return nil, err
	}

	group := &model.Group{Name: name, OwnerUserID: userID, APIKeyID: in.APIKeyID}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("create group: %w", err)
	}

	// is_group_owner changed.
	if err := s.sessions.DeleteUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to evict cached user", "user_id", userID, "error", err)
	}

	s.metrics.IncGroupCreated()
	s.logger.InfoContext(ctx, "group_created", "group_id", group.ID, "owner_user_id", userID)

	return s.summary(ctx, group.ID)
}

// List returns the groups the user owns or belongs to.
func (s *GroupService) List(ctx context.Context, userID int64, includePending bool) ([]*model.Group, error) {
	groups, err := s.store.ListUserGroups(ctx, userID, includePending)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Detail returns a group with its members. The caller must own the group or
// be an accepted, active member.
func (s *GroupService) Detail(ctx context.Context, userID, groupID int64) (*model.GroupDetail, error) {
	detail, err := s.store.GetGroupDetail(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}

	if !detail.IsOwner(userID) {
		member, err := s.store.GetMemberByUser(ctx, groupID, userID)
		if err != nil && !errors.Is(err, repository.ErrMemberNotFound) {
			return nil, fmt.Errorf("get membership: %w", err)
		}
		if !member.IsActiveMember() {
			return nil, ErrGroupAccessDenied
		}
	}

	return detail, nil
}

// UpdateGroupInput carries optional fields for a group update.
type UpdateGroupInput struct {
	Name     *string
	IsActive *bool
	APIKeyID *int64
}

// Update changes a group. Only the owner may update it.
func (s *GroupService) Update(ctx context.Context, userID, groupID int64, in UpdateGroupInput) (*model.Group, error) {
	upd := model.GroupUpdate{IsActive: in.IsActive}
	if in.Name != nil {
		name, err := validateGroupName(*in.Name)
		if err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if in.APIKeyID != nil && *in.APIKeyID <= 0 {
		return nil, invalid("api_key_id", "api_key_id는 0보다 커야 합니다.")
	}

	if _, err := s.ownedGroup(ctx, userID, groupID, "그룹 정보를 수정할 권한이 없습니다."); err != nil {
		return nil, err
	}
	if in.APIKeyID != nil {
		if err := s.checkKeyOwner(ctx, userID, *in.APIKeyID); err != nil {
			return nil, err
		}
		upd.APIKeyID = in.APIKeyID
	}

	group, err := s.store.UpdateGroup(ctx, groupID, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGroupNotFound):
			return nil, ErrGroupNotFound
		case errors.Is(err, repository.ErrAPIKeyNotFound):
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("update group: %w", err)
	}

	if !group.IsActive {
		return group, nil
	}
	return s.summary(ctx, groupID)
}

// Delete deactivates a group and all its memberships.
func (s *GroupService) Delete(ctx context.Context, userID, groupID int64) error {
	if _, err := s.ownedGroup(ctx, userID, groupID, "그룹을 삭제할 권한이 없습니다."); err != nil {
		return err
	}
	if err := s.store.DeactivateGroup(ctx, groupID); err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("deactivate group: %w", err)
	}
	s.logger.InfoContext(ctx, "group_deleted", "group_id", groupID)
	return nil
}

// AddMemberInput defines input for adding a member directly.
type AddMemberInput struct {
	UserID int64
	Note   *string
}

// AddMember adds an accepted member. Only the owner may add members.
func (s *GroupService) AddMember(ctx context.Context, callerID, groupID int64, in AddMemberInput) (*model.GroupMember, error) {
	if in.UserID <= 0 {
		return nil, invalid("user_id", "user_id는 0보다 커야 합니다.")
	}
	if err := validateNote(in.Note); err != nil {
		return nil, err
	}
	if _, err := s.ownedGroup(ctx, callerID, groupID, "그룹에 멤버를 추가할 권한이 없습니다."); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, in.UserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrMemberUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	member, err := s.store.AddMember(ctx, groupID, in.UserID, true, in.Note)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMemberAlreadyActive):
			return nil, ErrMemberAlreadyActive
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrMemberUserNotFound
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	s.logger.InfoContext(ctx, "member_added", "group_id", groupID, "user_id", in.UserID)
	return member, nil
}

// UpdateMemberInput carries optional fields for a membership update.
type UpdateMemberInput struct {
	IsAccepted *bool
	IsActive   *bool
	Note       *string
}

// UpdateMember changes a membership. Only the owner may update members.
func (s *GroupService) UpdateMember(ctx context.Context, callerID, groupID, memberID int64, in UpdateMemberInput) (*model.GroupMember, error) {
	if err := validateNote(in.Note); err != nil {
		return nil, err
	}
	if _, err := s.ownedGroup(ctx, callerID, groupID, "그룹 멤버 정보를 수정할 권한이 없습니다."); err != nil {
		return nil, err
	}
	if _, err := s.memberOf(ctx, groupID, memberID); err != nil {
		return nil, err
	}

	return s.updateMember(ctx, memberID, model.MemberUpdate{
		IsAccepted: in.IsAccepted,
		IsActive:   in.IsActive,
		Note:       in.Note,
	})
}

// RemoveMember deactivates a membership. The owner may remove anyone but
// themselves; members may remove themselves.
func (s *GroupService) RemoveMember(ctx context.Context, callerID, groupID, memberID int64) error {
	group, err := s.group(ctx, groupID)
	if err != nil {
		return err
	}
	member, err := s.memberOf(ctx, groupID, memberID)
	if err != nil {
		return err
	}

	if !group.IsOwner(callerID) && member.UserID != callerID {
		return forbidden("그룹 멤버를 제거할 권한이 없습니다.")
	}
	if group.IsOwner(member.UserID) {
		return ErrOwnerNotRemovable
	}

	if err := s.store.RemoveMember(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}

	s.logger.InfoContext(ctx, "member_removed", "group_id", groupID, "member_id", memberID)
	return nil
}

// PendingMembers lists memberships awaiting approval.
func (s *GroupService) PendingMembers(ctx context.Context, callerID, groupID int64) ([]model.GroupMember, error) {
	if _, err := s.ownedGroup(ctx, callerID, groupID, "대기 중인 멤버 목록을 조회할 권한이 없습니다."); err != nil {
		return nil, err
	}
	members, err := s.store.ListPendingMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list pending members: %w", err)
	}
	return members, nil
}

// ApproveMember accepts a pending membership. Approving an accepted member
// returns it unchanged.
func (s *GroupService) ApproveMember(ctx context.Context, callerID, groupID, memberID int64) (*model.GroupMember, error) {
	if _, err := s.ownedGroup(ctx, callerID, groupID, "멤버를 승인할 권한이 없습니다."); err != nil {
		return nil, err
	}
	member, err := s.memberOf(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if member.IsAccepted {
		return member, nil
	}

	accepted, active := true, true
	return s.updateMember(ctx, memberID, model.MemberUpdate{IsAccepted: &accepted, IsActive: &active})
}

func (s *GroupService) updateMember(ctx context.Context, memberID int64, upd model.MemberUpdate) (*model.GroupMember, error) {
	member, err := s.store.UpdateMember(ctx, memberID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("update member: %w", err)
	}
	return member, nil
}

func (s *GroupService) group(ctx context.Context, groupID int64) (*model.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ownedGroup loads an active group and checks that userID owns it.
func (s *GroupService) ownedGroup(ctx context.Context, userID, groupID int64, denied string) (*model.Group, error) {
	group, err := s.group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsOwner(userID) {
		return nil, forbidden(denied)
	}
	return group, nil
}

func (s *GroupService) memberOf(ctx context.Context, groupID, memberID int64) (*model.GroupMember, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	if member.GroupID != groupID {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

func (s *GroupService) checkKeyOwner(ctx context.Context, userID, keyID int64) error {
	key, err := s.store.GetAPIKeyByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ErrAPIKeyNotFound
		}
		return fmt.Errorf("get api key: %w", err)
	}
	if key.UserID != userID {
		return ErrAPIKeyNotOwned
	}
	return nil
}

// summary returns the group with key and owner info but without members.
func (s *GroupService) summary(ctx context.Context, groupID int64) (*model.Group, error) {
	detail, err := s.store.GetGroupDetail(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return detail.Group, nil
}

func validateGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < minGroupNameLength || n > maxGroupNameLength {
		return "", invalid("name", fmt.Sprintf("그룹 이름은 %d자 이상 %d자 이하여야 합니다.", minGroupNameLength, maxGroupNameLength))
	}
	return name, nil
}

func validateNote(note *string) error {
	if note != nil && utf8.RuneCountInString(*note) > maxNoteLength {
		return invalid("note", fmt.Sprintf("메모는 %d자 이하여야 합니다.", maxNoteLength))
	}
	return nil
}
