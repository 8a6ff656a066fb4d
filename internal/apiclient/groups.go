package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/model"
)

func groupPath(id int64, rest string) string {
	return "/api/groups/" + strconv.FormatInt(id, 10) + rest
}

func memberPath(groupID, memberID int64, rest string) string {
	return groupPath(groupID, "/members/"+strconv.FormatInt(memberID, 10)+rest)
}

// CreateGroup creates a group owned by the caller.
func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (*model.Group, error) {
	var out model.Group
	if err := c.call(ctx, http.MethodPost, "/api/groups", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListGroups returns groups the caller owns or belongs to.
func (c *Client) ListGroups(ctx context.Context, includePending bool) ([]model.Group, error) {
	var q url.Values
	if includePending {
		q = url.Values{"include_pending": {"true"}}
	}

	var out []model.Group
	if err := c.call(ctx, http.MethodGet, "/api/groups", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetGroup returns a group with its members.
func (c *Client) GetGroup(ctx context.Context, id int64) (*model.GroupDetail, error) {
	var out model.GroupDetail
	if err := c.call(ctx, http.MethodGet, groupPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateGroup changes a group the caller owns.
func (c *Client) UpdateGroup(ctx context.Context, id int64, req UpdateGroupRequest) (*model.Group, error) {
	var out model.Group
	if err := c.call(ctx, http.MethodPut, groupPath(id, ""), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteGroup removes a group the caller owns.
func (c *Client) DeleteGroup(ctx context.Context, id int64) (*Message, error) {
	return c.message(ctx, http.MethodDelete, groupPath(id, ""), nil, nil)
}

// AddMember adds a user to a group as an accepted member.
func (c *Client) AddMember(ctx context.Context, groupID int64, req AddMemberRequest) (*model.GroupMember, error) {
	var out model.GroupMember
	if err := c.call(ctx, http.MethodPost, groupPath(groupID, "/members"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMember changes a membership.
func (c *Client) UpdateMember(ctx context.Context, groupID, memberID int64, req UpdateMemberRequest) (*model.GroupMember, error) {
	var out model.GroupMember
	if err := c.call(ctx, http.MethodPut, memberPath(groupID, memberID, ""), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMember removes a member. Members may remove themselves.
func (c *Client) RemoveMember(ctx context.Context, groupID, memberID int64) (*Message, error) {
	return c.message(ctx, http.MethodDelete, memberPath(groupID, memberID, ""), nil, nil)
}

// PendingMembers lists memberships awaiting approval.
func (c *Client) PendingMembers(ctx context.Context, groupID int64) ([]model.GroupMember, error) {
	var out []model.GroupMember
	if err := c.call(ctx, http.MethodGet, groupPath(groupID, "/pending-members"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveMember accepts a pending membership.
func (c *Client) ApproveMember(ctx context.Context, groupID, memberID int64) (*model.GroupMember, error) {
	var out model.GroupMember
	if err := c.call(ctx, http.MethodPost, memberPath(groupID, memberID, "/approve"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptEmailInvitation joins a group with a token from an invitation mail.
func (c *Client) AcceptEmailInvitation(ctx context.Context, token string) (*AcceptResult, error) {
	body := map[string]string{"invitation_token": token}

	var out AcceptResult
	if err := c.call(ctx, http.MethodPost, "/api/groups/accept-invitation", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
