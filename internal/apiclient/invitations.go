package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aichatbot/chatbot-api/internal/model"
)

func invitationPath(id int64, action string) string {
	return "/api/invitations/" + strconv.FormatInt(id, 10) + "/" + action
}

func statusQuery(status model.InvitationStatus) url.Values {
	if status == "" {
		return nil
	}
	return url.Values{"status": {string(status)}}
}

// InviteUser invites a registered user to a group the caller owns.
func (c *Client) InviteUser(ctx context.Context, groupID int64, req InviteUserRequest) (*InviteResult, error) {
	var out InviteResult
	if err := c.call(ctx, http.MethodPost, groupPath(groupID, "/invite-user"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GroupInvitations lists a group's invitations, optionally by status.
func (c *Client) GroupInvitations(ctx context.Context, groupID int64, status model.InvitationStatus) ([]model.Invitation, error) {
	var out []model.Invitation
	if err := c.call(ctx, http.MethodGet, groupPath(groupID, "/invitations"), statusQuery(status), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invitations lists invitations addressed to the caller.
func (c *Client) Invitations(ctx context.Context, status model.InvitationStatus) ([]model.Invitation, error) {
	var out []model.Invitation
	if err := c.call(ctx, http.MethodGet, "/api/invitations", statusQuery(status), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptInvitation joins the invited group.
func (c *Client) AcceptInvitation(ctx context.Context, id int64) (*AcceptResult, error) {
	var out AcceptResult
	if err := c.call(ctx, http.MethodPost, invitationPath(id, "accept"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeclineInvitation refuses an invitation addressed to the caller.
func (c *Client) DeclineInvitation(ctx context.Context, id int64) (*Message, error) {
	return c.message(ctx, http.MethodPost, invitationPath(id, "decline"), nil, nil)
}

// CancelInvitation withdraws an invitation the caller sent.
func (c *Client) CancelInvitation(ctx context.Context, id int64) (*Message, error) {
	return c.message(ctx, http.MethodPost, invitationPath(id, "cancel"), nil, nil)
}
