package smoke

import (
	"context"
	"fmt"
	"slices"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
	"github.com/aichatbot/chatbot-api/internal/model"
)

// InvitationSuite checks user search and the invitation lifecycle. Accepting
// and declining need a second account and skip without one.
func InvitationSuite() Suite {
	return Suite{
		Name: "invitation",
		Checks: []Check{
			{Name: "search_users", Run: checkSearchUsers},
			{Name: "invite_user", Run: checkInviteUser},
			{Name: "group_invitations", Run: checkGroupInvitations},
			{Name: "my_invitations", Run: checkMyInvitations},
			{Name: "cancel_invitation", Run: checkCancelInvitation},
			{Name: "accept_invitation", Run: checkAcceptInvitation},
			{Name: "decline_invitation", Run: checkDeclineInvitation},
		},
	}
}

// invite sends a fresh invitation and returns its id.
func invite(ctx context.Context, c *apiclient.Client, groupID, userID int64) (int64, error) {
	note := "smoke invitation"
	res, err := c.InviteUser(ctx, groupID, apiclient.InviteUserRequest{UserID: userID, Note: &note})
	if err != nil {
		return 0, fmt.Errorf("invite user %d: %w", userID, err)
	}
	if !res.Success || res.InvitationID == nil {
		return 0, fmt.Errorf("invite user %d: %q without an invitation id", userID, res.Message)
	}
	return *res.InvitationID, nil
}

// expectInvitation requires invitation id to be listed for the group with status.
func expectInvitation(ctx context.Context, c *apiclient.Client, groupID, id int64, status model.InvitationStatus) error {
	invs, err := c.GroupInvitations(ctx, groupID, status)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(invs, func(inv model.Invitation) bool { return inv.ID == id }) {
		return fmt.Errorf("invitation %d not listed as %s", id, status)
	}
	return nil
}

func checkSearchUsers(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	me, err := c.Me(ctx)
	if err != nil {
		return err
	}
	users, err := c.SearchUsers(ctx, peerQuery, 0)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID == me.ID {
			return fmt.Errorf("search returned the caller")
		}
		if u.ID <= 0 || u.Email == "" || u.Username == "" {
			return fmt.Errorf("search result %+v lacks user_id, email or username", u)
		}
	}
	return nil
}

func checkInviteUser(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		user, err := peer(ctx, c)
		if err != nil {
			return err
		}
		res, err := c.InviteUser(ctx, g.ID, apiclient.InviteUserRequest{UserID: user.ID})
		if err != nil {
			return err
		}
		switch {
		case !res.Success:
			return fmt.Errorf("success = false: %s", res.Message)
		case res.InvitationID == nil:
			return fmt.Errorf("answer has no invitation_id")
		case res.UserInfo.ID != user.ID:
			return fmt.Errorf("user_info.user_id = %d, want %d", res.UserInfo.ID, user.ID)
		}
		return nil
	})
}

func checkGroupInvitations(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		user, err := peer(ctx, c)
		if err != nil {
			return err
		}
		id, err := invite(ctx, c, g.ID, user.ID)
		if err != nil {
			return err
		}

		invs, err := c.GroupInvitations(ctx, g.ID, "")
		if err != nil {
			return err
		}
		i := slices.IndexFunc(invs, func(inv model.Invitation) bool { return inv.ID == id })
		if i < 0 {
			return fmt.Errorf("invitation %d missing from group list", id)
		}
		if inv := invs[i]; inv.GroupID != g.ID || inv.UserID != user.ID || inv.Status != model.InvitationPending {
			return fmt.Errorf("invitation = {group %d, user %d, %s}, want {%d, %d, pending}", inv.GroupID, inv.UserID, inv.Status, g.ID, user.ID)
		}

		accepted, err := c.GroupInvitations(ctx, g.ID, model.InvitationAccepted)
		if err != nil {
			return err
		}
		if len(accepted) != 0 {
			return fmt.Errorf("status filter returned %d accepted invitations", len(accepted))
		}
		return nil
	})
}

func checkMyInvitations(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	if _, err := c.Invitations(ctx, ""); err != nil {
		return err
	}
	pending, err := c.Invitations(ctx, model.InvitationPending)
	if err != nil {
		return err
	}
	for _, inv := range pending {
		if inv.Status != model.InvitationPending {
			return fmt.Errorf("invitation %d has status %s in the pending list", inv.ID, inv.Status)
		}
	}
	return nil
}

func checkCancelInvitation(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		user, err := peer(ctx, c)
		if err != nil {
			return err
		}
		id, err := invite(ctx, c, g.ID, user.ID)
		if err != nil {
			return err
		}

		msg, err := c.CancelInvitation(ctx, id)
		if err != nil {
			return err
		}
		if msg.Message == "" {
			return fmt.Errorf("cancel answer has no message")
		}
		return expectInvitation(ctx, c, g.ID, id, model.InvitationCanceled)
	})
}

// withInvitee invites the invitee account into a throwaway group and hands
// both clients to fn.
func withInvitee(ctx context.Context, f *Fixture, fn func(owner, invitee *apiclient.Client, g *model.Group, id int64) error) error {
	invitee, err := f.LoginInvitee(ctx)
	if err != nil {
		return err
	}
	me, err := invitee.Me(ctx)
	if err != nil {
		return err
	}
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		id, err := invite(ctx, c, g.ID, me.ID)
		if err != nil {
			return err
		}
		return fn(c, invitee, g, id)
	})
}

func checkAcceptInvitation(ctx context.Context, f *Fixture) error {
	return withInvitee(ctx, f, func(owner, invitee *apiclient.Client, g *model.Group, id int64) error {
		mine, err := invitee.Invitations(ctx, model.InvitationPending)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(mine, func(inv model.Invitation) bool { return inv.ID == id }) {
			return fmt.Errorf("invitation %d missing from the invitee's pending list", id)
		}

		res, err := invitee.AcceptInvitation(ctx, id)
		if err != nil {
			return err
		}
		if res.GroupID != g.ID || res.GroupName != g.Name {
			return fmt.Errorf("accepted {%d, %q}, want {%d, %q}", res.GroupID, res.GroupName, g.ID, g.Name)
		}

		groups, err := invitee.ListGroups(ctx, false)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(groups, func(x model.Group) bool { return x.ID == g.ID }) {
			return fmt.Errorf("invitee does not see group %d after accepting", g.ID)
		}
		return expectInvitation(ctx, owner, g.ID, id, model.InvitationAccepted)
	})
}

func checkDeclineInvitation(ctx context.Context, f *Fixture) error {
	return withInvitee(ctx, f, func(owner, invitee *apiclient.Client, g *model.Group, id int64) error {
		msg, err := invitee.DeclineInvitation(ctx, id)
		if err != nil {
			return err
		}
		if msg.Message == "" {
			return fmt.Errorf("decline answer has no message")
		}
		return expectInvitation(ctx, owner, g.ID, id, model.InvitationDeclined)
	})
}
