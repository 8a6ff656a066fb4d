package smoke

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/aichatbot/chatbot-api/internal/apiclient"
	"github.com/aichatbot/chatbot-api/internal/model"
)

// peerQuery finds the other registered users checks add or invite.
const peerQuery = "test"

// GroupSuite checks group management and member approval. A group needs an
// API key, so every check skips when the fixture account owns none.
func GroupSuite() Suite {
	return Suite{
		Name: "group",
		Checks: []Check{
			{Name: "create_group", Run: checkCreateGroup},
			{Name: "list_groups", Run: checkListGroups},
			{Name: "get_group_details", Run: checkGroupDetails},
			{Name: "update_group", Run: checkUpdateGroup},
			{Name: "delete_group", Run: checkDeleteGroup},
			{Name: "add_and_manage_member", Run: checkManageMember},
			{Name: "pending_members", Run: checkPendingMembers},
			{Name: "approve_member", Run: checkApproveMember},
		},
	}
}

func randomGroupName() string {
	return "smoke " + strings.ToLower(gofakeit.LetterN(8))
}

func firstOwnedKey(ctx context.Context, c *apiclient.Client) (int64, error) {
	keys, err := c.OwnedAPIKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, Skipf("test account owns no API key")
	}
	return keys[0].ID, nil
}

// createTestGroup creates a group on the caller's first API key.
func createTestGroup(ctx context.Context, c *apiclient.Client) (*model.Group, error) {
	keyID, err := firstOwnedKey(ctx, c)
	if err != nil {
		return nil, err
	}
	g, err := c.CreateGroup(ctx, apiclient.CreateGroupRequest{Name: randomGroupName(), APIKeyID: keyID})
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return g, nil
}

// withGroup signs in as the fixture account, creates a throwaway group for fn
// and deletes it again.
func withGroup(ctx context.Context, f *Fixture, fn func(c *apiclient.Client, g *model.Group) error) (err error) {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	g, err := createTestGroup(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := cleanupContext(ctx)
		defer cancel()
		if _, derr := c.DeleteGroup(cctx, g.ID); derr != nil && err == nil {
			err = fmt.Errorf("delete group %d: %w", g.ID, derr)
		}
	}()
	return fn(c, g)
}

// peer returns a registered user other than the caller.
func peer(ctx context.Context, c *apiclient.Client) (*model.UserInfo, error) {
	users, err := c.SearchUsers(ctx, peerQuery, 0)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if len(users) == 0 {
		return nil, Skipf("no other user matches %q", peerQuery)
	}
	return &users[0], nil
}

func checkCreateGroup(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	keyID, err := firstOwnedKey(ctx, c)
	if err != nil {
		return err
	}

	name := randomGroupName()
	g, err := c.CreateGroup(ctx, apiclient.CreateGroupRequest{Name: name, APIKeyID: keyID})
	if err != nil {
		return err
	}
	switch {
	case g.ID <= 0 || g.OwnerUserID <= 0:
		return fmt.Errorf("group_id = %d, owner_user_id = %d, want both set", g.ID, g.OwnerUserID)
	case g.Name != name:
		return fmt.Errorf("name = %q, want %q", g.Name, name)
	case g.APIKeyID != keyID:
		return fmt.Errorf("api_key_id = %d, want %d", g.APIKeyID, keyID)
	case !g.IsActive:
		return fmt.Errorf("is_active = false, want true")
	}

	if _, err := c.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func checkListGroups(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		groups, err := c.ListGroups(ctx, false)
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(groups, func(x model.Group) bool { return x.ID == g.ID }) {
			return fmt.Errorf("group %d missing from list of %d", g.ID, len(groups))
		}
		return nil
	})
}

func checkGroupDetails(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		detail, err := c.GetGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		if detail.Group == nil || detail.ID != g.ID || detail.Name != g.Name {
			return fmt.Errorf("detail does not describe group %d %q", g.ID, g.Name)
		}
		return nil
	})
}

func checkUpdateGroup(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		name := randomGroupName()
		got, err := c.UpdateGroup(ctx, g.ID, apiclient.UpdateGroupRequest{Name: &name})
		if err != nil {
			return err
		}
		if got.ID != g.ID || got.Name != name {
			return fmt.Errorf("updated group = {%d, %q}, want {%d, %q}", got.ID, got.Name, g.ID, name)
		}
		return nil
	})
}

// checkDeleteGroup accepts either answer for the deleted group: groups are
// deactivated, and a deployment may still show them as inactive.
func checkDeleteGroup(ctx context.Context, f *Fixture) error {
	c, err := f.Login(ctx)
	if err != nil {
		return err
	}
	g, err := createTestGroup(ctx, c)
	if err != nil {
		return err
	}

	msg, err := c.DeleteGroup(ctx, g.ID)
	if err != nil {
		return err
	}
	if msg.Message == "" {
		return fmt.Errorf("delete answer has no message")
	}

	detail, err := c.GetGroup(ctx, g.ID)
	if err != nil {
		return expectAPIError(err, http.StatusNotFound)
	}
	if detail.IsActive {
		return fmt.Errorf("deleted group %d is still active", g.ID)
	}
	return nil
}

func checkManageMember(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		user, err := peer(ctx, c)
		if err != nil {
			return err
		}

		note := "smoke member"
		member, err := c.AddMember(ctx, g.ID, apiclient.AddMemberRequest{UserID: user.ID, Note: &note})
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		if member.UserID != user.ID || member.GroupID != g.ID {
			return fmt.Errorf("member = {user %d, group %d}, want {%d, %d}", member.UserID, member.GroupID, user.ID, g.ID)
		}

		detail, err := c.GetGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(detail.Members, func(m model.GroupMember) bool { return m.ID == member.ID })
		if i < 0 {
			return fmt.Errorf("member %d missing from group detail", member.ID)
		}
		if detail.Members[i].UserInfo == nil {
			return fmt.Errorf("member %d has no user_info", member.ID)
		}

		note, active := "updated note", true
		updated, err := c.UpdateMember(ctx, g.ID, member.ID, apiclient.UpdateMemberRequest{Note: &note, IsActive: &active})
		if err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		if updated.Note == nil || *updated.Note != note {
			return fmt.Errorf("note = %v, want %q", updated.Note, note)
		}

		if _, err := c.RemoveMember(ctx, g.ID, member.ID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return nil
	})
}

func checkPendingMembers(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		pending, err := c.PendingMembers(ctx, g.ID)
		if err != nil {
			return err
		}
		if len(pending) != 0 {
			return fmt.Errorf("new group has %d pending members", len(pending))
		}
		return nil
	})
}

// checkApproveMember demotes a direct member to pending and approves it again.
func checkApproveMember(ctx context.Context, f *Fixture) error {
	return withGroup(ctx, f, func(c *apiclient.Client, g *model.Group) error {
		user, err := peer(ctx, c)
		if err != nil {
			return err
		}
		member, err := c.AddMember(ctx, g.ID, apiclient.AddMemberRequest{UserID: user.ID})
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}

		accepted := false
		if _, err := c.UpdateMember(ctx, g.ID, member.ID, apiclient.UpdateMemberRequest{IsAccepted: &accepted}); err != nil {
			return fmt.Errorf("mark member pending: %w", err)
		}
		if err := expectPending(ctx, c, g.ID, member.ID, true); err != nil {
			return err
		}

		approved, err := c.ApproveMember(ctx, g.ID, member.ID)
		if err != nil {
			return fmt.Errorf("approve member: %w", err)
		}
		if !approved.IsAccepted || !approved.IsActive {
			return fmt.Errorf("approved member = {is_accpet: %t, is_active: %t}, want both true", approved.IsAccepted, approved.IsActive)
		}
		return expectPending(ctx, c, g.ID, member.ID, false)
	})
}

func expectPending(ctx context.Context, c *apiclient.Client, groupID, memberID int64, want bool) error {
	pending, err := c.PendingMembers(ctx, groupID)
	if err != nil {
		return err
	}
	got := slices.ContainsFunc(pending, func(m model.GroupMember) bool { return m.ID == memberID })
	if got != want {
		return fmt.Errorf("member %d pending = %t, want %t", memberID, got, want)
	}
	return nil
}
