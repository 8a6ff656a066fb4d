package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/aichatbot/chatbot-api/internal/auth"
	"github.com/aichatbot/chatbot-api/internal/cache"
	"github.com/aichatbot/chatbot-api/internal/mailer"
	"github.com/aichatbot/chatbot-api/internal/model"
	"github.com/aichatbot/chatbot-api/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory stand-in for *repository.Repository.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*model.User
	passwords   map[int64]*model.UserPassword
	tokens      map[string]*model.VerificationToken
	keys        map[int64]*model.APIKey
	groups      map[int64]*model.Group
	members     map[int64]*model.GroupMember
	invitations map[int64]*model.Invitation

	// acceptRace makes AcceptInvitation and UpdateInvitationStatus behave as
	// if another request changed the invitation first.
	acceptRace model.InvitationStatus
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[int64]*model.User),
		passwords:   make(map[int64]*model.UserPassword),
		tokens:      make(map[string]*model.VerificationToken),
		keys:        make(map[int64]*model.APIKey),
		groups:      make(map[int64]*model.Group),
		members:     make(map[int64]*model.GroupMember),
		invitations: make(map[int64]*model.Invitation),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// seedUser stores an active user with the given password.
func (s *memStore) seedUser(password string) *model.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	user := &model.User{
		Email:    strings.ToLower(gofakeit.Email()),
		Username: gofakeit.LetterN(8),
		IsActive: true,
	}
	if err := s.CreateUser(context.Background(), user, hash); err != nil {
		panic(err)
	}
	return user
}

func (s *memStore) CreateUser(_ context.Context, user *model.User, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	now := time.Now()
	user.ID = s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	s.users[user.ID] = &cp
	s.passwords[user.ID] = &model.UserPassword{UserID: user.ID, Hash: hash, UpdatedAt: now}
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *memStore) UpdateUser(_ context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Description != nil {
		u.Description = upd.Description
	}
	if upd.ProfileURL != nil {
		u.ProfileURL = upd.ProfileURL
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) SetUserActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsActive = active
	return nil
}

func (s *memStore) SearchUsers(_ context.Context, term string, limit int, exclude []int64) ([]model.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UserInfo, 0)
	for _, u := range s.users {
		if !u.IsActive || slices.Contains(exclude, u.ID) {
			continue
		}
		if strings.Contains(strings.ToLower(u.Email), strings.ToLower(term)) ||
			strings.Contains(strings.ToLower(u.Username), strings.ToLower(term)) {
			out = append(out, model.UserInfo{ID: u.ID, Username: u.Username, Email: u.Email})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) GetUserPassword(_ context.Context, userID int64) (*model.UserPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passwords[userID]
	if !ok {
		return nil, repository.ErrPasswordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) UpdatePassword(_ context.Context, userID int64, hash string, rehash bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passwords[userID]
	if !ok {
		return repository.ErrPasswordNotFound
	}
	prev := p.Hash
	p.Hash = hash
	if !rehash {
		p.PreviousHash = &prev
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (s *memStore) StoreVerificationToken(_ context.Context, tok *model.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.TokenHash] = &cp
	return nil
}

func (s *memStore) ConsumeVerificationToken(_ context.Context, hash string, typ model.TokenType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[hash]
	if !ok || tok.Type != typ || tok.IsExpired(time.Now()) {
		return 0, repository.ErrTokenInvalid
	}
	delete(s.tokens, hash)
	return tok.UserID, nil
}

func (s *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key.ID = s.id()
	key.CreatedAt, key.UpdatedAt = time.Now(), time.Now()
	cp := *key
	s.keys[key.ID] = &cp
	return nil
}

func (s *memStore) GetAPIKeyByID(_ context.Context, id int64) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *memStore) ListAPIKeysByUserID(_ context.Context, userID int64) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.APIKey, 0)
	for _, k := range s.keys {
		if k.UserID == userID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) UpdateAPIKey(_ context.Context, id int64, upd model.APIKeyUpdate) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	if upd.Vendor != nil {
		k.Vendor = *upd.Vendor
	}
	if upd.IsActive != nil {
		k.IsActive = *upd.IsActive
	}
	if upd.EncryptedKey != nil {
		k.EncryptedKey = *upd.EncryptedKey
	}
	cp := *k
	return &cp, nil
}

func (s *memStore) DeleteAPIKey(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return repository.ErrAPIKeyNotFound
	}
	for _, g := range s.groups {
		if g.APIKeyID == id && g.IsActive {
			return repository.ErrAPIKeyInUse
		}
	}
	delete(s.keys, id)
	return nil
}

func (s *memStore) ListOwnedAPIKeys(_ context.Context, userID int64) ([]model.APIKeySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.APIKeySummary, 0)
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, model.APIKeySummary{ID: k.ID, Vendor: k.Vendor, IsActive: k.IsActive})
		}
	}
	return out, nil
}

func (s *memStore) CreateGroup(_ context.Context, group *model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[group.APIKeyID]; !ok {
		return repository.ErrAPIKeyNotFound
	}
	group.ID = s.id()
	group.IsActive = true
	cp := *group
	s.groups[group.ID] = &cp
	s.users[group.OwnerUserID].IsGroupOwner = true
	return nil
}

func (s *memStore) GetGroup(_ context.Context, id int64) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok || !g.IsActive {
		return nil, repository.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) GetGroupDetail(ctx context.Context, id int64) (*model.GroupDetail, error) {
	g, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	detail := &model.GroupDetail{Group: g, Members: make([]model.GroupMember, 0)}
	for _, m := range s.members {
		if m.GroupID == id && m.IsActive {
			detail.Members = append(detail.Members, *m)
		}
	}
	g.MembersCount = len(detail.Members)
	return detail, nil
}

func (s *memStore) ListUserGroups(_ context.Context, userID int64, includePending bool) ([]*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Group, 0)
	for _, g := range s.groups {
		if !g.IsActive {
			continue
		}
		if g.OwnerUserID == userID {
			cp := *g
			out = append(out, &cp)
			continue
		}
		for _, m := range s.members {
			if m.GroupID == g.ID && m.UserID == userID && m.IsActive && (m.IsAccepted || includePending) {
				cp := *g
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) UpdateGroup(_ context.Context, id int64, upd model.GroupUpdate) (*model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	if upd.Name != nil {
		g.Name = *upd.Name
	}
	if upd.IsActive != nil {
		g.IsActive = *upd.IsActive
	}
	if upd.APIKeyID != nil {
		g.APIKeyID = *upd.APIKeyID
	}
	cp := *g
	return &cp, nil
}

func (s *memStore) DeactivateGroup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok || !g.IsActive {
		return repository.ErrGroupNotFound
	}
	g.IsActive = false
	for _, m := range s.members {
		if m.GroupID == id {
			m.IsActive = false
		}
	}
	return nil
}

func (s *memStore) AddMember(_ context.Context, groupID, userID int64, accepted bool, note *string) (*model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, repository.ErrUserNotFound
	}
	for _, m := range s.members {
		if m.GroupID == groupID && m.UserID == userID {
			if m.IsActiveMember() {
				return nil, repository.ErrMemberAlreadyActive
			}
			m.IsAccepted, m.IsActive, m.Note = accepted, true, note
			cp := *m
			return &cp, nil
		}
	}
	m := &model.GroupMember{ID: s.id(), GroupID: groupID, UserID: userID, IsAccepted: accepted, IsActive: true, Note: note}
	s.members[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *memStore) GetMember(_ context.Context, memberID int64) (*model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) GetMemberByUser(_ context.Context, groupID, userID int64) (*model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.GroupID == groupID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrMemberNotFound
}

func (s *memStore) ListPendingMembers(_ context.Context, groupID int64) ([]model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GroupMember, 0)
	for _, m := range s.members {
		if m.GroupID == groupID && m.IsActive && !m.IsAccepted {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) UpdateMember(_ context.Context, memberID int64, upd model.MemberUpdate) (*model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	if upd.IsAccepted != nil {
		m.IsAccepted = *upd.IsAccepted
	}
	if upd.IsActive != nil {
		m.IsActive = *upd.IsActive
	}
	if upd.Note != nil {
		m.Note = upd.Note
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) RemoveMember(_ context.Context, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return repository.ErrMemberNotFound
	}
	m.IsActive = false
	return nil
}

func (s *memStore) CreateInvitation(_ context.Context, inv *model.Invitation) (*model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invitations {
		if existing.GroupID != inv.GroupID || existing.UserID != inv.UserID {
			continue
		}
		switch existing.Status {
		case model.InvitationPending:
			cp := *existing
			return &cp, repository.ErrInvitationPending
		case model.InvitationAccepted:
			return nil, repository.ErrInvitationAccepted
		}
	}
	g, ok := s.groups[inv.GroupID]
	if !ok {
		return nil, repository.ErrGroupNotFound
	}
	inv.ID = s.id()
	inv.Status = model.InvitationPending
	inv.GroupName = g.Name
	inv.Username = s.users[inv.UserID].Username
	cp := *inv
	s.invitations[inv.ID] = &cp
	return inv, nil
}

func (s *memStore) GetInvitation(_ context.Context, id int64) (*model.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memStore) listInvitations(match func(*model.Invitation) bool, status model.InvitationStatus) []*model.Invitation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Invitation, 0)
	for _, inv := range s.invitations {
		if match(inv) && (status == "" || inv.Status == status) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out
}

func (s *memStore) ListUserInvitations(_ context.Context, userID int64, status model.InvitationStatus) ([]*model.Invitation, error) {
	return s.listInvitations(func(i *model.Invitation) bool { return i.UserID == userID }, status), nil
}

func (s *memStore) ListGroupInvitations(_ context.Context, groupID int64, status model.InvitationStatus) ([]*model.Invitation, error) {
	return s.listInvitations(func(i *model.Invitation) bool { return i.GroupID == groupID }, status), nil
}

func (s *memStore) race(id int64) bool {
	if s.acceptRace == "" {
		return false
	}
	s.invitations[id].Status = s.acceptRace
	return true
}

func (s *memStore) UpdateInvitationStatus(_ context.Context, id int64, status model.InvitationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok || s.race(id) || inv.Status != model.InvitationPending {
		return repository.ErrInvitationNotFound
	}
	inv.Status = status
	return nil
}

func (s *memStore) AcceptInvitation(_ context.Context, inv *model.Invitation) error {
	s.mu.Lock()
	stored, ok := s.invitations[inv.ID]
	if !ok || s.race(inv.ID) || stored.Status != model.InvitationPending {
		s.mu.Unlock()
		return repository.ErrInvitationNotFound
	}
	stored.Status = model.InvitationAccepted
	s.mu.Unlock()

	_, err := s.AddMember(context.Background(), inv.GroupID, inv.UserID, true, inv.Note)
	if err != nil && !errors.Is(err, repository.ErrMemberAlreadyActive) {
		return err
	}
	inv.Status = model.InvitationAccepted
	return nil
}

// memSessions is an in-memory Sessions and InvitationCache.
type memSessions struct {
	mu          sync.Mutex
	revoked     map[string]time.Duration
	users       map[int64]*model.User
	invitations map[string]*model.EmailInvitation
	err         error
}

func newMemSessions() *memSessions {
	return &memSessions{
		revoked:     make(map[string]time.Duration),
		users:       make(map[int64]*model.User),
		invitations: make(map[string]*model.EmailInvitation),
	}
}

func (m *memSessions) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *memSessions) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *memSessions) GetUser(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memSessions) SetUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memSessions) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return m.err
}

func (m *memSessions) cached(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok
}

func (m *memSessions) StoreInvitation(_ context.Context, token string, inv *model.EmailInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.invitations[token] = &cp
	return nil
}

func (m *memSessions) GetInvitation(_ context.Context, token string) (*model.EmailInvitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[token]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	if inv.IsExpired(time.Now()) {
		delete(m.invitations, token)
		return nil, cache.ErrInvitationExpired
	}
	cp := *inv
	return &cp, nil
}

func (m *memSessions) DeleteInvitation(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.invitations, token)
	return nil
}

// outbox records sent mail instead of delivering it.
type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) Check(context.Context) error { return o.err }

func (o *outbox) Available() bool { return o.err == nil }

func (o *outbox) last() mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sent) == 0 {
		return mailer.Message{}
	}
	return o.sent[len(o.sent)-1]
}

// tokenFrom extracts the token query parameter from a composed message.
func tokenFrom(msg mailer.Message) string {
	_, link, ok := strings.Cut(msg.Text, ": ")
	if !ok {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

type loginLog struct {
	mu     sync.Mutex
	events []model.LoginEvent
}

func (l *loginLog) RecordLogin(_ context.Context, ev model.LoginEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

type stubVerifier struct {
	ok  bool
	msg string
}

func (v stubVerifier) Verify(context.Context, string, string) (bool, string) {
	return v.ok, v.msg
}
