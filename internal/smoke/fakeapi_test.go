package smoke

import (
	"cmp"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fakeUser struct {
	id          int64
	email       string
	username    string
	password    string
	description *string
	changedAt   time.Time
	disabled    bool
}

type fakeKey struct {
	id, owner int64
	vendor    string
	key       string
	active    bool
}

type fakeGroup struct {
	id, owner, keyID int64
	name             string
	active           bool
}

type fakeMember struct {
	id, groupID, userID int64
	accepted, active    bool
	note                *string
}

type fakeInvitation struct {
	id, groupID, userID, invitedBy int64
	status                         string
}

// fakeAPI serves the subset of the chatbot API the suites touch.
type fakeAPI struct {
	mu          sync.Mutex
	users       map[string]*fakeUser
	tokens      map[string]string
	keys        map[int64]*fakeKey
	groups      map[int64]*fakeGroup
	members     map[int64]*fakeMember
	invitations map[int64]*fakeInvitation
	nextID      int64

	// rejectKeys makes key registration fail the way a provider check does.
	rejectKeys bool
}

// newFakeAPI seeds the fixture account with one API key, a teammate for
// search results and the invitee account.
func newFakeAPI(t *testing.T, email, password string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		users:       map[string]*fakeUser{},
		tokens:      map[string]string{},
		keys:        map[int64]*fakeKey{},
		groups:      map[int64]*fakeGroup{},
		members:     map[int64]*fakeMember{},
		invitations: map[int64]*fakeInvitation{},
	}
	owner := api.add(email, "tester", password)
	api.add("teammate.test@example.com", "teammate", "Teammate1!")
	api.add(inviteeEmail, "invitee", inviteePassword)

	api.nextID++
	api.keys[api.nextID] = &fakeKey{id: api.nextID, owner: owner.id, vendor: "openai", key: "sk-seeded-key-0000", active: true}

	srv := httptest.NewServer(api.routes())
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) add(email, username, password string) *fakeUser {
	a.nextID++
	u := &fakeUser{id: a.nextID, email: email, username: username, password: password, changedAt: time.Now()}
	a.users[email] = u
	return u
}

func (a *fakeAPI) password(email string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users[email].password
}

func (a *fakeAPI) activeGroups() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []int64
	for _, g := range a.groups {
		if g.active {
			ids = append(ids, g.id)
		}
	}
	return ids
}

func (a *fakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{
			"status": map[string]bool{"server": true, "database": true, "email_server": false},
		})
	})
	r.Post("/api/auth/login", a.login)
	r.Post("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"message": MsgLoggedOut})
	})
	r.Post("/api/users", a.register)
	r.Get("/api/users/me", a.authed(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		reply(w, http.StatusOK, userJSON(u))
	}))
	r.Put("/api/users/me", a.authed(a.updateMe))
	r.Put("/api/users/me/password", a.authed(a.changePassword))
	r.Get("/api/users/me/password-status", a.authed(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		reply(w, http.StatusOK, map[string]any{
			"days_since_change": 0,
			"change_required":   false,
			"last_changed":      u.changedAt,
		})
	}))
	r.Delete("/api/users/me", a.authed(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		u.disabled = true
		reply(w, http.StatusOK, map[string]string{"message": "계정이 비활성화되었습니다."})
	}))
	r.Get("/api/users/search", a.authed(a.search))

	r.Post("/api/api-keys", a.authed(a.createKey))
	r.Get("/api/api-keys", a.authed(a.listKeys))
	r.Post("/api/api-keys/verify", a.authed(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		reply(w, http.StatusOK, map[string]any{"is_valid": false, "message": "유효하지 않은 API 키입니다."})
	}))
	r.Get("/api/api-keys/{id}", a.authed(a.withKey(func(w http.ResponseWriter, k *fakeKey) {
		reply(w, http.StatusOK, keyJSON(k, true))
	})))
	r.Put("/api/api-keys/{id}", a.authed(a.updateKey))
	r.Delete("/api/api-keys/{id}", a.authed(a.deleteKey))
	r.Get("/api/user/api-keys", a.authed(a.ownedKeys))

	r.Post("/api/groups", a.authed(a.createGroup))
	r.Get("/api/groups", a.authed(a.listGroups))
	r.Get("/api/groups/{id}", a.authed(a.groupDetail))
	r.Put("/api/groups/{id}", a.authed(a.withGroup(a.updateGroup)))
	r.Delete("/api/groups/{id}", a.authed(a.withGroup(func(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
		g.active = false
		reply(w, http.StatusOK, map[string]string{"message": "그룹이 삭제되었습니다."})
	})))
	r.Post("/api/groups/{id}/members", a.authed(a.withGroup(a.addMember)))
	r.Put("/api/groups/{id}/members/{mid}", a.authed(a.withGroup(a.withMember(a.updateMember))))
	r.Delete("/api/groups/{id}/members/{mid}", a.authed(a.withGroup(a.withMember(func(w http.ResponseWriter, r *http.Request, m *fakeMember) {
		delete(a.members, m.id)
		reply(w, http.StatusOK, map[string]string{"message": "멤버가 제거되었습니다."})
	}))))
	r.Get("/api/groups/{id}/pending-members", a.authed(a.withGroup(a.pendingMembers)))
	r.Post("/api/groups/{id}/members/{mid}/approve", a.authed(a.withGroup(a.withMember(func(w http.ResponseWriter, r *http.Request, m *fakeMember) {
		m.accepted, m.active = true, true
		reply(w, http.StatusOK, a.memberJSON(m))
	}))))
	r.Post("/api/groups/{id}/invite-user", a.authed(a.withGroup(a.inviteUser)))
	r.Get("/api/groups/{id}/invitations", a.authed(a.withGroup(func(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
		reply(w, http.StatusOK, a.invitationsWhere(r, func(inv *fakeInvitation) bool { return inv.groupID == g.id }))
	})))
	r.Get("/api/invitations", a.authed(func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		reply(w, http.StatusOK, a.invitationsWhere(r, func(inv *fakeInvitation) bool { return inv.userID == u.id }))
	}))
	r.Post("/api/invitations/{id}/{action}", a.authed(a.answerInvitation))
	return r
}

func (a *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[r.PostForm.Get("username")]
	if !ok || u.password != r.PostForm.Get("password") {
		reply(w, http.StatusUnauthorized, map[string]string{"detail": "이메일 또는 비밀번호가 올바르지 않습니다"})
		return
	}
	if u.disabled {
		reply(w, http.StatusForbidden, map[string]string{"detail": "계정이 비활성화되어 있습니다"})
		return
	}

	token := uuid.NewString()
	a.tokens[token] = u.email
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "Bearer " + token, Path: "/", HttpOnly: true})
	reply(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         userJSON(u),
		"password_age": map[string]any{"days_since_change": 0, "change_required": false, "last_changed": u.changedAt},
	})
}

func (a *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if !strongPassword(req.Password) || req.Password != req.ConfirmPassword || len(req.Username) > 20 {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid registration"})
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[req.Email]; ok {
		reply(w, http.StatusBadRequest, map[string]string{"detail": "이미 등록된 이메일입니다."})
		return
	}
	a.add(req.Email, req.Username, req.Password)
	reply(w, http.StatusOK, map[string]string{"message": "회원가입이 완료되었습니다.", "email_status": "sent"})
}

func (a *fakeAPI) updateMe(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var req struct {
		Username    *string `json:"username"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if req.Username != nil {
		u.username = *req.Username
	}
	if req.Description != nil {
		u.description = req.Description
	}
	reply(w, http.StatusOK, userJSON(u))
}

func (a *fakeAPI) changePassword(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	if req.CurrentPassword != u.password {
		reply(w, http.StatusBadRequest, map[string]string{"detail": "현재 비밀번호가 일치하지 않습니다"})
		return
	}
	u.password = req.NewPassword
	u.changedAt = time.Now()
	reply(w, http.StatusOK, map[string]string{"message": "비밀번호가 성공적으로 변경되었습니다."})
}

func (a *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, *fakeUser)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		a.mu.Lock()
		defer a.mu.Unlock()
		email, ok := a.tokens[token]
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "인증 정보가 유효하지 않습니다."})
			return
		}
		next(w, r, a.users[email])
	}
}

func (a *fakeAPI) search(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	q := strings.ToLower(r.URL.Query().Get("query"))
	out := []map[string]any{}
	for _, other := range a.sortedUsers() {
		if other.id == u.id || other.disabled {
			continue
		}
		if strings.Contains(strings.ToLower(other.email), q) || strings.Contains(strings.ToLower(other.username), q) {
			out = append(out, userInfoJSON(other))
		}
	}
	reply(w, http.StatusOK, out)
}

func (a *fakeAPI) sortedUsers() []*fakeUser {
	users := make([]*fakeUser, 0, len(a.users))
	for _, u := range a.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(x, y *fakeUser) int { return cmp.Compare(x.id, y.id) })
	return users
}

func (a *fakeAPI) userByID(id int64) *fakeUser {
	for _, u := range a.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func (a *fakeAPI) id() int64 {
	a.nextID++
	return a.nextID
}

func (a *fakeAPI) createKey(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var req struct {
		Vendor   string `json:"vendor"`
		APIKey   string `json:"api_key"`
		IsActive *bool  `json:"is_active"`
	}
	if !decode(w, r, &req) {
		return
	}
	if a.rejectKeys || !strings.HasPrefix(req.APIKey, "sk-") {
		reply(w, http.StatusBadRequest, map[string]string{"detail": "유효하지 않은 API 키입니다."})
		return
	}
	k := &fakeKey{id: a.id(), owner: u.id, vendor: req.Vendor, key: req.APIKey, active: req.IsActive == nil || *req.IsActive}
	a.keys[k.id] = k
	reply(w, http.StatusOK, keyJSON(k, false))
}

func (a *fakeAPI) userKeys(u *fakeUser) []*fakeKey {
	var keys []*fakeKey
	for _, k := range a.keys {
		if k.owner == u.id {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(x, y *fakeKey) int { return cmp.Compare(x.id, y.id) })
	return keys
}

func (a *fakeAPI) listKeys(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	out := []map[string]any{}
	for _, k := range a.userKeys(u) {
		out = append(out, keyJSON(k, false))
	}
	reply(w, http.StatusOK, out)
}

func (a *fakeAPI) ownedKeys(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	out := []map[string]any{}
	for _, k := range a.userKeys(u) {
		out = append(out, map[string]any{"api_key_id": k.id, "vendor": k.vendor, "is_active": k.active})
	}
	reply(w, http.StatusOK, out)
}

func (a *fakeAPI) withKey(next func(http.ResponseWriter, *fakeKey)) func(http.ResponseWriter, *http.Request, *fakeUser) {
	return func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		k, ok := a.keys[pathID(r, "id")]
		if !ok || k.owner != u.id {
			reply(w, http.StatusNotFound, map[string]string{"detail": "API 키를 찾을 수 없습니다."})
			return
		}
		next(w, k)
	}
}

func (a *fakeAPI) updateKey(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	a.withKey(func(w http.ResponseWriter, k *fakeKey) {
		var req struct {
			Vendor   *string `json:"vendor"`
			IsActive *bool   `json:"is_active"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Vendor != nil {
			k.vendor = *req.Vendor
		}
		if req.IsActive != nil {
			k.active = *req.IsActive
		}
		reply(w, http.StatusOK, keyJSON(k, false))
	})(w, r, u)
}

func (a *fakeAPI) deleteKey(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	a.withKey(func(w http.ResponseWriter, k *fakeKey) {
		for _, g := range a.groups {
			if g.active && g.keyID == k.id {
				reply(w, http.StatusConflict, map[string]string{"detail": "그룹에서 사용 중인 API 키입니다."})
				return
			}
		}
		delete(a.keys, k.id)
		reply(w, http.StatusOK, map[string]string{"message": "API 키가 삭제되었습니다."})
	})(w, r, u)
}

func keyJSON(k *fakeKey, plaintext bool) map[string]any {
	out := map[string]any{
		"api_key_id": k.id,
		"user_id":    k.owner,
		"vendor":     k.vendor,
		"is_active":  k.active,
		"masked_key": k.key[:3] + "****" + k.key[len(k.key)-4:],
	}
	if plaintext {
		out["api_key"] = k.key
	}
	return out
}

func (a *fakeAPI) createGroup(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	var req struct {
		Name     string `json:"name"`
		APIKeyID int64  `json:"api_key_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	k, ok := a.keys[req.APIKeyID]
	if !ok || k.owner != u.id {
		reply(w, http.StatusNotFound, map[string]string{"detail": "API 키를 찾을 수 없습니다."})
		return
	}
	g := &fakeGroup{id: a.id(), owner: u.id, keyID: k.id, name: req.Name, active: true}
	a.groups[g.id] = g
	reply(w, http.StatusOK, groupJSON(g))
}

func (a *fakeAPI) isMember(g *fakeGroup, userID int64) bool {
	for _, m := range a.members {
		if m.groupID == g.id && m.userID == userID && m.accepted && m.active {
			return true
		}
	}
	return false
}

func (a *fakeAPI) listGroups(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	out := []map[string]any{}
	for _, g := range a.groups {
		if g.active && (g.owner == u.id || a.isMember(g, u.id)) {
			out = append(out, groupJSON(g))
		}
	}
	reply(w, http.StatusOK, out)
}

func (a *fakeAPI) groupDetail(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	g, ok := a.groups[pathID(r, "id")]
	if !ok || !g.active {
		reply(w, http.StatusNotFound, map[string]string{"detail": "그룹을 찾을 수 없습니다."})
		return
	}
	if g.owner != u.id && !a.isMember(g, u.id) {
		reply(w, http.StatusForbidden, map[string]string{"detail": "그룹에 접근할 권한이 없습니다."})
		return
	}
	detail := groupJSON(g)
	detail["members"] = a.membersWhere(func(m *fakeMember) bool { return m.groupID == g.id })
	reply(w, http.StatusOK, detail)
}

// withGroup resolves {id} to an active group owned by the caller.
func (a *fakeAPI) withGroup(next func(http.ResponseWriter, *http.Request, *fakeGroup)) func(http.ResponseWriter, *http.Request, *fakeUser) {
	return func(w http.ResponseWriter, r *http.Request, u *fakeUser) {
		g, ok := a.groups[pathID(r, "id")]
		if !ok || !g.active {
			reply(w, http.StatusNotFound, map[string]string{"detail": "그룹을 찾을 수 없습니다."})
			return
		}
		if g.owner != u.id {
			reply(w, http.StatusForbidden, map[string]string{"detail": "그룹을 관리할 권한이 없습니다."})
			return
		}
		next(w, r, g)
	}
}

func (a *fakeAPI) updateGroup(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
	var req struct {
		Name *string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Name != nil {
		g.name = *req.Name
	}
	reply(w, http.StatusOK, groupJSON(g))
}

func groupJSON(g *fakeGroup) map[string]any {
	return map[string]any{
		"group_id":      g.id,
		"name":          g.name,
		"owner_user_id": g.owner,
		"api_key_id":    g.keyID,
		"is_active":     g.active,
	}
}

func (a *fakeAPI) addMember(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
	var req struct {
		UserID int64   `json:"user_id"`
		Note   *string `json:"note"`
	}
	if !decode(w, r, &req) {
		return
	}
	if a.userByID(req.UserID) == nil {
		reply(w, http.StatusNotFound, map[string]string{"detail": "사용자를 찾을 수 없습니다."})
		return
	}
	if a.isMember(g, req.UserID) {
		reply(w, http.StatusBadRequest, map[string]string{"detail": "이미 그룹의 멤버입니다."})
		return
	}
	m := &fakeMember{id: a.id(), groupID: g.id, userID: req.UserID, accepted: true, active: true, note: req.Note}
	a.members[m.id] = m
	reply(w, http.StatusOK, a.memberJSON(m))
}

func (a *fakeAPI) withMember(next func(http.ResponseWriter, *http.Request, *fakeMember)) func(http.ResponseWriter, *http.Request, *fakeGroup) {
	return func(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
		m, ok := a.members[pathID(r, "mid")]
		if !ok || m.groupID != g.id {
			reply(w, http.StatusNotFound, map[string]string{"detail": "멤버를 찾을 수 없습니다."})
			return
		}
		next(w, r, m)
	}
}

func (a *fakeAPI) updateMember(w http.ResponseWriter, r *http.Request, m *fakeMember) {
	var req struct {
		IsAccepted *bool   `json:"is_accpet"`
		IsActive   *bool   `json:"is_active"`
		Note       *string `json:"note"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.IsAccepted != nil {
		m.accepted = *req.IsAccepted
	}
	if req.IsActive != nil {
		m.active = *req.IsActive
	}
	if req.Note != nil {
		m.note = req.Note
	}
	reply(w, http.StatusOK, a.memberJSON(m))
}

func (a *fakeAPI) pendingMembers(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
	reply(w, http.StatusOK, a.membersWhere(func(m *fakeMember) bool { return m.groupID == g.id && !m.accepted }))
}

func (a *fakeAPI) membersWhere(keep func(*fakeMember) bool) []map[string]any {
	out := []map[string]any{}
	for _, m := range a.members {
		if keep(m) {
			out = append(out, a.memberJSON(m))
		}
	}
	return out
}

func (a *fakeAPI) memberJSON(m *fakeMember) map[string]any {
	return map[string]any{
		"member_id": m.id,
		"group_id":  m.groupID,
		"user_id":   m.userID,
		"is_accpet": m.accepted,
		"is_active": m.active,
		"note":      m.note,
		"user_info": userInfoJSON(a.userByID(m.userID)),
	}
}

func (a *fakeAPI) inviteUser(w http.ResponseWriter, r *http.Request, g *fakeGroup) {
	var req struct {
		UserID int64 `json:"user_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	invitee := a.userByID(req.UserID)
	if invitee == nil {
		reply(w, http.StatusNotFound, map[string]string{"detail": "초대할 사용자를 찾을 수 없습니다."})
		return
	}
	inv := &fakeInvitation{id: a.id(), groupID: g.id, userID: invitee.id, invitedBy: g.owner, status: "pending"}
	a.invitations[inv.id] = inv
	reply(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       invitee.username + " 사용자를 그룹에 초대했습니다.",
		"invitation_id": inv.id,
		"user_info":     userInfoJSON(invitee),
	})
}

func (a *fakeAPI) invitationsWhere(r *http.Request, keep func(*fakeInvitation) bool) []map[string]any {
	status := r.URL.Query().Get("status")
	out := []map[string]any{}
	for _, inv := range a.invitations {
		if keep(inv) && (status == "" || inv.status == status) {
			out = append(out, map[string]any{
				"invitation_id": inv.id,
				"group_id":      inv.groupID,
				"user_id":       inv.userID,
				"invited_by":    inv.invitedBy,
				"status":        inv.status,
			})
		}
	}
	return out
}

func (a *fakeAPI) answerInvitation(w http.ResponseWriter, r *http.Request, u *fakeUser) {
	inv, ok := a.invitations[pathID(r, "id")]
	if !ok {
		reply(w, http.StatusNotFound, map[string]string{"detail": "초대를 찾을 수 없습니다."})
		return
	}
	action := chi.URLParam(r, "action")
	allowed := inv.userID == u.id
	if action == "cancel" {
		allowed = inv.invitedBy == u.id
	}
	if !allowed {
		reply(w, http.StatusForbidden, map[string]string{"detail": "이 초대에 대한 권한이 없습니다."})
		return
	}
	if inv.status != "pending" {
		reply(w, http.StatusBadRequest, map[string]string{"detail": "이미 처리된 초대입니다."})
		return
	}

	g := a.groups[inv.groupID]
	switch action {
	case "accept":
		inv.status = "accepted"
		m := &fakeMember{id: a.id(), groupID: g.id, userID: u.id, accepted: true, active: true}
		a.members[m.id] = m
		reply(w, http.StatusOK, map[string]any{"message": g.name + " 그룹 초대를 수락했습니다.", "group_id": g.id, "group_name": g.name})
	case "decline":
		inv.status = "declined"
		reply(w, http.StatusOK, map[string]string{"message": g.name + " 그룹 초대를 거절했습니다."})
	case "cancel":
		inv.status = "canceled"
		reply(w, http.StatusOK, map[string]string{"message": "초대를 취소했습니다."})
	default:
		reply(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func userInfoJSON(u *fakeUser) map[string]any {
	return map[string]any{"user_id": u.id, "username": u.username, "email": u.email}
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return false
	}
	return true
}

func userJSON(u *fakeUser) map[string]any {
	return map[string]any{
		"user_id":     u.id,
		"email":       u.email,
		"username":    u.username,
		"description": u.description,
	}
}

func strongPassword(p string) bool {
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return len(p) >= 8 && upper && lower && digit && special
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
