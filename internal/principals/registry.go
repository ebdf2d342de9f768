package principals

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/hearthos/entitlement/internal/entitlements"
	"github.com/hearthos/entitlement/internal/resources"
	"github.com/hearthos/entitlement/internal/shared"
)

// Registry holds users and resource-role bindings. Entitlement and
// resource identifiers are validated against the graph and resource
// registry handed in at construction.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]*User
	bindings map[string]*Binding

	graph      *entitlements.Graph
	resources  *resources.Registry
	bcryptCost int
}

// NewRegistry constructs a principal registry. cost is the bcrypt cost
// used when hashing password secrets.
func NewRegistry(graph *entitlements.Graph, res *resources.Registry, cost int) *Registry {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Registry{
		users:      make(map[string]*User),
		bindings:   make(map[string]*Binding),
		graph:      graph,
		resources:  res,
		bcryptCost: cost,
	}
}

// CreateUser registers a new user.
func (r *Registry) CreateUser(id, name string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[id]; exists {
		return nil, shared.NewDuplicate(shared.KindUser, id)
	}
	u := newUser(id, name)
	r.users[id] = u
	return u, nil
}

// AddCredential attaches a credential to the user. Password secrets are
// hashed with bcrypt before storage; voiceprint secrets are stored as
// opaque bytes and compared in constant time.
func (r *Registry) AddCredential(userID string, kind CredentialKind, secret string) error {
	var scope CredentialScope
	switch kind {
	case KindPassword:
		scope = ScopeSystemWide
	case KindVoiceprint:
		scope = ScopeResourceBound
	default:
		return fmt.Errorf("%w: %q", shared.ErrInvalidCredentialKind, string(kind))
	}

	verifier := []byte(secret)
	if kind == KindPassword {
		hashed, err := bcrypt.GenerateFromPassword([]byte(secret), r.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password credential: %w", err)
		}
		verifier = hashed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return shared.NewNotFound(shared.KindUser, userID)
	}
	u.credentials = append(u.credentials, &Credential{Kind: kind, Scope: scope, verifier: verifier})
	return nil
}

// GrantEntitlement adds an entitlement to the user's direct set. The
// direct set is consulted only on the administrative evaluation path.
func (r *Registry) GrantEntitlement(userID, entitlementID string) error {
	if _, ok := r.graph.Lookup(entitlementID); !ok {
		return shared.NewNotFound(shared.KindEntitlement, entitlementID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return shared.NewNotFound(shared.KindUser, userID)
	}
	u.entitlements[entitlementID] = struct{}{}
	return nil
}

// CreateBinding creates a resource-role binding, registering the
// resource on demand if it has not been seen before.
func (r *Registry) CreateBinding(name, roleID, resourceName string) (*Binding, error) {
	if _, ok := r.graph.Role(roleID); !ok {
		return nil, shared.NewNotFound(shared.KindRole, roleID)
	}
	res := r.resources.Ensure(resourceName)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bindings[name]; exists {
		return nil, shared.NewDuplicate(shared.KindBinding, name)
	}
	b := &Binding{Name: name, RoleID: roleID, ResourceName: res.Name}
	r.bindings[name] = b
	return b, nil
}

// BindToUser assigns a named binding to the user. Bindings are consulted
// only on the scoped evaluation path.
func (r *Registry) BindToUser(userID, bindingName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return shared.NewNotFound(shared.KindUser, userID)
	}
	if _, ok := r.bindings[bindingName]; !ok {
		return shared.NewNotFound(shared.KindBinding, bindingName)
	}
	u.bindings[bindingName] = struct{}{}
	return nil
}

// FindByPassword locates the named user and verifies the secret against
// that user's password credentials. An unknown user reports the same
// AuthenticationFailed as a wrong secret, so login never confirms user
// existence.
func (r *Registry) FindByPassword(userID, secret string) (*User, *Credential, error) {
	r.mu.RLock()
	u, ok := r.users[userID]
	var creds []*Credential
	if ok {
		creds = append(creds, u.credentials...)
	}
	r.mu.RUnlock()

	for _, c := range creds {
		if c.Kind == KindPassword && c.Matches(secret) {
			return u, c, nil
		}
	}
	return nil, nil, shared.ErrAuthenticationFailed
}

// FindByVoiceprint searches every user's voiceprint credentials for one
// matching the secret.
func (r *Registry) FindByVoiceprint(secret string) (*User, *Credential, error) {
	r.mu.RLock()
	type candidate struct {
		user *User
		cred *Credential
	}
	var candidates []candidate
	for _, u := range r.users {
		for _, c := range u.credentials {
			if c.Kind == KindVoiceprint {
				candidates = append(candidates, candidate{user: u, cred: c})
			}
		}
	}
	r.mu.RUnlock()

	for _, cand := range candidates {
		if cand.cred.Matches(secret) {
			return cand.user, cand.cred, nil
		}
	}
	return nil, nil, shared.ErrAuthenticationFailed
}

// DirectEntitlements returns a snapshot of the user's directly-granted
// entitlement ids.
func (r *Registry) DirectEntitlements(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(u.entitlements))
	for id := range u.entitlements {
		ids = append(ids, id)
	}
	return ids
}

// UserBindings returns a snapshot of the bindings assigned to the user.
func (r *Registry) UserBindings(userID string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	out := make([]Binding, 0, len(u.bindings))
	for name := range u.bindings {
		if b, ok := r.bindings[name]; ok {
			out = append(out, *b)
		}
	}
	return out
}

// UserInfo is a stable snapshot of one registered user.
type UserInfo struct {
	ID           string
	Name         string
	Credentials  int
	Entitlements []string
	Bindings     []string
}

// SnapshotUsers lists every user sorted by identifier.
func (r *Registry) SnapshotUsers() []UserInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]UserInfo, 0, len(r.users))
	for _, u := range r.users {
		info := UserInfo{ID: u.ID, Name: u.Name, Credentials: len(u.credentials)}
		for id := range u.entitlements {
			info.Entitlements = append(info.Entitlements, id)
		}
		for name := range u.bindings {
			info.Bindings = append(info.Bindings, name)
		}
		sort.Strings(info.Entitlements)
		sort.Strings(info.Bindings)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// SnapshotBindings lists every binding sorted by name.
func (r *Registry) SnapshotBindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
