package entitlements

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hearthos/entitlement/internal/shared"
)

// Graph is the registry of permissions and roles. Identifiers are unique
// across both variants. All traversal happens under the graph's read
// lock so evaluation observes a consistent child set.
type Graph struct {
	mu   sync.RWMutex
	byID map[string]Entitlement
}

// NewGraph constructs an empty entitlement graph.
func NewGraph() *Graph {
	return &Graph{byID: make(map[string]Entitlement)}
}

// DefinePermission registers a new leaf permission.
func (g *Graph) DefinePermission(id, name, description string) (*Permission, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byID[id]; exists {
		return nil, shared.NewDuplicate(shared.KindEntitlement, id)
	}
	p := &Permission{id: id, name: name, description: description}
	g.byID[id] = p
	return p, nil
}

// DefineRole registers a new composite role with no children.
func (g *Graph) DefineRole(id, name, description string) (*Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byID[id]; exists {
		return nil, shared.NewDuplicate(shared.KindEntitlement, id)
	}
	r := &Role{id: id, name: name, description: description, children: make(map[string]Entitlement)}
	g.byID[id] = r
	return r, nil
}

// AddToRole attaches an entitlement as a child of a role. Re-adding an
// existing child is a no-op. Attachments that would make the role
// reachable from itself are rejected.
func (g *Graph) AddToRole(roleID, entitlementID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	parent, ok := g.byID[roleID]
	if !ok {
		return shared.NewNotFound(shared.KindRole, roleID)
	}
	role, ok := parent.(*Role)
	if !ok {
		return shared.NewNotFound(shared.KindRole, roleID)
	}
	child, ok := g.byID[entitlementID]
	if !ok {
		return shared.NewNotFound(shared.KindEntitlement, entitlementID)
	}
	if _, exists := role.children[entitlementID]; exists {
		return nil
	}
	if reachable(child, roleID, make(map[string]struct{})) {
		return fmt.Errorf("adding %q to role %q would create a cycle", entitlementID, roleID)
	}
	role.children[entitlementID] = child
	return nil
}

// Grants reports whether the named entitlement (transitively) grants the
// permission.
func (g *Graph) Grants(entitlementID, permissionID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.byID[entitlementID]
	if !ok {
		return false
	}
	return e.grants(permissionID, make(map[string]struct{}))
}

// Lookup returns the entitlement with the given identifier.
func (g *Graph) Lookup(id string) (Entitlement, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.byID[id]
	return e, ok
}

// Permission returns the leaf permission with the given identifier.
func (g *Graph) Permission(id string) (*Permission, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.byID[id].(*Permission)
	return p, ok
}

// Role returns the role with the given identifier.
func (g *Graph) Role(id string) (*Role, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.byID[id].(*Role)
	return r, ok
}

// EntitlementInfo is a stable snapshot of one registered entitlement.
type EntitlementInfo struct {
	ID          string
	Name        string
	Description string
	IsRole      bool
	ChildIDs    []string
}

// Snapshot lists every registered entitlement sorted by identifier.
func (g *Graph) Snapshot() []EntitlementInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	infos := make([]EntitlementInfo, 0, len(g.byID))
	for _, e := range g.byID {
		info := EntitlementInfo{ID: e.ID(), Name: e.Name(), Description: e.Description()}
		if role, ok := e.(*Role); ok {
			info.IsRole = true
			info.ChildIDs = role.ChildIDs()
			sort.Strings(info.ChildIDs)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
