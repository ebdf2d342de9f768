package entitlements

// Entitlement is an abstract grant of capability: either a Permission
// (leaf) or a Role (composite of entitlements). The variant set is
// closed; the unexported method keeps implementations inside this
// package so evaluation can stay exhaustive.
type Entitlement interface {
	ID() string
	Name() string
	Description() string

	// grants walks the entitlement with a shared visited set so role
	// traversal terminates even if a cycle slipped into the graph.
	grants(permissionID string, seen map[string]struct{}) bool
}

// Permission is the smallest checkable capability. It grants itself and
// nothing else.
type Permission struct {
	id          string
	name        string
	description string
}

func (p *Permission) ID() string          { return p.id }
func (p *Permission) Name() string        { return p.name }
func (p *Permission) Description() string { return p.description }

func (p *Permission) grants(permissionID string, _ map[string]struct{}) bool {
	return p.id == permissionID
}

// Role is a named, reusable bundle of entitlements. It grants a
// permission iff any child grants it. Children are deduplicated by
// identifier; re-adding an existing child is a no-op.
type Role struct {
	id          string
	name        string
	description string
	children    map[string]Entitlement
}

func (r *Role) ID() string          { return r.id }
func (r *Role) Name() string        { return r.name }
func (r *Role) Description() string { return r.description }

// ChildIDs returns the identifiers of the role's direct children in
// unspecified order.
func (r *Role) ChildIDs() []string {
	ids := make([]string, 0, len(r.children))
	for id := range r.children {
		ids = append(ids, id)
	}
	return ids
}

func (r *Role) grants(permissionID string, seen map[string]struct{}) bool {
	if _, visited := seen[r.id]; visited {
		return false
	}
	seen[r.id] = struct{}{}
	for _, child := range r.children {
		if child.grants(permissionID, seen) {
			return true
		}
	}
	return false
}

// reachable reports whether target can be reached from e through role
// composition, including e itself.
func reachable(e Entitlement, targetID string, seen map[string]struct{}) bool {
	if e.ID() == targetID {
		return true
	}
	role, ok := e.(*Role)
	if !ok {
		return false
	}
	if _, visited := seen[role.id]; visited {
		return false
	}
	seen[role.id] = struct{}{}
	for _, child := range role.children {
		if reachable(child, targetID, seen) {
			return true
		}
	}
	return false
}
