package resources

import (
	"sort"
	"strings"
	"sync"
)

// Resource is a hierarchically named object that an action targets.
// Names are colon-separated segments, broader to narrower, for example
// "house1:kitchen:oven1".
type Resource struct {
	Name string
}

// Contains reports whether the stored resource name covers the queried
// name: either they are equal, or the queried name is an ancestor of the
// stored name (the stored name truncated at any colon boundary).
//
// Segment comparison is case-sensitive and exact; there are no wildcard
// segments. Containment is asymmetric — the stored side is the
// potentially broader one.
func Contains(stored, queried string) bool {
	if stored == queried {
		return true
	}
	return strings.HasPrefix(stored, queried+":")
}

// Covers reports whether r covers the queried resource.
func (r Resource) Covers(queried Resource) bool {
	return Contains(r.Name, queried.Name)
}

// Registry tracks every resource name the system has seen. Resources are
// referenced, not pre-declared: evaluation and binding creation register
// names on first use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Resource
}

// NewRegistry constructs an empty resource registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Resource)}
}

// Ensure returns the resource with the given name, creating it if unseen.
func (r *Registry) Ensure(name string) Resource {
	r.mu.RLock()
	res, ok := r.byName[name]
	r.mu.RUnlock()
	if ok {
		return res
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.byName[name]; ok {
		return res
	}
	res = Resource{Name: name}
	r.byName[name] = res
	return res
}

// Names returns all registered resource names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
