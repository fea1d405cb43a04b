// Package iam implements the access-control graph and its resolver:
// resources with declared rights, the everyone baseline, roles, groups with
// transitive membership, users with explicit overrides, and the
// authorized/trace decision algorithm.
//
// All state hangs off a System handle constructed once per process. A single
// read-write lock guards the graph: mutations and snapshot restore take the
// write lock, decision queries take the read lock. Decision queries are safe
// to run concurrently with each other.
package iam

import (
	"sync"

	"github.com/gatewarden/gatewarden/pkg/rules"
)

// System is the access-control graph: every registry plus the everyone
// baseline. The zero value is not usable; construct with NewSystem.
type System struct {
	mu sync.RWMutex

	resources     map[string]*Resource
	resourceOrder []string

	everyone rules.Set

	roles     map[string]*Role
	roleOrder []string

	groups     map[string]*Group
	groupOrder []string

	users     map[string]*User
	userOrder []string
}

// NewSystem creates an empty graph.
func NewSystem() *System {
	s := &System{}
	s.reset()
	return s
}

func (s *System) reset() {
	s.resources = make(map[string]*Resource)
	s.resourceOrder = nil
	s.everyone = make(rules.Set)
	s.roles = make(map[string]*Role)
	s.roleOrder = nil
	s.groups = make(map[string]*Group)
	s.groupOrder = nil
	s.users = make(map[string]*User)
	s.userOrder = nil
}

// Reset discards the entire graph. Used by snapshot restore, which is a
// wholesale rebuild rather than an incremental merge.
func (s *System) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// Everyone merges rule values into the everyone baseline. Values follow the
// rule grammar; a bare token establishes an allow default. An entry replaces
// any previous everyone entry for the same resource.
func (s *System) Everyone(raw map[string]any) error {
	set, err := rules.ParseSet(raw)
	if err != nil {
		return err
	}
	s.EveryoneSet(set)
	return nil
}

// EveryoneSet merges already-parsed entries into the everyone baseline.
func (s *System) EveryoneSet(set rules.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for resource, entry := range set {
		s.everyone[resource] = append(rules.Entry(nil), entry...)
	}
}

// EveryoneRules returns a copy of the everyone baseline.
func (s *System) EveryoneRules() rules.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.everyone.Clone()
}
