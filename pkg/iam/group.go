package iam

import (
	"fmt"

	"github.com/gatewarden/gatewarden/pkg/rules"
)

// MemberKind discriminates group members.
type MemberKind string

const (
	MemberUser  MemberKind = "user"
	MemberGroup MemberKind = "group"
)

// Member is a reference to a group member: a user by registry key or a
// nested group by name.
type Member struct {
	Kind MemberKind
	Ref  string
}

// Group is a named collection of users and nested groups carrying a list of
// assigned roles. A user who is a member of a group inherits the roles of
// that group and, transitively, of every group reachable through its
// members. The membership graph is kept acyclic.
type Group struct {
	sys         *System
	name        string
	description string
	members     []Member
	roles       []string
}

// Name returns the registry name.
func (g *Group) Name() string { return g.name }

// Description returns the optional description.
func (g *Group) Description() string {
	g.sys.mu.RLock()
	defer g.sys.mu.RUnlock()
	return g.description
}

// Members returns the member list in add order.
func (g *Group) Members() []Member {
	g.sys.mu.RLock()
	defer g.sys.mu.RUnlock()
	return append([]Member(nil), g.members...)
}

// Roles returns the assigned role names in assignment order.
func (g *Group) Roles() []string {
	g.sys.mu.RLock()
	defer g.sys.mu.RUnlock()
	return append([]string(nil), g.roles...)
}

// Add adds members by name. A name that matches a group adds the group;
// any other name is resolved as a user, by registry key first and then by
// display name, like FindUser. Adding a group that would make the
// membership graph cyclic fails with ErrCycle and leaves the group
// unchanged.
func (g *Group) Add(names ...string) error {
	g.sys.mu.Lock()
	defer g.sys.mu.Unlock()

	for _, name := range names {
		if member, ok := g.sys.groups[name]; ok {
			if err := g.addGroupLocked(member); err != nil {
				return err
			}
			continue
		}
		if user := g.sys.findUserLocked(name); user != nil {
			g.addUserLocked(user)
			continue
		}
		return fmt.Errorf("group or user %q: %w", name, ErrNotFound)
	}
	return nil
}

// AddUser adds a user to the group.
func (g *Group) AddUser(u *User) {
	g.sys.mu.Lock()
	defer g.sys.mu.Unlock()
	g.addUserLocked(u)
}

func (g *Group) addUserLocked(u *User) {
	for _, m := range g.members {
		if m.Kind == MemberUser && m.Ref == u.key {
			return
		}
	}
	g.members = append(g.members, Member{Kind: MemberUser, Ref: u.key})
	if !contains(u.groups, g.name) {
		u.groups = append(u.groups, g.name)
	}
}

func (g *Group) addGroupLocked(member *Group) error {
	if member.name == g.name || g.sys.reachableLocked(member.name, g.name) {
		return fmt.Errorf("adding %q to %q: %w", member.name, g.name, ErrCycle)
	}
	for _, m := range g.members {
		if m.Kind == MemberGroup && m.Ref == member.name {
			return nil
		}
	}
	g.members = append(g.members, Member{Kind: MemberGroup, Ref: member.name})
	return nil
}

// reachableLocked reports whether target is reachable from start by walking
// group members.
func (s *System) reachableLocked(start, target string) bool {
	seen := make(map[string]bool)
	var walk func(name string) bool
	walk = func(name string) bool {
		if name == target {
			return true
		}
		if seen[name] {
			return false
		}
		seen[name] = true
		group, ok := s.groups[name]
		if !ok {
			return false
		}
		for _, m := range group.members {
			if m.Kind == MemberGroup && walk(m.Ref) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

// Assign adds a role to the group's role list. Assigning an already
// assigned role is a no-op.
func (g *Group) Assign(roleName string) error {
	g.sys.mu.Lock()
	defer g.sys.mu.Unlock()
	if _, ok := g.sys.roles[roleName]; !ok {
		return fmt.Errorf("role %q: %w", roleName, ErrNotFound)
	}
	if !contains(g.roles, roleName) {
		g.roles = append(g.roles, roleName)
	}
	return nil
}

// Revoke removes a role from the group's role list. Revoking a role the
// group does not carry is a no-op, not an error.
func (g *Group) Revoke(roleName string) {
	g.sys.mu.Lock()
	defer g.sys.mu.Unlock()
	g.roles = remove(g.roles, roleName)
}

// CreateGroup registers one or more groups and returns them in argument
// order. An existing name returns the existing group.
func (s *System) CreateGroup(names ...string) ([]*Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Group, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: empty group name", rules.ErrInvalidRule)
		}
		group, ok := s.groups[name]
		if !ok {
			group = &Group{sys: s, name: name}
			s.groups[name] = group
			s.groupOrder = append(s.groupOrder, name)
		}
		out = append(out, group)
	}
	return out, nil
}

// Group looks a group up by name.
func (s *System) Group(name string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.groups[name]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	return group, nil
}

// Groups returns all groups in registration order.
func (s *System) Groups() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Group, 0, len(s.groupOrder))
	for _, name := range s.groupOrder {
		out = append(out, s.groups[name])
	}
	return out
}
