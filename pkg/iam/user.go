package iam

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/pkg/rules"
)

// User is a registered identity. The registry key is assigned at creation
// and never changes; Name is a mutable display label with no uniqueness
// constraint. A user's explicit rule set outranks every other rule source
// for that user.
type User struct {
	sys       *System
	key       string
	name      string
	roles     []string // direct roles, assignment order
	groups    []string // joined groups, join order
	overrides rules.Set
}

// Key returns the immutable registry key.
func (u *User) Key() string { return u.key }

// Name returns the display label.
func (u *User) Name() string {
	u.sys.mu.RLock()
	defer u.sys.mu.RUnlock()
	return u.name
}

// SetName updates the display label.
func (u *User) SetName(name string) {
	u.sys.mu.Lock()
	defer u.sys.mu.Unlock()
	u.name = name
}

// Roles returns the directly assigned role names in assignment order.
func (u *User) Roles() []string {
	u.sys.mu.RLock()
	defer u.sys.mu.RUnlock()
	return append([]string(nil), u.roles...)
}

// Groups returns the joined group names in join order.
func (u *User) Groups() []string {
	u.sys.mu.RLock()
	defer u.sys.mu.RUnlock()
	return append([]string(nil), u.groups...)
}

// Rights returns a copy of the user's explicit rule set.
func (u *User) Rights() rules.Set {
	u.sys.mu.RLock()
	defer u.sys.mu.RUnlock()
	return u.overrides.Clone()
}

// Assign adds a direct role. Assigning an already assigned role is a no-op.
func (u *User) Assign(roleName string) error {
	u.sys.mu.Lock()
	defer u.sys.mu.Unlock()
	if _, ok := u.sys.roles[roleName]; !ok {
		return fmt.Errorf("role %q: %w", roleName, ErrNotFound)
	}
	if !contains(u.roles, roleName) {
		u.roles = append(u.roles, roleName)
	}
	return nil
}

// Join adds the user to a group.
func (u *User) Join(groupName string) error {
	u.sys.mu.Lock()
	defer u.sys.mu.Unlock()
	group, ok := u.sys.groups[groupName]
	if !ok {
		return fmt.Errorf("group %q: %w", groupName, ErrNotFound)
	}
	group.addUserLocked(u)
	return nil
}

// SetRight folds a single rule token into the user's explicit rule set,
// replacing any prior explicit rule for the same resource and right.
func (u *User) SetRight(resourceName, token string) error {
	rule, err := rules.ParseToken(token)
	if err != nil {
		return err
	}

	u.sys.mu.Lock()
	defer u.sys.mu.Unlock()

	if _, ok := u.sys.resources[resourceName]; !ok {
		return fmt.Errorf("resource %q: %w", resourceName, ErrNotFound)
	}
	if u.overrides == nil {
		u.overrides = make(rules.Set)
	}
	entry := u.overrides[resourceName]
	kept := entry[:0]
	for _, existing := range entry {
		if existing.Name != rule.Name {
			kept = append(kept, existing)
		}
	}
	u.overrides[resourceName] = append(kept, rule)
	return nil
}

// CreateUser registers a user, optionally assigning roles immediately. The
// registry key is generated and immutable; the display name starts empty.
func (s *System) CreateUser(roleNames ...string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, roleName := range roleNames {
		if _, ok := s.roles[roleName]; !ok {
			return nil, fmt.Errorf("role %q: %w", roleName, ErrNotFound)
		}
	}

	user := &User{
		sys:       s,
		key:       uuid.NewString(),
		overrides: make(rules.Set),
	}
	for _, roleName := range roleNames {
		if !contains(user.roles, roleName) {
			user.roles = append(user.roles, roleName)
		}
	}
	s.users[user.key] = user
	s.userOrder = append(s.userOrder, user.key)
	return user, nil
}

// User looks a user up by registry key.
func (s *System) User(key string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[key]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", key, ErrNotFound)
	}
	return user, nil
}

// FindUser looks a user up by registry key, falling back to the first user
// whose display name matches. Display names are not unique; key lookup is
// authoritative.
func (s *System) FindUser(keyOrName string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user := s.findUserLocked(keyOrName)
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", keyOrName, ErrNotFound)
	}
	return user, nil
}

func (s *System) findUserLocked(keyOrName string) *User {
	if user, ok := s.users[keyOrName]; ok {
		return user
	}
	for _, key := range s.userOrder {
		if s.users[key].name == keyOrName {
			return s.users[key]
		}
	}
	return nil
}

// Users returns all users in creation order.
func (s *System) Users() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.userOrder))
	for _, key := range s.userOrder {
		out = append(out, s.users[key])
	}
	return out
}
