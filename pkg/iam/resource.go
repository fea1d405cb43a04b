package iam

import (
	"fmt"
	"sort"

	"github.com/gatewarden/gatewarden/pkg/rules"
)

// Resource is a named protectable entity with a declared list of right
// names. Declared rights carry no grant state of their own; grants come from
// the everyone baseline, roles, and user overrides at resolution time.
type Resource struct {
	sys         *System
	name        string
	description string
	rights      []string // declared order
}

// Name returns the registry name.
func (r *Resource) Name() string { return r.name }

// Description returns the optional description.
func (r *Resource) Description() string {
	r.sys.mu.RLock()
	defer r.sys.mu.RUnlock()
	return r.description
}

// SetDescription updates the optional description.
func (r *Resource) SetDescription(desc string) {
	r.sys.mu.Lock()
	defer r.sys.mu.Unlock()
	r.description = desc
}

// RightNames returns the declared right names in declaration order.
func (r *Resource) RightNames() []string {
	r.sys.mu.RLock()
	defer r.sys.mu.RUnlock()
	return append([]string(nil), r.rights...)
}

// ResolvedRights returns the declared rights with the grant state the
// everyone baseline gives them. Rights no rule touches report as not
// granted.
func (r *Resource) ResolvedRights() []rules.Right {
	r.sys.mu.RLock()
	defer r.sys.mu.RUnlock()
	entry := r.sys.everyone[r.name]
	out := make([]rules.Right, 0, len(r.rights))
	for _, name := range r.rights {
		granted := false
		for _, rule := range entry {
			if rule.Matches(name) {
				granted = rule.Granted
			}
		}
		out = append(out, rules.Right{Name: name, Granted: granted})
	}
	return out
}

// CreateResource registers a resource with the given right names. If the
// resource already exists the right lists are merged; a right name already
// declared is not duplicated.
func (s *System) CreateResource(name string, rights []string) (*Resource, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty resource name", rules.ErrInvalidRule)
	}
	for _, right := range rights {
		if right == "" {
			return nil, fmt.Errorf("%w: resource %q declares an empty right name", rules.ErrInvalidRule, name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resource, ok := s.resources[name]
	if !ok {
		resource = &Resource{sys: s, name: name}
		s.resources[name] = resource
		s.resourceOrder = append(s.resourceOrder, name)
	}
	for _, right := range rights {
		if !contains(resource.rights, right) {
			resource.rights = append(resource.rights, right)
		}
	}
	return resource, nil
}

// CreateResources registers several resources in one call. Names are
// processed in sorted order so repeated calls register deterministically.
func (s *System) CreateResources(specs map[string][]string) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := s.CreateResource(name, specs[name]); err != nil {
			return err
		}
	}
	return nil
}

// Resource looks a resource up by name.
func (s *System) Resource(name string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resource, ok := s.resources[name]
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", name, ErrNotFound)
	}
	return resource, nil
}

// Resources returns all resources in registration order.
func (s *System) Resources() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Resource, 0, len(s.resourceOrder))
	for _, name := range s.resourceOrder {
		out = append(out, s.resources[name])
	}
	return out
}

// DeleteResource removes a resource from the registry. Rules that still
// reference the name stay where they are and become inert: resolution for a
// missing resource reports an unknown resource rather than failing.
func (s *System) DeleteResource(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[name]; !ok {
		return fmt.Errorf("resource %q: %w", name, ErrNotFound)
	}
	delete(s.resources, name)
	s.resourceOrder = remove(s.resourceOrder, name)
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
