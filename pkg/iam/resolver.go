package iam

import (
	"fmt"

	"github.com/gatewarden/gatewarden/pkg/rules"
)

// Rule sources, in increasing precedence.
const (
	SourceEveryone = "everyone"
	SourceGroup    = "group"
	SourceRole     = "role"
	SourceExplicit = "explicit"
)

// Outcome classifies a trace result.
type Outcome string

const (
	// OutcomeAllowed: a rule granted the right.
	OutcomeAllowed Outcome = "allowed"
	// OutcomeDenied: a rule denied the right.
	OutcomeDenied Outcome = "denied"
	// OutcomeDefaultDeny: no rule at any level applied; denied fail-closed.
	OutcomeDefaultDeny Outcome = "denied_by_default"
	// OutcomeUnknownResource: the resource is not registered.
	OutcomeUnknownResource Outcome = "unknown_resource"
	// OutcomeUnknownRight: the resource does not declare the right.
	OutcomeUnknownRight Outcome = "unknown_right"
	// OutcomeUnknownUser: the user is not registered.
	OutcomeUnknownUser Outcome = "unknown_user"
)

// Decision is one contributing rule application in a trace.
type Decision struct {
	Source  string      `json:"source"`
	Role    string      `json:"role,omitempty"`
	Group   string      `json:"group,omitempty"`
	Rule    rules.Right `json:"rule"`
	Granted bool        `json:"granted"`
}

// Trace explains an authorization decision: every contributing rule in
// evaluation order, the deciding one, and a human-readable description.
// Tracing never fails; absent users and resources are reported as outcomes.
type Trace struct {
	User        string     `json:"user"`
	UserKey     string     `json:"userKey,omitempty"`
	Resource    string     `json:"resource"`
	Right       string     `json:"right"`
	Outcome     Outcome    `json:"outcome"`
	Granted     bool       `json:"granted"`
	Steps       []Decision `json:"steps,omitempty"`
	DecidedBy   *Decision  `json:"decidedBy,omitempty"`
	Description string     `json:"description"`
}

// Authorized reports whether the user holds the right on the resource.
// Sources are evaluated in increasing precedence: the everyone baseline,
// roles inherited through group membership, directly assigned roles, then
// the user's explicit rules, which always win. Within one level a later
// rule for the same right replaces an earlier one. A right no rule touches
// is denied.
func (s *System) Authorized(userRef, resourceName, rightName string) bool {
	return s.Trace(userRef, resourceName, rightName).Granted
}

// Trace resolves like Authorized and returns the full explanation. The
// user is looked up by registry key, falling back to display name.
func (s *System) Trace(userRef, resourceName, rightName string) Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := Trace{
		User:     userRef,
		Resource: resourceName,
		Right:    rightName,
	}

	resource, ok := s.resources[resourceName]
	if !ok {
		t.Outcome = OutcomeUnknownResource
		t.Description = fmt.Sprintf("no such resource %q", resourceName)
		return t
	}
	if !contains(resource.rights, rightName) {
		t.Outcome = OutcomeUnknownRight
		t.Description = fmt.Sprintf("resource %q has no right named %q", resourceName, rightName)
		return t
	}

	user := s.findUserLocked(userRef)
	if user == nil {
		t.Outcome = OutcomeUnknownUser
		t.Description = fmt.Sprintf("no such user %q", userRef)
		return t
	}
	if user.name != "" {
		t.User = user.name
	}
	t.UserKey = user.key

	apply := func(source, roleName, groupName string, entry rules.Entry) {
		for _, rule := range entry {
			if !rule.Matches(rightName) {
				continue
			}
			t.Steps = append(t.Steps, Decision{
				Source:  source,
				Role:    roleName,
				Group:   groupName,
				Rule:    rule,
				Granted: rule.Granted,
			})
		}
	}

	// 1. Everyone baseline.
	apply(SourceEveryone, "", "", s.everyone[resourceName])

	// 2. Roles inherited through group membership, in traversal order.
	s.visitGroupsLocked(user.groups, func(g *Group) {
		for _, roleName := range g.roles {
			if role, ok := s.roles[roleName]; ok {
				apply(SourceGroup, roleName, g.name, role.rules[resourceName])
			}
		}
	})

	// 3. Directly assigned roles, in assignment order.
	for _, roleName := range user.roles {
		if role, ok := s.roles[roleName]; ok {
			apply(SourceRole, roleName, "", role.rules[resourceName])
		}
	}

	// 4. Explicit user rules, the ceiling.
	apply(SourceExplicit, "", "", user.overrides[resourceName])

	if len(t.Steps) == 0 {
		t.Outcome = OutcomeDefaultDeny
		t.Description = fmt.Sprintf("%s is denied %q on %q: no rule applies", t.User, rightName, resourceName)
		return t
	}

	// The last applied rule decides. Precedence holds because sources are
	// evaluated in increasing order; within a level, last write wins.
	decided := t.Steps[len(t.Steps)-1]
	t.DecidedBy = &decided
	t.Granted = decided.Granted
	if decided.Granted {
		t.Outcome = OutcomeAllowed
	} else {
		t.Outcome = OutcomeDenied
	}

	verb := "granted"
	if !decided.Granted {
		verb = "denied"
	}
	t.Description = fmt.Sprintf("%s is %s %q on %q by %s", t.User, verb, rightName, resourceName, describeSource(decided))
	return t
}

// visitGroupsLocked walks groups depth-first starting from the given names,
// descending through nested group members in add order, visiting each group
// once. Names that no longer resolve to a group are skipped.
func (s *System) visitGroupsLocked(names []string, visit func(g *Group)) {
	seen := make(map[string]bool)
	var walk func(name string)
	walk = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		group, ok := s.groups[name]
		if !ok {
			return
		}
		visit(group)
		for _, m := range group.members {
			if m.Kind == MemberGroup {
				walk(m.Ref)
			}
		}
	}
	for _, name := range names {
		walk(name)
	}
}

func describeSource(d Decision) string {
	switch d.Source {
	case SourceEveryone:
		return "the everyone baseline"
	case SourceGroup:
		return fmt.Sprintf("role %q inherited from group %q", d.Role, d.Group)
	case SourceRole:
		return fmt.Sprintf("directly assigned role %q", d.Role)
	case SourceExplicit:
		return "an explicit user right"
	default:
		return d.Source
	}
}
