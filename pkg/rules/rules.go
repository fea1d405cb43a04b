// Package rules implements the rule-token grammar shared by the everyone
// baseline, role grants, and per-user overrides. A rule value is either the
// wildcard '*', a single token string, or a list of token strings, where a
// token is a bare right name or a right name prefixed "allow:"/"deny:".
// Parsing happens once, at ingestion; resolution works on the parsed form.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard matches every right declared on a resource. The match is
// evaluated at decision time, so rights added to a resource after the rule
// was declared are still covered.
const Wildcard = "*"

// ErrInvalidRule is returned when a rule value is neither '*' nor a string
// token nor a list of string tokens.
var ErrInvalidRule = errors.New("invalid rule value")

// Right is a single parsed grant or denial. Name is a right name or the
// Wildcard.
type Right struct {
	Name    string
	Granted bool
}

// Matches reports whether this rule applies to the named right.
func (r Right) Matches(right string) bool {
	return r.Name == Wildcard || r.Name == right
}

// Entry is an ordered list of parsed rights for one resource. Order is
// significant: when several rights in an entry apply to the same right name,
// the last one wins.
type Entry []Right

// Set maps resource names to parsed entries.
type Set map[string]Entry

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for resource, entry := range s {
		out[resource] = append(Entry(nil), entry...)
	}
	return out
}

// ParseToken parses a single rule token. Bare tokens default to allow.
func ParseToken(token string) (Right, error) {
	granted := true
	name := token
	if before, after, found := strings.Cut(token, ":"); found {
		switch before {
		case "allow":
			granted = true
		case "deny":
			granted = false
		default:
			return Right{}, fmt.Errorf("%w: unknown prefix %q in token %q", ErrInvalidRule, before, token)
		}
		name = after
	}
	if name == "" {
		return Right{}, fmt.Errorf("%w: empty right name in token %q", ErrInvalidRule, token)
	}
	return Right{Name: name, Granted: granted}, nil
}

// ParseEntry parses a rule value for one resource. Accepted shapes are the
// bare wildcard string, a single token string, a []string of tokens, or a
// []any of strings (the shape a JSON decoder produces).
func ParseEntry(value any) (Entry, error) {
	switch v := value.(type) {
	case string:
		right, err := ParseToken(v)
		if err != nil {
			return nil, err
		}
		return Entry{right}, nil
	case []string:
		entry := make(Entry, 0, len(v))
		for _, token := range v {
			right, err := ParseToken(token)
			if err != nil {
				return nil, err
			}
			entry = append(entry, right)
		}
		return entry, nil
	case []any:
		entry := make(Entry, 0, len(v))
		for _, raw := range v {
			token, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string token, got %T", ErrInvalidRule, raw)
			}
			right, err := ParseToken(token)
			if err != nil {
				return nil, err
			}
			entry = append(entry, right)
		}
		return entry, nil
	default:
		return nil, fmt.Errorf("%w: expected '*' or a list of tokens, got %T", ErrInvalidRule, value)
	}
}

// ParseSet parses a resource-keyed map of rule values.
func ParseSet(raw map[string]any) (Set, error) {
	set := make(Set, len(raw))
	for resource, value := range raw {
		if resource == "" {
			return nil, fmt.Errorf("%w: empty resource name", ErrInvalidRule)
		}
		entry, err := ParseEntry(value)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", resource, err)
		}
		set[resource] = entry
	}
	return set, nil
}
