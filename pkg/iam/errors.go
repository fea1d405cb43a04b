package iam

import "errors"

var (
	// ErrNotFound is returned when a resource, role, group, or user is
	// looked up by a name that is not registered.
	ErrNotFound = errors.New("not found")

	// ErrCycle is returned when a group membership change would make a
	// group a member of itself, directly or transitively.
	ErrCycle = errors.New("group membership cycle")
)
