package iam

import (
	"strings"
	"testing"
)

// blogSystem builds the canonical test graph: a blog resource where
// everyone may view but not edit, and an editor role that may edit.
func blogSystem(t *testing.T) *System {
	t.Helper()
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"view", "edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if err := sys.Everyone(map[string]any{"blog": []string{"view", "deny:edit"}}); err != nil {
		t.Fatalf("everyone: %v", err)
	}
	if _, err := sys.CreateRole("editor", map[string]any{"blog": []string{"allow:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	return sys
}

func TestAuthorizedScenario(t *testing.T) {
	sys := blogSystem(t)

	editor, err := sys.CreateUser("editor")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	visitor, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	cases := []struct {
		name  string
		user  string
		right string
		want  bool
	}{
		{"editor can view", editor.Key(), "view", true},
		{"editor can edit", editor.Key(), "edit", true},
		{"visitor can view", visitor.Key(), "view", true},
		{"visitor cannot edit", visitor.Key(), "edit", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sys.Authorized(tc.user, "blog", tc.right); got != tc.want {
				t.Errorf("Authorized(%q, blog, %q) = %v, want %v", tc.user, tc.right, got, tc.want)
			}
		})
	}
}

func TestFailClosedDefault(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("wiki", []string{"view"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if sys.Authorized(user.Key(), "wiki", "view") {
		t.Error("right with no contributing rule must be denied")
	}
	trace := sys.Trace(user.Key(), "wiki", "view")
	if trace.Outcome != OutcomeDefaultDeny {
		t.Errorf("outcome = %v, want %v", trace.Outcome, OutcomeDefaultDeny)
	}
	if trace.DecidedBy != nil {
		t.Error("default deny must not name a deciding rule")
	}
}

func TestExplicitOverrideCeiling(t *testing.T) {
	sys := blogSystem(t)

	user, err := sys.CreateUser("editor")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Everyone allows view, the editor role allows edit; explicit denies
	// must win over both.
	if err := user.SetRight("blog", "deny:view"); err != nil {
		t.Fatalf("set right: %v", err)
	}
	if err := user.SetRight("blog", "deny:edit"); err != nil {
		t.Fatalf("set right: %v", err)
	}
	if sys.Authorized(user.Key(), "blog", "view") {
		t.Error("explicit deny must override the everyone baseline")
	}
	if sys.Authorized(user.Key(), "blog", "edit") {
		t.Error("explicit deny must override role grants")
	}

	// Replacing the explicit rule for the same resource+right flips the
	// decision back.
	if err := user.SetRight("blog", "allow:edit"); err != nil {
		t.Fatalf("set right: %v", err)
	}
	if !sys.Authorized(user.Key(), "blog", "edit") {
		t.Error("explicit allow must replace the prior explicit deny")
	}

	trace := sys.Trace(user.Key(), "blog", "edit")
	if trace.DecidedBy == nil || trace.DecidedBy.Source != SourceExplicit {
		t.Errorf("deciding source = %+v, want explicit", trace.DecidedBy)
	}
}

func TestWildcardLateBinding(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"view", "edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if err := sys.Everyone(map[string]any{"blog": "*"}); err != nil {
		t.Fatalf("everyone: %v", err)
	}
	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	for _, right := range []string{"view", "edit"} {
		if !sys.Authorized(user.Key(), "blog", right) {
			t.Errorf("wildcard must grant %q", right)
		}
	}

	// A right declared after the wildcard rule is still covered: the
	// wildcard expands at evaluation time.
	if _, err := sys.CreateResource("blog", []string{"delete"}); err != nil {
		t.Fatalf("merge resource: %v", err)
	}
	if !sys.Authorized(user.Key(), "blog", "delete") {
		t.Error("wildcard must cover rights declared after the rule")
	}
}

func TestTransitiveGroupRoles(t *testing.T) {
	sys := blogSystem(t)

	if _, err := sys.CreateGroup("outer", "inner"); err != nil {
		t.Fatalf("create groups: %v", err)
	}
	outer, _ := sys.Group("outer")
	inner, _ := sys.Group("inner")
	if err := outer.Add("inner"); err != nil {
		t.Fatalf("nest group: %v", err)
	}
	if err := inner.Assign("editor"); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := user.Join("outer"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if !sys.Authorized(user.Key(), "blog", "edit") {
		t.Error("user must inherit roles through nested group membership")
	}
	trace := sys.Trace(user.Key(), "blog", "edit")
	if trace.DecidedBy == nil || trace.DecidedBy.Source != SourceGroup {
		t.Fatalf("deciding source = %+v, want group", trace.DecidedBy)
	}
	if trace.DecidedBy.Group != "inner" || trace.DecidedBy.Role != "editor" {
		t.Errorf("deciding rule = %+v, want role editor via group inner", trace.DecidedBy)
	}
}

// Two sources at the same precedence level disagreeing on the same right:
// the one applied last wins. Direct roles apply in assignment order.
func TestSameLevelConflictLastWins(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if _, err := sys.CreateRole("allower", map[string]any{"blog": []string{"allow:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := sys.CreateRole("denier", map[string]any{"blog": []string{"deny:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}

	first, err := sys.CreateUser("allower", "denier")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	second, err := sys.CreateUser("denier", "allower")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if sys.Authorized(first.Key(), "blog", "edit") {
		t.Error("deny assigned last must win")
	}
	if !sys.Authorized(second.Key(), "blog", "edit") {
		t.Error("allow assigned last must win")
	}
}

// Group-derived roles apply in traversal order: depth-first from the
// user's joined groups in join order, descending through nested member
// groups before moving to the next joined group, each group visited once.
// The rule applied last in that order wins its level.
func TestGroupTraversalOrder(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if _, err := sys.CreateRole("allower", map[string]any{"blog": []string{"allow:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := sys.CreateRole("denier", map[string]any{"blog": []string{"deny:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := sys.CreateGroup("allowers", "deniers"); err != nil {
		t.Fatalf("create groups: %v", err)
	}
	allowers, _ := sys.Group("allowers")
	deniers, _ := sys.Group("deniers")
	if err := allowers.Assign("allower"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := deniers.Assign("denier"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	first, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, group := range []string{"allowers", "deniers"} {
		if err := first.Join(group); err != nil {
			t.Fatalf("join %s: %v", group, err)
		}
	}
	if sys.Authorized(first.Key(), "blog", "edit") {
		t.Error("the group joined last must win")
	}
	trace := sys.Trace(first.Key(), "blog", "edit")
	if trace.DecidedBy == nil || trace.DecidedBy.Source != SourceGroup || trace.DecidedBy.Group != "deniers" {
		t.Errorf("deciding rule = %+v, want role denier via group deniers", trace.DecidedBy)
	}

	second, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, group := range []string{"deniers", "allowers"} {
		if err := second.Join(group); err != nil {
			t.Fatalf("join %s: %v", group, err)
		}
	}
	if !sys.Authorized(second.Key(), "blog", "edit") {
		t.Error("reversing join order must flip the decision")
	}

	// Depth-first: a nested group's role applies while its containing
	// group is visited, before the next joined group, so the next joined
	// group still decides.
	if _, err := sys.CreateGroup("outer"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	outer, _ := sys.Group("outer")
	if err := outer.Add("deniers"); err != nil {
		t.Fatalf("nest group: %v", err)
	}
	third, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, group := range []string{"outer", "allowers"} {
		if err := third.Join(group); err != nil {
			t.Fatalf("join %s: %v", group, err)
		}
	}
	if !sys.Authorized(third.Key(), "blog", "edit") {
		t.Error("a nested group's rule must not outrank a later joined group")
	}
	trace = sys.Trace(third.Key(), "blog", "edit")
	if trace.DecidedBy == nil || trace.DecidedBy.Group != "allowers" {
		t.Errorf("deciding rule = %+v, want role allower via group allowers", trace.DecidedBy)
	}
}

func TestSameLevelConflictWithinEntry(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	// Later token in one entry replaces the earlier one for the same right.
	if err := sys.Everyone(map[string]any{"blog": []string{"allow:edit", "deny:edit"}}); err != nil {
		t.Fatalf("everyone: %v", err)
	}
	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if sys.Authorized(user.Key(), "blog", "edit") {
		t.Error("the last rule in an entry must win")
	}
}

func TestDirectRoleOutranksGroupRole(t *testing.T) {
	sys := NewSystem()
	if _, err := sys.CreateResource("blog", []string{"edit"}); err != nil {
		t.Fatalf("create resource: %v", err)
	}
	if _, err := sys.CreateRole("allower", map[string]any{"blog": []string{"allow:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := sys.CreateRole("denier", map[string]any{"blog": []string{"deny:edit"}}); err != nil {
		t.Fatalf("create role: %v", err)
	}
	if _, err := sys.CreateGroup("staff"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	staff, _ := sys.Group("staff")
	if err := staff.Assign("allower"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	user, err := sys.CreateUser("denier")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := user.Join("staff"); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Group-derived allow, direct deny: the direct role is the higher
	// precedence level.
	if sys.Authorized(user.Key(), "blog", "edit") {
		t.Error("direct role must override a group-derived role")
	}
}

func TestTraceDegradesToOutcomes(t *testing.T) {
	sys := blogSystem(t)
	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.SetName("John Doe")

	cases := []struct {
		name     string
		user     string
		resource string
		right    string
		outcome  Outcome
	}{
		{"unknown resource", user.Key(), "wiki", "view", OutcomeUnknownResource},
		{"unknown right", user.Key(), "blog", "publish", OutcomeUnknownRight},
		{"unknown user", "nobody", "blog", "view", OutcomeUnknownUser},
		{"denied by rule", user.Key(), "blog", "edit", OutcomeDenied},
		{"allowed by rule", user.Key(), "blog", "view", OutcomeAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trace := sys.Trace(tc.user, tc.resource, tc.right)
			if trace.Outcome != tc.outcome {
				t.Errorf("outcome = %v, want %v", trace.Outcome, tc.outcome)
			}
			if trace.Description == "" {
				t.Error("trace must always carry a description")
			}
			if trace.Granted != (tc.outcome == OutcomeAllowed) {
				t.Errorf("granted = %v for outcome %v", trace.Granted, trace.Outcome)
			}
		})
	}
}

func TestTraceDescriptionNamesSource(t *testing.T) {
	sys := blogSystem(t)
	user, err := sys.CreateUser("editor")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.SetName("Almighty Blogmaster")

	trace := sys.Trace(user.Key(), "blog", "edit")
	for _, want := range []string{"Almighty Blogmaster", "granted", "edit", "blog", "editor"} {
		if !strings.Contains(trace.Description, want) {
			t.Errorf("description %q missing %q", trace.Description, want)
		}
	}
}

func TestTraceStepsInEvaluationOrder(t *testing.T) {
	sys := blogSystem(t)
	user, err := sys.CreateUser("editor")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := user.SetRight("blog", "deny:edit"); err != nil {
		t.Fatalf("set right: %v", err)
	}

	trace := sys.Trace(user.Key(), "blog", "edit")
	sources := make([]string, 0, len(trace.Steps))
	for _, step := range trace.Steps {
		sources = append(sources, step.Source)
	}
	want := []string{SourceEveryone, SourceRole, SourceExplicit}
	if len(sources) != len(want) {
		t.Fatalf("steps %v, want sources %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("step %d source = %q, want %q", i, sources[i], want[i])
		}
	}
	if trace.Granted {
		t.Error("explicit deny must decide")
	}
}

func TestTraceByDisplayName(t *testing.T) {
	sys := blogSystem(t)
	user, err := sys.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	user.SetName("John Doe")

	trace := sys.Trace("John Doe", "blog", "view")
	if !trace.Granted {
		t.Error("lookup by display name must resolve the user")
	}
	if trace.UserKey != user.Key() {
		t.Errorf("trace key = %q, want %q", trace.UserKey, user.Key())
	}
}

func TestDeletedResourceRulesAreInert(t *testing.T) {
	sys := blogSystem(t)
	user, err := sys.CreateUser("editor")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := sys.DeleteResource("blog"); err != nil {
		t.Fatalf("delete resource: %v", err)
	}

	// The everyone baseline and the editor role still reference "blog";
	// resolution reports an unknown resource instead of failing.
	trace := sys.Trace(user.Key(), "blog", "view")
	if trace.Outcome != OutcomeUnknownResource {
		t.Errorf("outcome = %v, want %v", trace.Outcome, OutcomeUnknownResource)
	}
	if trace.Granted {
		t.Error("deleted resource must deny")
	}
}
