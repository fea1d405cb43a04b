package main

import (
	"github.com/gatewarden/gatewarden/pkg/iam"
)

// seedDemo populates the graph with the demo dataset: a small portal with a
// home page, a blog, a permissions screen, and an admin settings screen,
// plus a handful of users and groups exercising every rule source.
func seedDemo(sys *iam.System) error {
	if err := sys.CreateResources(map[string][]string{
		"home":           {"view"},
		"blog":           {"view", "edit"},
		"permissions":    {"view"},
		"admin_settings": {"view"},
	}); err != nil {
		return err
	}

	if err := sys.Everyone(map[string]any{
		"home":           "*",
		"blog":           []string{"view", "deny:edit"},
		"permissions":    "*",
		"admin_settings": []string{"deny:view"},
	}); err != nil {
		return err
	}

	if _, err := sys.CreateRole("administrator_role", map[string]any{
		"blog":           []string{"allow:edit"},
		"permissions":    []string{"allow:view"},
		"admin_settings": []string{"allow:view"},
	}); err != nil {
		return err
	}
	if _, err := sys.CreateRole("blog_role", map[string]any{
		"blog": "*",
	}); err != nil {
		return err
	}
	if _, err := sys.CreateRole("admin_settings_role", map[string]any{
		"admin_settings": "*",
	}); err != nil {
		return err
	}

	basicUser, err := sys.CreateUser()
	if err != nil {
		return err
	}
	basicUser.SetName("John Doe")

	basicUser2, err := sys.CreateUser()
	if err != nil {
		return err
	}
	basicUser2.SetName("Jim Lin")

	adminUser, err := sys.CreateUser("administrator_role")
	if err != nil {
		return err
	}
	adminUser.SetName("Almighty Blogmaster")

	adminGroups, err := sys.CreateGroup("administrator")
	if err != nil {
		return err
	}
	adminGroup := adminGroups[0]
	if _, err := sys.CreateGroup("writer", "reader"); err != nil {
		return err
	}

	writer, err := sys.Group("writer")
	if err != nil {
		return err
	}
	if err := writer.Add("reader", "administrator"); err != nil {
		return err
	}

	if err := adminGroup.Assign("administrator_role"); err != nil {
		return err
	}
	if err := adminUser.Join("administrator"); err != nil {
		return err
	}

	userGroups, err := sys.CreateGroup("User")
	if err != nil {
		return err
	}
	if err := userGroups[0].Assign("blog_role"); err != nil {
		return err
	}
	return basicUser2.Join("User")
}
