package adminapi

import (
	"net/http"

	"github.com/gatewarden/gatewarden/pkg/iam"
	"github.com/gatewarden/gatewarden/pkg/rules"
)

type rightDTO struct {
	Right   string `json:"right"`
	Granted bool   `json:"granted"`
}

type userDTO struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
	Groups []string `json:"groups"`
}

type roleDTO struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Rights      map[string][]rightDTO `json:"rights"`
}

type memberDTO struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type groupDTO struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Roles       []string    `json:"roles"`
	Members     []memberDTO `json:"members"`
}

type resourceDTO struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Rights      []rightDTO `json:"rights"`
}

type dumpDTO struct {
	Users     []userDTO     `json:"users"`
	Roles     []roleDTO     `json:"roles"`
	Groups    []groupDTO    `json:"groups"`
	Resources []resourceDTO `json:"resources"`
}

// handleDump returns the whole graph in display form: every rule as a
// {right, granted} pair, resource rights carrying the everyone-resolved
// grant state.
func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	dump := dumpDTO{
		Users:     []userDTO{},
		Roles:     []roleDTO{},
		Groups:    []groupDTO{},
		Resources: []resourceDTO{},
	}

	for _, user := range s.sys.Users() {
		dump.Users = append(dump.Users, userDTO{
			Key:    user.Key(),
			Name:   user.Name(),
			Roles:  user.Roles(),
			Groups: user.Groups(),
		})
	}
	for _, role := range s.sys.Roles() {
		dto := roleDTO{
			Name:        role.Name(),
			Description: role.Description(),
			Rights:      make(map[string][]rightDTO),
		}
		for resourceName, entry := range role.Rules() {
			dto.Rights[resourceName] = entryDTO(entry)
		}
		dump.Roles = append(dump.Roles, dto)
	}
	for _, group := range s.sys.Groups() {
		dto := groupDTO{
			Name:        group.Name(),
			Description: group.Description(),
			Roles:       group.Roles(),
			Members:     []memberDTO{},
		}
		for _, member := range group.Members() {
			dto.Members = append(dto.Members, memberDTO{
				Name: s.memberName(member),
				Kind: string(member.Kind),
			})
		}
		dump.Groups = append(dump.Groups, dto)
	}
	for _, resource := range s.sys.Resources() {
		dump.Resources = append(dump.Resources, resourceDTO{
			Name:        resource.Name(),
			Description: resource.Description(),
			Rights:      entryDTO(resource.ResolvedRights()),
		})
	}

	s.respond(w, http.StatusOK, dump)
}

// memberName resolves a user member's display name; groups are referenced
// by name already.
func (s *Server) memberName(member iam.Member) string {
	if member.Kind == iam.MemberUser {
		if user, err := s.sys.User(member.Ref); err == nil && user.Name() != "" {
			return user.Name()
		}
	}
	return member.Ref
}

func entryDTO(entry []rules.Right) []rightDTO {
	out := make([]rightDTO, 0, len(entry))
	for _, rule := range entry {
		out = append(out, rightDTO{Right: rule.Name, Granted: rule.Granted})
	}
	return out
}
