// Package adminapi exposes the administrative and query surface of the
// access-control graph as a JSON API. It is a thin consumer: every endpoint
// maps one-to-one onto a graph operation, and decision endpoints always
// answer with a descriptive JSON body, even for unknown users or resources.
package adminapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/gatewarden/gatewarden/pkg/iam"
	"github.com/gatewarden/gatewarden/pkg/logging"
	"github.com/gatewarden/gatewarden/pkg/rules"
)

// Server wires HTTP endpoints to a graph.
type Server struct {
	sys *iam.System
}

// New constructs a Server instance.
func New(sys *iam.System) *Server {
	return &Server{sys: sys}
}

// Router returns the mounted API router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	s.MountRoutes(r)
	return r
}

// MountRoutes registers all API routes on the provided router.
func (s *Server) MountRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/user/authorized", s.handleAuthorized)
		r.Post("/user/trace", s.handleTrace)
		r.Get("/iam-data", s.handleDump)

		r.Post("/resources", s.handleCreateResources)
		r.Post("/everyone", s.handleEveryone)
		r.Post("/roles", s.handleCreateRole)
		r.Post("/users", s.handleCreateUser)
		r.Post("/groups", s.handleCreateGroups)

		r.Post("/user/set-right", s.handleSetRight)
		r.Post("/user/join", s.handleJoin)
		r.Post("/user/assign", s.handleAssign)
		r.Post("/group/assign-role", s.handleGroupAssign)
		r.Post("/group/revoke-role", s.handleGroupRevoke)
		r.Post("/group/add-member", s.handleGroupAdd)
	})
}

type decisionRequest struct {
	UserName   string `json:"userName"`
	Resource   string `json:"resource"`
	Permission string `json:"permission"`
}

func (s *Server) handleAuthorized(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	trace := s.sys.Trace(req.UserName, req.Resource, req.Permission)
	logging.Audit.LogDecision(req.UserName, req.Resource, req.Permission, trace.Granted, decidingSource(trace))
	s.respond(w, http.StatusOK, map[string]any{"data": trace.Granted})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	trace := s.sys.Trace(req.UserName, req.Resource, req.Permission)
	logging.Audit.LogDecision(req.UserName, req.Resource, req.Permission, trace.Granted, decidingSource(trace))
	s.respond(w, http.StatusOK, map[string]any{"data": trace})
}

func (s *Server) handleCreateResources(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Resources map[string][]string `json:"resources"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.sys.CreateResources(req.Resources); err != nil {
		s.fail(w, "CREATE_RESOURCES", err)
		return
	}
	logging.Audit.LogAdmin("CREATE_RESOURCES", "success", "count", len(req.Resources))
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleEveryone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rules map[string]any `json:"rules"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.sys.Everyone(req.Rules); err != nil {
		s.fail(w, "SET_EVERYONE", err)
		return
	}
	logging.Audit.LogAdmin("SET_EVERYONE", "success", "resources", len(req.Rules))
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Rights      map[string]any `json:"rights"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	role, err := s.sys.CreateRole(req.Name, req.Rights)
	if err != nil {
		s.fail(w, "CREATE_ROLE", err)
		return
	}
	if req.Description != "" {
		role.SetDescription(req.Description)
	}
	logging.Audit.LogAdmin("CREATE_ROLE", "success", "role", req.Name)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string   `json:"name"`
		Roles []string `json:"roles"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.sys.CreateUser(req.Roles...)
	if err != nil {
		s.fail(w, "CREATE_USER", err)
		return
	}
	if req.Name != "" {
		user.SetName(req.Name)
	}
	logging.Audit.LogAdmin("CREATE_USER", "success", "key", user.Key(), "name", req.Name)
	s.respond(w, http.StatusOK, map[string]any{"success": true, "key": user.Key()})
}

func (s *Server) handleCreateGroups(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Names []string `json:"names"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.sys.CreateGroup(req.Names...); err != nil {
		s.fail(w, "CREATE_GROUPS", err)
		return
	}
	logging.Audit.LogAdmin("CREATE_GROUPS", "success", "count", len(req.Names))
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSetRight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserName string `json:"userName"`
		Resource string `json:"resource"`
		Right    string `json:"right"`
		Value    string `json:"value"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.sys.FindUser(req.UserName)
	if err != nil {
		s.fail(w, "SET_RIGHT", err)
		return
	}
	if err := user.SetRight(req.Resource, req.Value+":"+req.Right); err != nil {
		s.fail(w, "SET_RIGHT", err)
		return
	}
	logging.Audit.LogAdmin("SET_RIGHT", "success", "user", req.UserName, "resource", req.Resource, "right", req.Right, "value", req.Value)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User  string `json:"user"`
		Group string `json:"group"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.sys.FindUser(req.User)
	if err != nil {
		s.fail(w, "JOIN_GROUP", err)
		return
	}
	if err := user.Join(req.Group); err != nil {
		s.fail(w, "JOIN_GROUP", err)
		return
	}
	logging.Audit.LogAdmin("JOIN_GROUP", "success", "user", req.User, "group", req.Group)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User string `json:"user"`
		Role string `json:"role"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.sys.FindUser(req.User)
	if err != nil {
		s.fail(w, "ASSIGN_ROLE", err)
		return
	}
	if err := user.Assign(req.Role); err != nil {
		s.fail(w, "ASSIGN_ROLE", err)
		return
	}
	logging.Audit.LogAdmin("ASSIGN_ROLE", "success", "user", req.User, "role", req.Role)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGroupAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group string `json:"group"`
		Role  string `json:"role"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	group, err := s.sys.Group(req.Group)
	if err != nil {
		s.fail(w, "GROUP_ASSIGN_ROLE", err)
		return
	}
	if err := group.Assign(req.Role); err != nil {
		s.fail(w, "GROUP_ASSIGN_ROLE", err)
		return
	}
	logging.Audit.LogAdmin("GROUP_ASSIGN_ROLE", "success", "group", req.Group, "role", req.Role)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGroupRevoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group string `json:"group"`
		Role  string `json:"role"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	group, err := s.sys.Group(req.Group)
	if err != nil {
		s.fail(w, "GROUP_REVOKE_ROLE", err)
		return
	}
	group.Revoke(req.Role)
	logging.Audit.LogAdmin("GROUP_REVOKE_ROLE", "success", "group", req.Group, "role", req.Role)
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGroupAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group   string   `json:"group"`
		Members []string `json:"members"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	group, err := s.sys.Group(req.Group)
	if err != nil {
		s.fail(w, "GROUP_ADD_MEMBER", err)
		return
	}
	if err := group.Add(req.Members...); err != nil {
		s.fail(w, "GROUP_ADD_MEMBER", err)
		return
	}
	logging.Audit.LogAdmin("GROUP_ADD_MEMBER", "success", "group", req.Group, "members", len(req.Members))
	s.respond(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.App.Error("Failed to encode response", "error", err)
	}
}

// fail maps domain errors onto HTTP status codes and records the failed
// mutation in the audit log.
func (s *Server) fail(w http.ResponseWriter, operation string, err error) {
	logging.Audit.LogAdmin(operation, "error", "error", err)

	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, iam.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, rules.ErrInvalidRule):
		statusCode = http.StatusBadRequest
	case errors.Is(err, iam.ErrCycle):
		statusCode = http.StatusConflict
	default:
		logging.App.Error("Unexpected API error", "operation", operation, "error", err)
	}
	s.respond(w, statusCode, map[string]any{"error": err.Error()})
}

func decidingSource(t iam.Trace) string {
	if t.DecidedBy == nil {
		return string(t.Outcome)
	}
	return t.DecidedBy.Source
}
