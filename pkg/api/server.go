package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lunarjar/wishtree/pkg/httputil"
	"github.com/lunarjar/wishtree/pkg/invites"
	"github.com/lunarjar/wishtree/pkg/observability"
	"github.com/lunarjar/wishtree/pkg/trees"
	"github.com/lunarjar/wishtree/pkg/wishes"
)

// Server is the API server
type Server struct {
	router  *mux.Router
	trees   *trees.Service
	wishes  *wishes.Service
	invites *invites.Service
	logger  *observability.Logger
}

// NewServer creates the API server. Middlewares are applied to every route
// in the order given, outermost first.
func NewServer(
	treeService *trees.Service,
	wishService *wishes.Service,
	inviteService *invites.Service,
	logger *observability.Logger,
	middlewares ...mux.MiddlewareFunc,
) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		trees:   treeService,
		wishes:  wishService,
		invites: inviteService,
		logger:  logger,
	}

	for _, mw := range middlewares {
		s.router.Use(mw)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Tree routes
	api.HandleFunc("/trees", s.createTree).Methods("POST")
	api.HandleFunc("/trees", s.listPublicTrees).Methods("GET")
	api.HandleFunc("/trees/mine", s.listMyTrees).Methods("GET")
	api.HandleFunc("/trees/slug/{slug}", s.getTreeBySlug).Methods("GET")
	api.HandleFunc("/trees/{id}", s.getTree).Methods("GET")
	api.HandleFunc("/trees/{id}", s.updateTree).Methods("PATCH")
	api.HandleFunc("/trees/{id}", s.deleteTree).Methods("DELETE")
	api.HandleFunc("/trees/{id}/permissions", s.getTreePermissions).Methods("GET")
	api.HandleFunc("/trees/{id}/invite-token", s.rotateInviteToken).Methods("POST")
	api.HandleFunc("/trees/{id}/collaborators", s.addCollaborator).Methods("POST")
	api.HandleFunc("/trees/{id}/collaborators", s.removeCollaborator).Methods("DELETE")

	// Wish routes
	api.HandleFunc("/trees/{id}/wishes", s.listWishes).Methods("GET")
	api.HandleFunc("/trees/{id}/wishes", s.addWish).Methods("POST")
	api.HandleFunc("/wishes/{id}", s.editWish).Methods("PATCH")
	api.HandleFunc("/wishes/{id}", s.deleteWish).Methods("DELETE")

	// Invite code routes
	api.HandleFunc("/invite-codes", s.mintInviteCode).Methods("POST")
	api.HandleFunc("/invite-codes/validate", s.validateInviteCode).Methods("POST")
	api.HandleFunc("/invite-codes/consume", s.consumeInviteCode).Methods("POST")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// inviteToken extracts the optional invite link token from the request
func inviteToken(r *http.Request) string {
	return r.URL.Query().Get("invite_token")
}

// writeServiceError maps service errors onto HTTP statuses
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trees.ErrNotFound) || errors.Is(err, wishes.ErrNotFound):
		httputil.WriteNotFoundError(w, "not found")
	case errors.Is(err, trees.ErrForbidden) || errors.Is(err, wishes.ErrForbidden) || errors.Is(err, invites.ErrForbidden):
		httputil.WriteForbidden(w, "forbidden")
	case errors.Is(err, trees.ErrValidation) || errors.Is(err, wishes.ErrValidation):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, invites.ErrInvalidCode):
		httputil.WriteNotFoundError(w, invites.ErrInvalidCode.Error())
	case errors.Is(err, invites.ErrExhausted):
		httputil.WriteConflict(w, invites.ErrExhausted.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Request failed")
		httputil.WriteInternalError(w, errors.New("internal error"))
	}
}
