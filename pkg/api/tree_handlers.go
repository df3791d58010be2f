package api

import (
	"net/http"

	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/httputil"
	"github.com/lunarjar/wishtree/pkg/trees"
)

func (s *Server) createTree(w http.ResponseWriter, r *http.Request) {
	userID := auth.CallerID(r.Context())
	if userID == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var input trees.CreateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	tree, err := s.trees.Create(r.Context(), userID, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, tree)
}

func (s *Server) listPublicTrees(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := httputil.ParsePagination(r, 20, 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	listed, err := s.trees.ListPublic(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, listed)
}

func (s *Server) listMyTrees(w http.ResponseWriter, r *http.Request) {
	userID := auth.CallerID(r.Context())
	if userID == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	listed, err := s.trees.ListMine(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, listed)
}

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	tree, err := s.trees.Get(r.Context(), auth.CallerID(r.Context()), treeID, inviteToken(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tree)
}

func (s *Server) getTreeBySlug(w http.ResponseWriter, r *http.Request) {
	slug, ok := httputil.ParsePathStringOrError(w, r, "slug")
	if !ok {
		return
	}

	tree, err := s.trees.GetBySlug(r.Context(), auth.CallerID(r.Context()), slug, inviteToken(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tree)
}

func (s *Server) updateTree(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var input trees.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	tree, err := s.trees.Update(r.Context(), auth.CallerID(r.Context()), treeID, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tree)
}

func (s *Server) deleteTree(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.trees.Delete(r.Context(), auth.CallerID(r.Context()), treeID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getTreePermissions(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	snapshot := s.trees.Permissions(r.Context(), auth.CallerID(r.Context()), treeID)
	httputil.WriteSuccess(w, snapshot)
}

func (s *Server) rotateInviteToken(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	tree, err := s.trees.RotateInviteToken(r.Context(), auth.CallerID(r.Context()), treeID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"invite_token": tree.InviteToken})
}

type collaboratorInput struct {
	Email string `json:"email"`
}

func (s *Server) addCollaborator(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var input collaboratorInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	tree, err := s.trees.AddCollaborator(r.Context(), auth.CallerID(r.Context()), treeID, input.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tree)
}

func (s *Server) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		httputil.WriteBadRequest(w, "missing email query parameter")
		return
	}

	tree, err := s.trees.RemoveCollaborator(r.Context(), auth.CallerID(r.Context()), treeID, email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, tree)
}
