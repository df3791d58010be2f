package api

import (
	"net/http"

	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/httputil"
	"github.com/lunarjar/wishtree/pkg/wishes"
)

func (s *Server) listWishes(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	listed, err := s.wishes.List(r.Context(), auth.CallerID(r.Context()), treeID, inviteToken(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, listed)
}

func (s *Server) addWish(w http.ResponseWriter, r *http.Request) {
	treeID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var input wishes.AddInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	wish, err := s.wishes.Add(r.Context(), auth.CallerID(r.Context()), treeID, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, wish)
}

func (s *Server) editWish(w http.ResponseWriter, r *http.Request) {
	wishID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var input wishes.AddInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	wish, err := s.wishes.Edit(r.Context(), auth.CallerID(r.Context()), wishID, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, wish)
}

func (s *Server) deleteWish(w http.ResponseWriter, r *http.Request) {
	wishID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.wishes.Delete(r.Context(), auth.CallerID(r.Context()), wishID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
