package api

import (
	"net/http"

	"github.com/lunarjar/wishtree/pkg/auth"
	"github.com/lunarjar/wishtree/pkg/httputil"
)

type mintInput struct {
	MaxUses int `json:"max_uses"`
}

func (s *Server) mintInviteCode(w http.ResponseWriter, r *http.Request) {
	userID := auth.CallerID(r.Context())
	if userID == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var input mintInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	code, err := s.invites.Mint(r.Context(), userID, input.MaxUses)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, code)
}

type codeInput struct {
	Code string `json:"code"`
}

func (s *Server) validateInviteCode(w http.ResponseWriter, r *http.Request) {
	var input codeInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	if err := s.invites.Validate(r.Context(), input.Code); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"valid": true})
}

func (s *Server) consumeInviteCode(w http.ResponseWriter, r *http.Request) {
	userID := auth.CallerID(r.Context())
	if userID == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var input codeInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	if err := s.invites.Consume(r.Context(), input.Code, userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]bool{"consumed": true})
}
