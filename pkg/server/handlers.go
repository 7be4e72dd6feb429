package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	nerrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/auth"
	"github.com/vango-dev/storefront/pkg/routepath"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 * 1024

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, encodeState(s.nav.State(), s.nav.Current()))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, encodeRoutes(s.nav.Table()))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, routepath.ErrInvalidPath.WithDetail("malformed navigation request").Wrap(err))
		return
	}
	if req.Path == "" && req.Name == "" {
		writeError(w, http.StatusBadRequest, routepath.ErrInvalidPath.WithDetail("path or name is required"))
		return
	}

	commit, err := s.nav.Navigate(r.Context(), req.target())
	if err != nil {
		s.logger.Debug("navigation failed", "target", req.target().String(), "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, encodeCommit(commit))
}

type loginRequest struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Principal auth.Principal `json:"principal"`

	// Token is a fresh token for the same principal, valid for SessionTTL.
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, nerrors.Newf(nerrors.CategoryConfig, "sessions are not configured"))
		return
	}

	var req loginRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, nerrors.Newf(nerrors.CategoryNavigation, "a session token is required"))
		return
	}

	p, err := s.store.Login(s.tokens, req.Token)
	if err != nil {
		s.logger.Info("login rejected", "error", err)
		msg := "invalid session token"
		if errors.Is(err, auth.ErrSessionExpired) {
			msg = "session expired"
		}
		writeError(w, http.StatusUnauthorized, nerrors.Newf(nerrors.CategoryNavigation, "%s", msg))
		return
	}
	// Sliding session: the store and the client both move to the new expiry.
	token, err := s.tokens.Issue(p, s.config.SessionTTL)
	if err != nil {
		s.store.Clear()
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	p.ExpiresAtUnixMs = time.Now().Add(s.config.SessionTTL).UnixMilli()
	s.store.SetPrincipal(p)

	s.logger.Info("session started", "user", p.ID)
	writeJSON(w, http.StatusOK, loginResponse{Principal: p, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.hub.serve(conn)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
