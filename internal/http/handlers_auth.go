package http

import (
	"net/http"

	"ledger/internal/auth"
	"ledger/internal/log"
	"ledger/internal/metrics"
)

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	LoginPath     string `json:"loginPath"`
}

// handleSession reports whether the caller holds a valid session cookie.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Body(sessionResponse{
			Authenticated: s.gate.IsAuthenticated(auth.CookieHeader(r)),
			LoginPath:     s.loginPath,
		}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	req, err := ParseLoginRequest(w, r)
	if err != nil {
		logger.WarnContext(ctx, "Login request rejected", log.FieldError, err, log.FieldOperation, log.OpLogin)
		BadRequestError(ErrInvalidBody.Error()).Write(w)
		return
	}

	scheme := s.scheme(r)
	result := s.gate.Login(req.Email, req.Password, scheme)
	metrics.RecordLogin(result.OK)
	if !result.OK {
		logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldEmail, req.Email,
			log.FieldScheme, scheme)
		FailureResponse(http.StatusUnauthorized).Write(w)
		return
	}

	logger.InfoContext(ctx, "Login succeeded", log.FieldOperation, log.OpLogin, log.FieldScheme, scheme)
	SuccessResponse().SetCookie(result.SetCookie).Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	result := s.gate.Logout(s.scheme(r))
	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).
		InfoContext(r.Context(), "Logout", log.FieldOperation, log.OpLogout)
	SuccessResponse().SetCookie(result.SetCookie).Write(w)
}
