package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"mediad/internal/auth"
)

// withAuth resolves the caller's identity from the Authorization header and
// attaches it to the request context. Requests without credentials proceed
// as anonymous; presented-but-invalid credentials are rejected outright.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		requester, err := s.authenticate(r, token)
		if err != nil {
			s.writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithRequester(r.Context(), requester)))
	})
}

func (s *Server) authenticate(r *http.Request, token string) (Requester, error) {
	if s.adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1 {
		return Requester{Name: "admin", Privileged: true, Authenticated: true}, nil
	}

	userID, secret, err := auth.ParseKey(token)
	if err != nil {
		return Requester{}, unauthorized(fmt.Errorf("invalid api key"))
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		return Requester{}, storeFailure(err)
	}
	if user == nil || !auth.VerifySecret(user.KeyHash, secret) {
		return Requester{}, unauthorized(fmt.Errorf("invalid api key"))
	}
	if user.Disabled {
		return Requester{}, unauthorized(fmt.Errorf("account disabled"))
	}

	return Requester{
		UserID:        user.ID,
		Name:          user.Name,
		Privileged:    user.Privileged,
		Authenticated: true,
	}, nil
}

// requireAuth rejects anonymous callers.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (Requester, bool) {
	requester := requesterFromContext(r.Context())
	if !requester.Authenticated {
		s.writeError(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return Requester{}, false
	}
	return requester, true
}

// requirePrivileged rejects everyone but privileged callers. Unknown
// identities get 401, known-but-unprivileged ones 403.
func (s *Server) requirePrivileged(w http.ResponseWriter, r *http.Request) (Requester, bool) {
	requester := requesterFromContext(r.Context())
	if !requester.Authenticated {
		s.writeError(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
		return Requester{}, false
	}
	if !requester.Privileged {
		s.writeError(w, r, http.StatusForbidden, forbidden(fmt.Errorf("privileged access required")))
		return Requester{}, false
	}
	return requester, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
