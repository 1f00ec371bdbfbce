package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"mediad/internal/api"
	"mediad/internal/auth"
)

func (s *Server) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrivileged(w, r); !ok {
		return
	}

	var req api.AdminUserCreateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, r, http.StatusBadRequest, validationError(ErrCodeMissingRequired, "name", "a user name is required"))
		return
	}

	// CreateUser assigns the user id, so the secret is minted first and
	// the full key assembled once the id is known.
	secret, hash, err := auth.GenerateSecret()
	if err != nil {
		s.writeServiceError(w, r, internalError(err))
		return
	}

	created, err := s.store.CreateUser(r.Context(), req.Name, hash, req.Privileged, time.Now().UTC())
	if err != nil {
		if isUniqueConstraint(err) {
			s.writeError(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("user name already exists")))
			return
		}
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	key := created.ID + "." + secret

	s.writeJSON(w, http.StatusCreated, api.AdminUserCreateResponse{
		User:   toAPIAdminUser(*created),
		APIKey: key,
	})
}

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrivileged(w, r); !ok {
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}

	resp := make([]api.AdminUser, 0, len(users))
	for _, user := range users {
		resp = append(resp, toAPIAdminUser(user))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminSetUserDisabled(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requirePrivileged(w, r); !ok {
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		s.writeError(w, r, http.StatusBadRequest, validationError(ErrCodeMissingRequired, "name", "a user name is required"))
		return
	}

	var req api.AdminUserSetDisabledRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updated, err := s.store.SetUserDisabled(r.Context(), name, req.Disabled, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}
	if !updated {
		s.writeError(w, r, http.StatusNotFound, notFoundCode(fmt.Errorf("user not found"), ErrCodeUserNotFound))
		return
	}

	s.writeJSON(w, http.StatusOK, api.AdminUserSetDisabledResponse{
		Name:     strings.ToLower(strings.TrimSpace(name)),
		Disabled: req.Disabled,
	})
}

func isUniqueConstraint(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "constraint failed")
}
