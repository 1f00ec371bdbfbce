package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mediad/internal/api"
	"mediad/internal/models"
)

const jsonMaxBody = 1 << 20

func toAPIFile(file models.StoredFile) api.FileResponse {
	return api.FileResponse{
		Reference:        file.Reference,
		Name:             file.Name,
		MediaType:        file.MediaType,
		Class:            string(file.Class()),
		Backend:          string(file.Backend),
		URL:              file.URL,
		SizeBytes:        file.SizeBytes,
		OwnerID:          file.OwnerID,
		Public:           file.Public,
		Description:      file.Description,
		CreatedAt:        file.CreatedAt,
		UpdatedAt:        file.UpdatedAt,
		DurationSeconds:  file.DurationSeconds,
		Duration:         models.FormatDuration(file.DurationSeconds),
		ProcessingStatus: string(file.ProcessingStatus),
		ProcessingErrors: file.ProcessingErrors,
		PlayCount:        file.PlayCount,
		DownloadCount:    file.DownloadCount,
	}
}

func toAPIAdminUser(user models.User) api.AdminUser {
	return api.AdminUser{
		ID:         user.ID,
		Name:       user.Name,
		Privileged: user.Privileged,
		Disabled:   user.Disabled,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// decodeJSON reads a bounded JSON request body, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, jsonMaxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		s.writeError(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		s.writeError(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("request body must contain a single JSON object")))
		return false
	}
	return true
}
