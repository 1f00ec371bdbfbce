package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Files collection.
	mux.HandleFunc("POST /v1/files", s.handleUploadFile)
	mux.HandleFunc("GET /v1/files", s.handleListFiles)

	// Single file.
	mux.HandleFunc("GET /v1/files/{reference}", s.handleGetFile)
	mux.HandleFunc("PATCH /v1/files/{reference}", s.handleUpdateFile)
	mux.HandleFunc("DELETE /v1/files/{reference}", s.handleDeleteFile)

	// File content.
	mux.HandleFunc("GET /v1/files/{reference}/content", s.handleFileContent)
	mux.HandleFunc("PUT /v1/files/{reference}/content", s.handleReplaceContent)

	// Processing.
	mux.HandleFunc("POST /v1/files/{reference}/reprocess", s.handleReprocessFile)

	// Aggregates.
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	// Admin.
	mux.HandleFunc("POST /v1/admin/users", s.handleAdminCreateUser)
	mux.HandleFunc("GET /v1/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("PATCH /v1/admin/users/{name}", s.handleAdminSetUserDisabled)

	return mux
}
