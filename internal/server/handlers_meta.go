package server

import (
	"net/http"

	"mediad/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	version, err := s.store.SchemaVersion(r.Context())
	if err != nil {
		s.writeServiceError(w, r, storeFailure(err))
		return
	}

	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		DBPath:        s.dbPath,
		SchemaVersion: version,
		TotalFiles:    stats.TotalFiles,
		TotalBytes:    stats.TotalBytes,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := api.StatsResponse{
		TotalFiles: stats.TotalFiles,
		TotalBytes: stats.TotalBytes,
		ByBackend:  map[string]int64{},
		ByClass:    map[string]int64{},
	}
	for kind, count := range stats.ByBackend {
		resp.ByBackend[string(kind)] = count
	}
	for class, count := range stats.ByClass {
		resp.ByClass[string(class)] = count
	}

	s.writeJSON(w, http.StatusOK, resp)
}
