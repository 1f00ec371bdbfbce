package server

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"mediad/internal/api"
	"mediad/internal/models"
	"mediad/internal/store"
)

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.acquireUploadSlot(w, r) {
		return
	}
	defer s.releaseUploadSlot()

	req, cleanup, err := s.parseUploadForm(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer cleanup()

	file, err := s.service.Upload(r.Context(), requester, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toAPIFile(*file))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	requester := requesterFromContext(r.Context())

	filter := store.FileFilter{
		MediaType: strings.TrimSpace(r.URL.Query().Get("type")),
		OwnerID:   strings.TrimSpace(r.URL.Query().Get("owner")),
	}
	if backend := strings.TrimSpace(r.URL.Query().Get("backend")); backend != "" {
		kind, err := models.ParseBackendKind(backend)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, badRequest(err))
			return
		}
		filter.Backend = kind
	}
	if class := strings.TrimSpace(r.URL.Query().Get("class")); class != "" {
		filter.Class = models.MediaClass(strings.ToLower(class))
	}

	files, err := s.service.List(r.Context(), requester, filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]api.FileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, toAPIFile(file))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	requester := requesterFromContext(r.Context())
	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	file, err := s.service.Get(r.Context(), requester, reference)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAPIFile(*file))
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var req api.FileUpdateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Description == nil && req.Public == nil {
		s.writeError(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("nothing to update")))
		return
	}

	file, err := s.service.UpdateMeta(r.Context(), requester, reference, req.Description, req.Public)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAPIFile(*file))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	file, backendDeleted, err := s.service.Delete(r.Context(), requester, reference)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.FileDeleteResponse{
		Reference:      file.Reference,
		BackendDeleted: backendDeleted,
	})
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	requester := requesterFromContext(r.Context())
	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	download := false
	if raw := strings.TrimSpace(r.URL.Query().Get("download")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, badRequest(fmt.Errorf("invalid download flag")))
			return
		}
		download = parsed
	}

	file, rc, err := s.service.OpenContent(r.Context(), requester, reference)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.service.RecordAccess(r.Context(), file, download)

	// Remote-stored content is served by the object store itself.
	if rc == nil {
		http.Redirect(w, r, file.URL, http.StatusFound)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", file.MediaType)
	if file.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	}
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.Name}))

	if _, err := io.Copy(w, rc); err != nil {
		s.log().Debug("stream content interrupted", "reference", reference, "error", err)
	}
}

func (s *Server) handleReplaceContent(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.acquireUploadSlot(w, r) {
		return
	}
	defer s.releaseUploadSlot()

	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	req, cleanup, err := s.parseUploadForm(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer cleanup()

	file, err := s.service.ReplaceContent(r.Context(), requester, reference, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toAPIFile(*file))
}

func (s *Server) handleReprocessFile(w http.ResponseWriter, r *http.Request) {
	requester, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	reference, err := pathReference(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	file, err := s.service.Reprocess(r.Context(), requester, reference)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, api.ReprocessResponse{
		Reference:        file.Reference,
		ProcessingStatus: string(models.ProcessingPending),
	})
}

// parseUploadForm extracts the file part and its metadata fields from a
// multipart request. The returned cleanup closes the part and drops any
// temp files the multipart reader spilled to disk.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) (UploadRequest, func(), error) {
	var zero UploadRequest
	noop := func() {}

	if s.maxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxRequestBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return zero, noop, badRequest(fmt.Errorf("multipart form required: %w", err))
	}

	// Uploads are public unless the form says otherwise.
	req := UploadRequest{DeclaredSize: r.ContentLength, Public: true}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return zero, noop, badRequest(fmt.Errorf("read multipart form: %w", err))
		}

		switch part.FormName() {
		case "file":
			req.Name = part.FileName()
			if req.MediaType == "" {
				if declared := part.Header.Get("Content-Type"); declared != "" {
					req.MediaType = declared
				}
			}
			req.Content = part
			// The file part must stream last; fields after it would
			// require buffering the payload.
			return req, func() { _ = part.Close() }, nil
		case "media_type", "description", "public":
			value, err := readFormValue(part)
			if err != nil {
				return zero, noop, badRequest(err)
			}
			switch part.FormName() {
			case "media_type":
				req.MediaType = value
			case "description":
				req.Description = value
			case "public":
				parsed, err := strconv.ParseBool(value)
				if err != nil {
					return zero, noop, validationError(ErrCodeInvalidArgument, "public", "must be true or false")
				}
				req.Public = parsed
			}
		default:
			_ = part.Close()
		}
	}

	return zero, noop, validationError(ErrCodeMissingRequired, "file", "a file part is required")
}

func readFormValue(part io.ReadCloser) (string, error) {
	defer part.Close()
	value, err := io.ReadAll(io.LimitReader(part, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read form field: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}
