package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mediad/internal/models"
	"mediad/internal/policy"
	"mediad/internal/storage"
	"mediad/internal/store"
)

var errPayloadTooLarge = errors.New("payload exceeds size limit")

// Dispatcher queues derived-metadata extraction for a stored file.
type Dispatcher interface {
	Dispatch(ctx context.Context, reference string) error
}

// FileService orchestrates uploads, reads and deletes across the catalog
// and the blob backends. The registry row is written only after a backend
// write is confirmed; a failed registry write triggers a compensating
// backend delete.
type FileService struct {
	store      *store.Store
	backends   map[models.BackendKind]storage.Backend
	policy     *policy.Policy
	dispatcher Dispatcher
	logger     *slog.Logger

	maxUploadBytes      int64
	audioMaxUploadBytes int64
}

// FileServiceOptions parameterizes a FileService.
type FileServiceOptions struct {
	Policy              *policy.Policy
	Dispatcher          Dispatcher
	Logger              *slog.Logger
	MaxUploadBytes      int64
	AudioMaxUploadBytes int64
}

// NewFileService constructs a FileService over a registry and backends.
func NewFileService(registry *store.Store, backends map[models.BackendKind]storage.Backend, opts FileServiceOptions) *FileService {
	if opts.Policy == nil {
		opts.Policy = policy.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 * 1024 * 1024
	}
	if opts.AudioMaxUploadBytes < opts.MaxUploadBytes {
		opts.AudioMaxUploadBytes = opts.MaxUploadBytes
	}
	return &FileService{
		store:               registry,
		backends:            backends,
		policy:              opts.Policy,
		dispatcher:          opts.Dispatcher,
		logger:              opts.Logger,
		maxUploadBytes:      opts.MaxUploadBytes,
		audioMaxUploadBytes: opts.AudioMaxUploadBytes,
	}
}

// UploadRequest is one incoming upload.
type UploadRequest struct {
	Name         string
	MediaType    string
	Description  string
	Public       bool
	DeclaredSize int64
	Content      io.Reader
}

// Upload validates, stores and catalogues one upload, then queues audio
// payloads for duration extraction.
func (s *FileService) Upload(ctx context.Context, requester Requester, req UploadRequest) (*models.StoredFile, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError(ErrCodeMissingRequired, "file", "a file is required")
	}
	if req.Content == nil {
		return nil, validationError(ErrCodeMissingRequired, "file", "a file is required")
	}

	mediaType := s.policy.ResolveMediaType(req.MediaType, name)
	if !s.policy.Allowed(mediaType) {
		return nil, validationError(ErrCodeMediaTypeNotAllowed, "media_type", fmt.Sprintf("media type %q is not allowed", mediaType))
	}

	limit := s.uploadLimit(mediaType)
	if req.DeclaredSize > limit {
		return nil, fileTooLarge(mediaType, limit)
	}

	backend, err := s.backendFor(storage.Route(mediaType))
	if err != nil {
		return nil, err
	}

	stored, err := backend.Store(ctx, capReader(req.Content, limit), name)
	if err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			return nil, fileTooLarge(mediaType, limit)
		}
		return nil, backendFailure(fmt.Errorf("store %s: %w", name, err))
	}

	reference, err := store.GenerateFileReference(s.store.FileExists)
	if err != nil {
		s.compensate(backend, stored.Location, err)
		return nil, storeFailure(err)
	}

	now := time.Now().UTC()
	file := &models.StoredFile{
		Reference:   reference,
		Name:        name,
		MediaType:   mediaType,
		Backend:     backend.Kind(),
		Location:    stored.Location,
		URL:         stored.URL,
		SizeBytes:   stored.SizeBytes,
		OwnerID:     requester.UserID,
		Public:      req.Public,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if file.IsAudio() {
		file.ProcessingStatus = models.ProcessingPending
	}

	if err := s.store.CreateFile(ctx, file); err != nil {
		s.compensate(backend, stored.Location, err)
		return nil, storeFailure(fmt.Errorf("catalog %s: %w", name, err))
	}

	s.dispatchIfAudio(ctx, file)

	s.logger.Info("file stored",
		"reference", file.Reference, "backend", file.Backend, "media_type", file.MediaType,
		"size_bytes", file.SizeBytes, "owner", file.OwnerID)
	return file, nil
}

// Get returns one catalogued file, applying the access gate.
func (s *FileService) Get(ctx context.Context, requester Requester, reference string) (*models.StoredFile, error) {
	file, err := s.store.GetFile(ctx, reference)
	if err != nil {
		return nil, storeFailure(err)
	}
	if file == nil {
		return nil, notFound(fmt.Errorf("file %s not found", reference))
	}
	if !requester.CanView(file.Public, file.OwnerID) {
		return nil, forbidden(fmt.Errorf("file %s is private", reference))
	}
	return file, nil
}

// List returns catalogued files visible to the requester.
func (s *FileService) List(ctx context.Context, requester Requester, filter store.FileFilter) ([]models.StoredFile, error) {
	filter.ViewerID = requester.UserID
	filter.ViewerPrivileged = requester.Privileged
	files, err := s.store.ListFiles(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return files, nil
}

// UpdateMeta patches description and visibility.
func (s *FileService) UpdateMeta(ctx context.Context, requester Requester, reference string, description *string, public *bool) (*models.StoredFile, error) {
	file, err := s.Get(ctx, requester, reference)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(file.OwnerID) {
		return nil, forbidden(fmt.Errorf("file %s is not yours to modify", reference))
	}

	if err := s.store.UpdateFileMeta(ctx, reference, description, public); err != nil {
		return nil, storeFailure(err)
	}
	updated, err := s.store.GetFile(ctx, reference)
	if err != nil {
		return nil, storeFailure(err)
	}
	return updated, nil
}

// Delete removes a file. The catalog row goes away even when the backend
// fails to release the bytes; the second return reports whether the
// backend actually deleted anything.
func (s *FileService) Delete(ctx context.Context, requester Requester, reference string) (*models.StoredFile, bool, error) {
	file, err := s.Get(ctx, requester, reference)
	if err != nil {
		return nil, false, err
	}
	if !requester.CanManage(file.OwnerID) {
		return nil, false, forbidden(fmt.Errorf("file %s is not yours to delete", reference))
	}

	backendDeleted := false
	backend, err := s.backendFor(file.Backend)
	if err == nil {
		backendDeleted, err = backend.Delete(ctx, file.Location)
		if err != nil {
			s.logger.Warn("backend delete failed, removing catalog entry anyway",
				"reference", reference, "backend", file.Backend, "location", file.Location, "error", err)
			backendDeleted = false
		}
	} else {
		s.logger.Warn("no backend for stored file", "reference", reference, "backend", file.Backend)
	}

	if _, err := s.store.DeleteFile(ctx, reference); err != nil {
		return nil, backendDeleted, storeFailure(err)
	}

	s.logger.Info("file deleted",
		"reference", reference, "backend", file.Backend, "backend_deleted", backendDeleted)
	return file, backendDeleted, nil
}

// ReplaceContent stores replacement bytes and repoints the catalog row.
// The superseded object is released best-effort once the row is updated;
// audio replacements are re-queued for extraction.
func (s *FileService) ReplaceContent(ctx context.Context, requester Requester, reference string, req UploadRequest) (*models.StoredFile, error) {
	file, err := s.Get(ctx, requester, reference)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(file.OwnerID) {
		return nil, forbidden(fmt.Errorf("file %s is not yours to modify", reference))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = file.Name
	}
	mediaType := s.policy.ResolveMediaType(req.MediaType, name)
	if !s.policy.Allowed(mediaType) {
		return nil, validationError(ErrCodeMediaTypeNotAllowed, "media_type", fmt.Sprintf("media type %q is not allowed", mediaType))
	}

	limit := s.uploadLimit(mediaType)
	if req.DeclaredSize > limit {
		return nil, fileTooLarge(mediaType, limit)
	}

	backend, err := s.backendFor(storage.Route(mediaType))
	if err != nil {
		return nil, err
	}

	stored, err := backend.Store(ctx, capReader(req.Content, limit), name)
	if err != nil {
		if errors.Is(err, errPayloadTooLarge) {
			return nil, fileTooLarge(mediaType, limit)
		}
		return nil, backendFailure(fmt.Errorf("store %s: %w", name, err))
	}

	if err := s.store.UpdateFilePayload(ctx, reference, backend.Kind(), stored.Location, stored.URL, stored.SizeBytes, name, mediaType); err != nil {
		s.compensate(backend, stored.Location, err)
		return nil, storeFailure(err)
	}

	// The old object is only released when the replacement actually landed
	// somewhere else.
	if file.Backend != backend.Kind() || file.Location != stored.Location {
		s.releaseOldObject(ctx, file)
	}

	updated, err := s.store.GetFile(ctx, reference)
	if err != nil {
		return nil, storeFailure(err)
	}
	if updated != nil {
		s.dispatchIfAudio(ctx, updated)
	}

	s.logger.Info("file content replaced",
		"reference", reference, "backend", backend.Kind(), "media_type", mediaType, "size_bytes", stored.SizeBytes)
	return updated, nil
}

// Reprocess re-queues duration extraction for an audio file.
func (s *FileService) Reprocess(ctx context.Context, requester Requester, reference string) (*models.StoredFile, error) {
	file, err := s.Get(ctx, requester, reference)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(file.OwnerID) {
		return nil, forbidden(fmt.Errorf("file %s is not yours to reprocess", reference))
	}
	if !file.IsAudio() {
		return nil, makeAPIError(http.StatusBadRequest, "invalid_argument", ErrCodeNotAudio,
			fmt.Errorf("file %s is %s, not audio", reference, file.MediaType))
	}
	if s.dispatcher == nil {
		return nil, internalError(fmt.Errorf("processing is not configured"))
	}

	if err := s.dispatcher.Dispatch(ctx, reference); err != nil {
		return nil, internalError(fmt.Errorf("queue extraction for %s: %w", reference, err))
	}
	file.ProcessingStatus = models.ProcessingPending
	return file, nil
}

// OpenContent returns the file plus a reader for locally stored bytes.
// Remote-stored content returns a nil reader; the caller redirects to the
// file URL instead.
func (s *FileService) OpenContent(ctx context.Context, requester Requester, reference string) (*models.StoredFile, io.ReadCloser, error) {
	file, err := s.Get(ctx, requester, reference)
	if err != nil {
		return nil, nil, err
	}
	if file.Backend != models.BackendLocal {
		return file, nil, nil
	}

	backend, err := s.backendFor(file.Backend)
	if err != nil {
		return nil, nil, err
	}
	rc, err := backend.Open(ctx, file.Location)
	if err != nil {
		return nil, nil, backendFailure(fmt.Errorf("open %s: %w", reference, err))
	}
	return file, rc, nil
}

// RecordAccess bumps the play or download counter. Counter writes never
// fail a content request.
func (s *FileService) RecordAccess(ctx context.Context, file *models.StoredFile, download bool) {
	var err error
	switch {
	case download:
		err = s.store.IncrementDownloadCount(ctx, file.Reference)
	case file.IsAudio():
		err = s.store.IncrementPlayCount(ctx, file.Reference)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("record access", "reference", file.Reference, "download", download, "error", err)
	}
}

// Stats aggregates the catalog.
func (s *FileService) Stats(ctx context.Context) (store.StatsResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return stats, storeFailure(err)
	}
	return stats, nil
}

func (s *FileService) uploadLimit(mediaType string) int64 {
	if models.ClassifyMediaType(mediaType) == models.ClassAudio {
		return s.audioMaxUploadBytes
	}
	return s.maxUploadBytes
}

func (s *FileService) backendFor(kind models.BackendKind) (storage.Backend, error) {
	backend, ok := s.backends[kind]
	if !ok || backend == nil {
		return nil, internalError(fmt.Errorf("no %s backend configured", kind))
	}
	return backend, nil
}

func (s *FileService) dispatchIfAudio(ctx context.Context, file *models.StoredFile) {
	if !file.IsAudio() || s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, file.Reference); err != nil {
		// The upload already succeeded; extraction can be retried via
		// the reprocess endpoint.
		s.logger.Warn("queue extraction", "reference", file.Reference, "error", err)
	}
}

// compensate releases an orphaned backend object after a failed catalog
// write. Failure here only logs: the object is unreachable either way.
func (s *FileService) compensate(backend storage.Backend, location string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := backend.Delete(ctx, location); err != nil {
		s.logger.Error("compensating delete failed, object orphaned",
			"backend", backend.Kind(), "location", location, "cause", cause, "error", err)
		return
	}
	s.logger.Warn("rolled back backend write after catalog failure",
		"backend", backend.Kind(), "location", location, "cause", cause)
}

func (s *FileService) releaseOldObject(ctx context.Context, file *models.StoredFile) {
	backend, err := s.backendFor(file.Backend)
	if err != nil {
		s.logger.Warn("old object kept: no backend", "reference", file.Reference, "backend", file.Backend)
		return
	}
	if _, err := backend.Delete(ctx, file.Location); err != nil {
		s.logger.Warn("old object kept: delete failed",
			"reference", file.Reference, "backend", file.Backend, "location", file.Location, "error", err)
	}
}

func fileTooLarge(mediaType string, limit int64) error {
	return makeAPIError(http.StatusRequestEntityTooLarge, "file_too_large", ErrCodeFileTooLarge,
		fmt.Errorf("%s uploads are limited to %d bytes", models.ClassifyMediaType(mediaType), limit))
}

type cappedReader struct {
	r         io.Reader
	remaining int64
}

// capReader bounds a stream so a lying Content-Length cannot push past the
// per-type limit mid-transfer.
func capReader(r io.Reader, limit int64) io.Reader {
	return &cappedReader{r: r, remaining: limit}
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errPayloadTooLarge
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errPayloadTooLarge
	}
	return n, err
}
