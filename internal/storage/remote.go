package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"mediad/internal/models"
)

const (
	remoteObjectsPath    = "/v1/objects"
	remoteDefaultFolder  = "mediad"
	remoteDefaultTimeout = 60 * time.Second
	remoteIDLength       = 20
)

// RemoteStore uploads blobs to a remote object store over HTTP. Objects are
// addressed by generated identifiers under a fixed folder; the store
// auto-detects the resource type and reports the authoritative byte size.
type RemoteStore struct {
	baseURL string
	apiKey  string
	folder  string
	http    *http.Client
}

type remoteUploadResponse struct {
	ObjectID  string `json:"object_id"`
	SecureURL string `json:"secure_url"`
	Bytes     int64  `json:"bytes"`
}

type remoteErrorResponse struct {
	Error string `json:"error"`
}

// NewRemoteStore creates a remote object-store backend.
func NewRemoteStore(baseURL, apiKey, folder string) (*RemoteStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote store url is required")
	}
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = remoteDefaultFolder
	}
	return &RemoteStore{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		folder:  folder,
		http:    &http.Client{Timeout: remoteDefaultTimeout},
	}, nil
}

// Kind identifies the backend.
func (s *RemoteStore) Kind() models.BackendKind {
	return models.BackendRemote
}

// Store uploads bytes under a generated object identifier. The returned
// size is what the remote store reports, which may diverge from the number
// of bytes the client declared.
func (s *RemoteStore) Store(ctx context.Context, r io.Reader, name string) (StoreResult, error) {
	var zero StoreResult
	if s == nil {
		return zero, fmt.Errorf("remote backend is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}

	base, err := randomName(remoteIDLength)
	if err != nil {
		return zero, err
	}
	objectID := s.folder + "/" + base

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		err := writeUploadForm(form, objectID, name, r)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+remoteObjectsPath, pr)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("remote upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return zero, fmt.Errorf("remote upload: %s", remoteErrorText(resp))
	}

	var uploaded remoteUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return zero, fmt.Errorf("remote upload: decode response: %w", err)
	}
	if uploaded.SecureURL == "" {
		return zero, fmt.Errorf("remote upload: response missing secure_url")
	}
	if uploaded.ObjectID != "" {
		objectID = uploaded.ObjectID
	}

	return StoreResult{Location: objectID, URL: uploaded.SecureURL, SizeBytes: uploaded.Bytes}, nil
}

// Open streams object content back from the remote store.
func (s *RemoteStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("remote backend is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(location), nil)
	if err != nil {
		return nil, err
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote open: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("remote open: %s", remoteErrorText(resp))
	}
	return resp.Body, nil
}

// Delete removes an object by identifier. An unknown object reports false
// with no error.
func (s *RemoteStore) Delete(ctx context.Context, location string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("remote backend is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(location), nil)
	if err != nil {
		return false, err
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("remote delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("remote delete: %s", remoteErrorText(resp))
	}
}

// Exists checks object presence without fetching content.
func (s *RemoteStore) Exists(ctx context.Context, location string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("remote backend is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(location), nil)
	if err != nil {
		return false, err
	}
	s.authorize(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("remote exists: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("remote exists: status %d", resp.StatusCode)
	}
}

// AccessURL builds the content URL for an object identifier.
func (s *RemoteStore) AccessURL(location string) string {
	return s.objectURL(location)
}

// ObjectIDFromURL extracts the object identifier from a stored remote URL.
// The identifier is everything after the objects path segment, with any
// format extension stripped.
func ObjectIDFromURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	marker := strings.TrimPrefix(remoteObjectsPath, "/") + "/"
	idx := strings.Index(u.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("not an object store url: %s", raw)
	}
	objectID := strings.Trim(u.Path[idx+len(marker):], "/")
	if objectID == "" {
		return "", fmt.Errorf("object id missing from url: %s", raw)
	}
	if ext := path.Ext(objectID); ext != "" {
		objectID = strings.TrimSuffix(objectID, ext)
	}
	return objectID, nil
}

func (s *RemoteStore) objectURL(objectID string) string {
	objectID = strings.Trim(strings.TrimSpace(objectID), "/")
	escaped := make([]string, 0, 4)
	for _, segment := range strings.Split(objectID, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return s.baseURL + remoteObjectsPath + "/" + strings.Join(escaped, "/")
}

func (s *RemoteStore) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

func writeUploadForm(form *multipart.Writer, objectID, name string, r io.Reader) error {
	if err := form.WriteField("object_id", objectID); err != nil {
		return err
	}
	// The store sniffs the resource type itself.
	if err := form.WriteField("resource_type", "auto"); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", path.Base(name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

func remoteErrorText(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed remoteErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
