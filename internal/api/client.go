package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	uploadHTTPTimeout  = 5 * time.Minute
	httpTimeoutEnvKey  = "MEDIAD_HTTP_TIMEOUT"
	apiKeyEnvKey       = "MEDIAD_API_KEY"
	adminTokenEnvKey   = "MEDIAD_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the mediad API.
type Client struct {
	baseURL    string
	http       *http.Client
	uploadHTTP *http.Client
	apiKey     string
	adminToken string
}

// NewClient creates a new API client. Credentials come from the
// environment: the API key or, for admin operations, the admin token.
func NewClient(baseURL string) *Client {
	apiKey := strings.TrimSpace(os.Getenv(apiKeyEnvKey))
	adminToken := strings.TrimSpace(os.Getenv(adminTokenEnvKey))
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		uploadHTTP: &http.Client{Timeout: uploadHTTPTimeout},
		apiKey:     apiKey,
		adminToken: adminToken,
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// UploadFile streams one file as a multipart upload. mediaType may be
// empty, in which case the server resolves the type from the filename.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader, mediaType, description string, public bool) (FileResponse, error) {
	var resp FileResponse

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, name, r, mediaType, description, public))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files", pr)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.uploadHTTP.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// ReplaceContent streams replacement bytes for an existing file.
func (c *Client) ReplaceContent(ctx context.Context, reference, name string, r io.Reader, mediaType string) (FileResponse, error) {
	var resp FileResponse

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, name, r, mediaType, "", false))
	}()

	endpoint := c.baseURL + "/v1/files/" + url.PathEscape(reference) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, pr)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.setAuthHeader(req)

	httpResp, err := c.uploadHTTP.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) GetFile(ctx context.Context, reference string) (FileResponse, error) {
	var resp FileResponse
	err := c.do(ctx, http.MethodGet, "/v1/files/"+url.PathEscape(reference), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListFiles(ctx context.Context, query url.Values) ([]FileResponse, error) {
	var resp []FileResponse
	err := c.do(ctx, http.MethodGet, "/v1/files", query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateFile(ctx context.Context, reference string, req FileUpdateRequest) (FileResponse, error) {
	var resp FileResponse
	err := c.do(ctx, http.MethodPatch, "/v1/files/"+url.PathEscape(reference), nil, req, &resp)
	return resp, err
}

func (c *Client) DeleteFile(ctx context.Context, reference string) (FileDeleteResponse, error) {
	var resp FileDeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/files/"+url.PathEscape(reference), nil, nil, &resp)
	return resp, err
}

func (c *Client) Reprocess(ctx context.Context, reference string) (ReprocessResponse, error) {
	var resp ReprocessResponse
	err := c.do(ctx, http.MethodPost, "/v1/files/"+url.PathEscape(reference)+"/reprocess", nil, nil, &resp)
	return resp, err
}

func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var resp StatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &resp)
	return resp, err
}

// DownloadContent streams file content to a writer. The server follows
// redirects to remote-stored content transparently.
func (c *Client) DownloadContent(ctx context.Context, reference string, w io.Writer) error {
	endpoint := c.baseURL + "/v1/files/" + url.PathEscape(reference) + "/content?download=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)

	resp, err := c.uploadHTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) AdminCreateUser(ctx context.Context, req AdminUserCreateRequest) (AdminUserCreateResponse, error) {
	var resp AdminUserCreateResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/users", nil, req, &resp)
	return resp, err
}

func (c *Client) AdminListUsers(ctx context.Context) ([]AdminUser, error) {
	var resp []AdminUser
	err := c.do(ctx, http.MethodGet, "/v1/admin/users", nil, nil, &resp)
	return resp, err
}

func (c *Client) AdminSetUserDisabled(ctx context.Context, name string, disabled bool) (AdminUserSetDisabledResponse, error) {
	var resp AdminUserSetDisabledResponse
	req := AdminUserSetDisabledRequest{Disabled: disabled}
	err := c.do(ctx, http.MethodPatch, "/v1/admin/users/"+url.PathEscape(name), nil, req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func writeUploadForm(form *multipart.Writer, name string, r io.Reader, mediaType, description string, public bool) error {
	if mediaType != "" {
		if err := form.WriteField("media_type", mediaType); err != nil {
			return err
		}
	}
	if description != "" {
		if err := form.WriteField("description", description); err != nil {
			return err
		}
	}
	if err := form.WriteField("public", strconv.FormatBool(public)); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
			Fields:    errResp.Fields,
		}
	}
	return fmt.Errorf("api error: %s", resp.Status)
}

func (c *Client) setAuthHeader(req *http.Request) {
	if req == nil {
		return
	}
	switch {
	case c.apiKey != "":
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	case c.adminToken != "":
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
