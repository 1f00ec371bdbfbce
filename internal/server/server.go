package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"mediad/internal/store"
)

const (
	adminTokenEnvKey       = "MEDIAD_ADMIN_TOKEN"
	allowRemoteEnvKey      = "MEDIAD_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 5 * time.Minute
	writeTimeout           = 5 * time.Minute
	idleTimeout            = 60 * time.Second
	uploadConcurrencyLimit = 8
)

// Server wraps HTTP handlers for the mediad API.
type Server struct {
	addr          string
	store         *store.Store
	service       *FileService
	logger        *slog.Logger
	adminToken    string
	dbPath        string
	uploadLimiter chan struct{}

	multipartMaxMemory int64
	maxRequestBytes    int64
}

// Options parameterizes a Server beyond its collaborators.
type Options struct {
	DBPath             string
	MultipartMaxMemory int64
	MaxRequestBytes    int64
}

// New creates a new server instance.
func New(addr string, registry *store.Store, service *FileService, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = 8 * 1024 * 1024
	}
	return &Server{
		addr:               addr,
		store:              registry,
		service:            service,
		logger:             logger,
		adminToken:         strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		dbPath:             opts.DBPath,
		uploadLimiter:      make(chan struct{}, uploadConcurrencyLimit),
		multipartMaxMemory: opts.MultipartMaxMemory,
		maxRequestBytes:    opts.MaxRequestBytes,
	}
}

// Handler returns the composed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireUploadSlot(w http.ResponseWriter, r *http.Request) bool {
	select {
	case s.uploadLimiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent uploads"),
		}
		s.writeError(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseUploadSlot() {
	select {
	case <-s.uploadLimiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
