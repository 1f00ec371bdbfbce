package api

import "time"

// ErrorResponse is a generic JSON error wrapper. Fields carries per-field
// validation messages when present.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	ErrorCode int               `json:"error_code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// FileResponse is the API representation of one catalogued file.
type FileResponse struct {
	Reference   string    `json:"reference"`
	Name        string    `json:"name"`
	MediaType   string    `json:"media_type"`
	Class       string    `json:"class"`
	Backend     string    `json:"backend"`
	URL         string    `json:"url"`
	SizeBytes   int64     `json:"size_bytes"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Public      bool      `json:"public"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Audio-only fields; zero for every other media class.
	DurationSeconds  int    `json:"duration_seconds,omitempty"`
	Duration         string `json:"duration,omitempty"`
	ProcessingStatus string `json:"processing_status,omitempty"`
	ProcessingErrors string `json:"processing_errors,omitempty"`
	PlayCount        int64  `json:"play_count,omitempty"`
	DownloadCount    int64  `json:"download_count,omitempty"`
}

// FileUpdateRequest patches file metadata. Nil fields stay unchanged.
type FileUpdateRequest struct {
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
}

// FileDeleteResponse reports the outcome of a delete. BackendDeleted is
// false when the backend no longer held the bytes; the catalog entry is
// removed either way.
type FileDeleteResponse struct {
	Reference      string `json:"reference"`
	BackendDeleted bool   `json:"backend_deleted"`
}

// ReprocessResponse acknowledges a re-queued extraction.
type ReprocessResponse struct {
	Reference        string `json:"reference"`
	ProcessingStatus string `json:"processing_status"`
}

// StatsResponse aggregates the catalog.
type StatsResponse struct {
	TotalFiles int64            `json:"total_files"`
	TotalBytes int64            `json:"total_bytes"`
	ByBackend  map[string]int64 `json:"by_backend"`
	ByClass    map[string]int64 `json:"by_class"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	DBPath        string `json:"db_path"`
	SchemaVersion int    `json:"schema_version"`
	TotalFiles    int64  `json:"total_files"`
	TotalBytes    int64  `json:"total_bytes"`
}

// AdminUserCreateRequest provisions an API user.
type AdminUserCreateRequest struct {
	Name       string `json:"name"`
	Privileged bool   `json:"privileged,omitempty"`
}

// AdminUserCreateResponse carries the freshly minted API key. The key is
// shown exactly once; only its hash is persisted.
type AdminUserCreateResponse struct {
	User   AdminUser `json:"user"`
	APIKey string    `json:"api_key"`
}

// AdminUser is the API representation of a provisioned user.
type AdminUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Privileged bool      `json:"privileged"`
	Disabled   bool      `json:"disabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AdminUserSetDisabledRequest toggles a user's disabled flag.
type AdminUserSetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// AdminUserSetDisabledResponse acknowledges the toggle.
type AdminUserSetDisabledResponse struct {
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}
