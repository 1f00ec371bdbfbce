package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaClass is the coarse content classification used by stats and routing.
type MediaClass string

const (
	ClassImage    MediaClass = "image"
	ClassVideo    MediaClass = "video"
	ClassAudio    MediaClass = "audio"
	ClassDocument MediaClass = "document"
	ClassOther    MediaClass = "other"
)

var documentMediaTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-powerpoint":                                     {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain": {},
}

// StoredFile is one catalogued blob. Audio payloads additionally carry the
// processing fields; for every other media type those stay at their zero
// values.
type StoredFile struct {
	Reference   string      `json:"reference"`
	Name        string      `json:"name"`
	MediaType   string      `json:"media_type"`
	Backend     BackendKind `json:"backend"`
	Location    string      `json:"location"`
	URL         string      `json:"url"`
	SizeBytes   int64       `json:"size_bytes"`
	OwnerID     string      `json:"owner_id,omitempty"`
	Public      bool        `json:"public"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	DurationSeconds  int              `json:"duration_seconds,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status,omitempty"`
	ProcessingErrors string           `json:"processing_errors,omitempty"`
	PlayCount        int64            `json:"play_count,omitempty"`
	DownloadCount    int64            `json:"download_count,omitempty"`
}

// IsAudio reports whether the payload is an audio blob subject to extraction.
func (f *StoredFile) IsAudio() bool {
	return strings.HasPrefix(f.MediaType, "audio/")
}

// Class returns the coarse classification of the file's media type.
func (f *StoredFile) Class() MediaClass {
	return ClassifyMediaType(f.MediaType)
}

// ClassifyMediaType maps a media type onto its coarse class.
func ClassifyMediaType(mediaType string) MediaClass {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return ClassImage
	case strings.HasPrefix(mediaType, "video/"):
		return ClassVideo
	case strings.HasPrefix(mediaType, "audio/"):
		return ClassAudio
	}
	if _, ok := documentMediaTypes[mediaType]; ok {
		return ClassDocument
	}
	return ClassOther
}

// FormatDuration renders a duration in seconds as MM:SS, or HH:MM:SS for
// durations of an hour or more.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
