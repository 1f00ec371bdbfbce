package policy

import (
	"fmt"
	"mime"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const fallbackMediaType = "application/octet-stream"

// Policy is the media-type allow-list applied before any backend call.
// A YAML policy file replaces the built-in list wholesale.
type Policy struct {
	AllowedMediaTypes  []string          `yaml:"allowed_media_types"`
	ExtensionOverrides map[string]string `yaml:"extension_overrides"`

	allowed map[string]struct{}
}

// defaultAllowedMediaTypes mirrors the upload surface: images and videos
// (remote-routed), audio, documents and archives (local-routed).
var defaultAllowedMediaTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/bmp", "image/webp", "image/svg+xml",
	"video/mp4", "video/webm", "video/quicktime", "video/x-msvideo",
	"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/ogg", "audio/mp4",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"application/zip", "application/x-tar", "application/gzip",
	"application/x-7z-compressed",
}

// Default returns the built-in policy.
func Default() *Policy {
	p := &Policy{AllowedMediaTypes: defaultAllowedMediaTypes}
	p.index()
	return p
}

// LoadFile reads a YAML policy file. An empty path returns the default
// policy.
func LoadFile(path string) (*Policy, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type policy %s: %w", path, err)
	}
	var p Policy
	if err := yaml.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("parse type policy %s: %w", path, err)
	}
	if len(p.AllowedMediaTypes) == 0 {
		return nil, fmt.Errorf("type policy %s allows nothing", path)
	}
	p.index()
	return &p, nil
}

// Allowed reports whether a media type passes the allow-list.
func (p *Policy) Allowed(mediaType string) bool {
	mediaType = normalize(mediaType)
	_, ok := p.allowed[mediaType]
	return ok
}

// ResolveMediaType determines the effective media type of an upload:
// the caller-declared type wins, then extension overrides from the policy,
// then the platform extension table, then a generic binary fallback.
func (p *Policy) ResolveMediaType(declared, filename string) string {
	if mediaType := normalize(declared); mediaType != "" && mediaType != fallbackMediaType {
		return mediaType
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext != "" {
		if override, ok := p.ExtensionOverrides[ext]; ok {
			if mediaType := normalize(override); mediaType != "" {
				return mediaType
			}
		}
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			return normalize(guessed)
		}
	}

	return fallbackMediaType
}

func (p *Policy) index() {
	p.allowed = make(map[string]struct{}, len(p.AllowedMediaTypes))
	for _, raw := range p.AllowedMediaTypes {
		mediaType := normalize(raw)
		if mediaType == "" {
			continue
		}
		p.allowed[mediaType] = struct{}{}
	}
}

func normalize(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw
	}
	return parsed
}
