package storage

import (
	"strings"

	"mediad/internal/models"
)

// Route maps a media type onto the backend that should hold its bytes.
// Images and videos go to the remote object store; everything else,
// including unknown types, stays on local disk. The function is pure and
// must stay stable for identical input: upload and the stats reporting
// path both rely on it.
func Route(mediaType string) models.BackendKind {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/") {
		return models.BackendRemote
	}
	return models.BackendLocal
}
