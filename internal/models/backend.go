package models

import (
	"fmt"
	"strings"
)

// BackendKind identifies which storage backend holds a file's bytes.
type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendRemote BackendKind = "remote"
)

var validBackendKinds = map[BackendKind]struct{}{
	BackendLocal:  {},
	BackendRemote: {},
}

// ParseBackendKind validates a raw backend kind value.
func ParseBackendKind(raw string) (BackendKind, error) {
	value := BackendKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("backend kind is required")
	}
	if _, ok := validBackendKinds[value]; !ok {
		return "", fmt.Errorf("invalid backend kind: %s", value)
	}
	return value, nil
}
