package models

import (
	"fmt"
	"strings"
)

// ProcessingStatus tracks the audio extraction lifecycle of a file.
type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

var validProcessingStatuses = map[ProcessingStatus]struct{}{
	ProcessingPending:    {},
	ProcessingInProgress: {},
	ProcessingCompleted:  {},
	ProcessingFailed:     {},
}

// ParseProcessingStatus validates a raw processing status value.
func ParseProcessingStatus(raw string) (ProcessingStatus, error) {
	value := ProcessingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("processing status is required")
	}
	if _, ok := validProcessingStatuses[value]; !ok {
		return "", fmt.Errorf("invalid processing status: %s", value)
	}
	return value, nil
}

// Terminal reports whether the status ends an attempt cycle.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingCompleted || s == ProcessingFailed
}
