package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"mediad/internal/api"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeFileList(files []api.FileResponse) error {
	for _, file := range files {
		if err := writePlain("%s\n", formatFileLine(file)); err != nil {
			return err
		}
	}
	return nil
}

func writeFileDetail(file api.FileResponse) error {
	lines := []string{
		fmt.Sprintf("reference: %s", file.Reference),
		fmt.Sprintf("name: %s", file.Name),
		fmt.Sprintf("media_type: %s", file.MediaType),
		fmt.Sprintf("backend: %s", file.Backend),
		fmt.Sprintf("size: %s", formatSize(file.SizeBytes)),
		fmt.Sprintf("url: %s", file.URL),
		fmt.Sprintf("public: %t", file.Public),
		fmt.Sprintf("created_at: %s", formatTime(file.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(file.UpdatedAt)),
	}

	if file.OwnerID != "" {
		lines = append(lines, fmt.Sprintf("owner: %s", file.OwnerID))
	}
	if file.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", file.Description))
	}
	if file.ProcessingStatus != "" {
		lines = append(lines, fmt.Sprintf("processing: %s", file.ProcessingStatus))
	}
	if file.Duration != "" {
		lines = append(lines, fmt.Sprintf("duration: %s", file.Duration))
	}
	if file.ProcessingErrors != "" {
		lines = append(lines, fmt.Sprintf("processing_errors: %s", file.ProcessingErrors))
	}
	if file.PlayCount > 0 {
		lines = append(lines, fmt.Sprintf("plays: %d", file.PlayCount))
	}
	if file.DownloadCount > 0 {
		lines = append(lines, fmt.Sprintf("downloads: %d", file.DownloadCount))
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatFileLine(file api.FileResponse) string {
	extra := ""
	if file.Duration != "" {
		extra = " " + file.Duration
	}
	return fmt.Sprintf("%s [%s/%s] %s (%s)%s", file.Reference, file.Backend, file.Class, file.Name, formatSize(file.SizeBytes), extra)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
