package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mediad/internal/models"
)

const fileColumns = "reference, name, media_type, backend, location, url, size_bytes, owner_id, public, description, created_at, updated_at, duration_seconds, processing_status, processing_errors, play_count, download_count"

// FileExists checks whether a file reference is taken.
func (s *Store) FileExists(reference string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM files WHERE reference = ? LIMIT 1", reference).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateFile inserts one file row. The caller supplies a confirmed backend
// location and the backend-reported size.
func (s *Store) CreateFile(ctx context.Context, file *models.StoredFile) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	if strings.TrimSpace(file.Reference) == "" {
		return fmt.Errorf("file reference is required")
	}
	if strings.TrimSpace(file.Location) == "" {
		return fmt.Errorf("file location is required")
	}

	now := time.Now().UTC()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	if file.UpdatedAt.IsZero() {
		file.UpdatedAt = file.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		file.Reference,
		file.Name,
		file.MediaType,
		string(file.Backend),
		file.Location,
		file.URL,
		file.SizeBytes,
		nullString(file.OwnerID),
		boolToInt(file.Public),
		nullString(file.Description),
		formatTime(file.CreatedAt),
		formatTime(file.UpdatedAt),
		file.DurationSeconds,
		string(file.ProcessingStatus),
		file.ProcessingErrors,
		file.PlayCount,
		file.DownloadCount,
	)
	return err
}

// GetFile returns one file by reference, or nil when absent.
func (s *Store) GetFile(ctx context.Context, reference string) (*models.StoredFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE reference = ?`, reference)
	return scanFile(row)
}

// FileFilter narrows ListFiles results. Zero values mean no filtering;
// Viewer scoping hides private files the viewer does not own.
type FileFilter struct {
	Backend          models.BackendKind
	Class            models.MediaClass
	MediaType        string
	OwnerID          string
	ViewerID         string
	ViewerPrivileged bool
}

// ListFiles returns catalogued files newest-first.
func (s *Store) ListFiles(ctx context.Context, filter FileFilter) ([]models.StoredFile, error) {
	query := `SELECT ` + fileColumns + ` FROM files`
	where := []string{}
	args := []any{}

	if filter.Backend != "" {
		where = append(where, "backend = ?")
		args = append(args, string(filter.Backend))
	}
	if filter.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, filter.MediaType)
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if !filter.ViewerPrivileged {
		if filter.ViewerID != "" {
			where = append(where, "(public = 1 OR owner_id = ?)")
			args = append(args, filter.ViewerID)
		} else {
			where = append(where, "public = 1")
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.StoredFile{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		if filter.Class != "" && file.Class() != filter.Class {
			continue
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// DeleteFile removes one file row. It reports whether a row was removed.
func (s *Store) DeleteFile(ctx context.Context, reference string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE reference = ?", reference)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateFileMeta updates description and visibility only. Nil pointers
// leave a field untouched; processing state is never affected.
func (s *Store) UpdateFileMeta(ctx context.Context, reference string, description *string, public *bool) error {
	set := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}

	if description != nil {
		set = append(set, "description = ?")
		args = append(args, nullString(*description))
	}
	if public != nil {
		set = append(set, "public = ?")
		args = append(args, boolToInt(*public))
	}
	args = append(args, reference)

	_, err := s.db.ExecContext(ctx, "UPDATE files SET "+strings.Join(set, ", ")+" WHERE reference = ?", args...)
	return err
}

// UpdateFilePayload replaces the payload columns after a confirmed backend
// write for a content replacement. Counters and metadata are untouched.
func (s *Store) UpdateFilePayload(ctx context.Context, reference string, backend models.BackendKind, location, url string, sizeBytes int64, name, mediaType string) error {
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("file location is required")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE files
		SET backend = ?, location = ?, url = ?, size_bytes = ?, name = ?, media_type = ?, updated_at = ?
		WHERE reference = ?
	`, string(backend), location, url, sizeBytes, name, mediaType, formatTime(time.Now()), reference)
	return err
}

// SetProcessingStatus writes only the processing status column.
func (s *Store) SetProcessingStatus(ctx context.Context, reference string, status models.ProcessingStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET processing_status = ?, updated_at = ? WHERE reference = ?
	`, string(status), formatTime(time.Now()), reference)
	return err
}

// CompleteProcessing records a successful extraction: duration is fully
// overwritten, status becomes completed, and prior errors are cleared.
func (s *Store) CompleteProcessing(ctx context.Context, reference string, durationSeconds int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files
		SET duration_seconds = ?, processing_status = ?, processing_errors = '', updated_at = ?
		WHERE reference = ?
	`, durationSeconds, string(models.ProcessingCompleted), formatTime(time.Now()), reference)
	return err
}

// FailProcessing records terminal extraction failure with the last error
// text verbatim.
func (s *Store) FailProcessing(ctx context.Context, reference string, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files
		SET processing_status = ?, processing_errors = ?, updated_at = ?
		WHERE reference = ?
	`, string(models.ProcessingFailed), lastError, formatTime(time.Now()), reference)
	return err
}

// IncrementPlayCount bumps the play counter in place.
func (s *Store) IncrementPlayCount(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET play_count = play_count + 1 WHERE reference = ?
	`, reference)
	return err
}

// IncrementDownloadCount bumps the download counter in place.
func (s *Store) IncrementDownloadCount(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE files SET download_count = download_count + 1 WHERE reference = ?
	`, reference)
	return err
}

// StatsResult aggregates the catalog for reporting.
type StatsResult struct {
	TotalFiles int64                        `json:"total_files"`
	TotalBytes int64                        `json:"total_bytes"`
	ByBackend  map[models.BackendKind]int64 `json:"by_backend"`
	ByClass    map[models.MediaClass]int64  `json:"by_class"`
}

// Stats returns counts by backend kind and coarse media class plus the
// aggregate stored byte size.
func (s *Store) Stats(ctx context.Context) (StatsResult, error) {
	stats := StatsResult{
		ByBackend: map[models.BackendKind]int64{},
		ByClass:   map[models.MediaClass]int64{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT backend, media_type, COUNT(*), COALESCE(SUM(size_bytes), 0)
		FROM files
		GROUP BY backend, media_type
	`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var backend, mediaType string
		var count, bytes int64
		if err := rows.Scan(&backend, &mediaType, &count, &bytes); err != nil {
			return stats, err
		}
		stats.TotalFiles += count
		stats.TotalBytes += bytes
		stats.ByBackend[models.BackendKind(backend)] += count
		stats.ByClass[models.ClassifyMediaType(mediaType)] += count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(scanner rowScanner) (*models.StoredFile, error) {
	var file models.StoredFile
	var backend, status, createdAt, updatedAt string
	var owner, description sql.NullString
	var public int

	err := scanner.Scan(
		&file.Reference,
		&file.Name,
		&file.MediaType,
		&backend,
		&file.Location,
		&file.URL,
		&file.SizeBytes,
		&owner,
		&public,
		&description,
		&createdAt,
		&updatedAt,
		&file.DurationSeconds,
		&status,
		&file.ProcessingErrors,
		&file.PlayCount,
		&file.DownloadCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file.Backend = models.BackendKind(backend)
	file.ProcessingStatus = models.ProcessingStatus(status)
	file.OwnerID = owner.String
	file.Description = description.String
	file.Public = public != 0
	if file.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if file.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &file, nil
}

func nullString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
