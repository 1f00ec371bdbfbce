package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediad/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "mediad.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testFile(reference string) *models.StoredFile {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.StoredFile{
		Reference: reference,
		Name:      "sermon.mp3",
		MediaType: "audio/mpeg",
		Backend:   models.BackendLocal,
		Location:  "uploads/2026/08/" + reference + ".mp3",
		URL:       "/media/uploads/2026/08/" + reference + ".mp3",
		SizeBytes: 5 * 1024 * 1024,
		OwnerID:   "us-owner",
		Public:    true,
		CreatedAt: now,
		UpdatedAt: now,

		ProcessingStatus: models.ProcessingPending,
	}
}

func TestCreateGetDeleteFile(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	file := testFile("fl-roundtrip")
	if err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	got, err := st.GetFile(ctx, file.Reference)
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if got == nil {
		t.Fatal("expected file")
	}
	if got.Backend != models.BackendLocal || got.MediaType != "audio/mpeg" {
		t.Fatalf("unexpected file %+v", got)
	}
	if got.SizeBytes != file.SizeBytes {
		t.Fatalf("size = %d, want %d", got.SizeBytes, file.SizeBytes)
	}
	if got.ProcessingStatus != models.ProcessingPending {
		t.Fatalf("status = %q, want pending", got.ProcessingStatus)
	}

	deleted, err := st.DeleteFile(ctx, file.Reference)
	if err != nil || !deleted {
		t.Fatalf("delete = %v, %v; want true", deleted, err)
	}
	deleted, err = st.DeleteFile(ctx, file.Reference)
	if err != nil || deleted {
		t.Fatalf("repeat delete = %v, %v; want false, nil", deleted, err)
	}

	got, err = st.GetFile(ctx, file.Reference)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after delete")
	}
}

func TestCreateFileRequiresLocation(t *testing.T) {
	st := testStore(t)
	file := testFile("fl-noloc")
	file.Location = ""
	if err := st.CreateFile(context.Background(), file); err == nil {
		t.Fatal("expected error for missing location")
	}
}

func TestProcessingTransitions(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	file := testFile("fl-proc")
	if err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.SetProcessingStatus(ctx, file.Reference, models.ProcessingInProgress); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	got, _ := st.GetFile(ctx, file.Reference)
	if got.ProcessingStatus != models.ProcessingInProgress {
		t.Fatalf("status = %q, want processing", got.ProcessingStatus)
	}

	if err := st.FailProcessing(ctx, file.Reference, "probe: unsupported codec"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ = st.GetFile(ctx, file.Reference)
	if got.ProcessingStatus != models.ProcessingFailed {
		t.Fatalf("status = %q, want failed", got.ProcessingStatus)
	}
	if got.ProcessingErrors != "probe: unsupported codec" {
		t.Fatalf("errors = %q", got.ProcessingErrors)
	}

	// A later successful run fully overwrites failure state.
	if err := st.CompleteProcessing(ctx, file.Reference, 185); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ = st.GetFile(ctx, file.Reference)
	if got.ProcessingStatus != models.ProcessingCompleted {
		t.Fatalf("status = %q, want completed", got.ProcessingStatus)
	}
	if got.DurationSeconds != 185 {
		t.Fatalf("duration = %d, want 185", got.DurationSeconds)
	}
	if got.ProcessingErrors != "" {
		t.Fatalf("errors should be cleared, got %q", got.ProcessingErrors)
	}
}

func TestFieldScopedUpdatesDoNotClobber(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	file := testFile("fl-scoped")
	file.Description = "original description"
	if err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A worker completing extraction must not touch metadata edits.
	newDesc := "edited while processing"
	if err := st.UpdateFileMeta(ctx, file.Reference, &newDesc, nil); err != nil {
		t.Fatalf("update meta: %v", err)
	}
	if err := st.CompleteProcessing(ctx, file.Reference, 90); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, _ := st.GetFile(ctx, file.Reference)
	if got.Description != "edited while processing" {
		t.Fatalf("description clobbered: %q", got.Description)
	}
	if got.DurationSeconds != 90 {
		t.Fatalf("duration = %d", got.DurationSeconds)
	}

	// Visibility-only update leaves description alone.
	private := false
	if err := st.UpdateFileMeta(ctx, file.Reference, nil, &private); err != nil {
		t.Fatalf("update visibility: %v", err)
	}
	got, _ = st.GetFile(ctx, file.Reference)
	if got.Public {
		t.Fatal("expected private")
	}
	if got.Description != "edited while processing" {
		t.Fatalf("description clobbered by visibility update: %q", got.Description)
	}
}

func TestUpdateFilePayload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	file := testFile("fl-payload")
	if err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.IncrementPlayCount(ctx, file.Reference); err != nil {
		t.Fatalf("increment play: %v", err)
	}

	err := st.UpdateFilePayload(ctx, file.Reference, models.BackendLocal,
		"uploads/2026/09/replacement.mp3", "/media/uploads/2026/09/replacement.mp3",
		999, "replacement.mp3", "audio/mpeg")
	if err != nil {
		t.Fatalf("update payload: %v", err)
	}

	got, _ := st.GetFile(ctx, file.Reference)
	if got.Location != "uploads/2026/09/replacement.mp3" || got.SizeBytes != 999 {
		t.Fatalf("payload not replaced: %+v", got)
	}
	if got.PlayCount != 1 {
		t.Fatalf("play count clobbered: %d", got.PlayCount)
	}
}

func TestCounters(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	file := testFile("fl-count")
	if err := st.CreateFile(ctx, file); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := st.IncrementPlayCount(ctx, file.Reference); err != nil {
			t.Fatalf("play: %v", err)
		}
	}
	if err := st.IncrementDownloadCount(ctx, file.Reference); err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := st.GetFile(ctx, file.Reference)
	if got.PlayCount != 3 || got.DownloadCount != 1 {
		t.Fatalf("counters = %d/%d, want 3/1", got.PlayCount, got.DownloadCount)
	}
}

func TestListFilesVisibility(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	public := testFile("fl-pub")
	if err := st.CreateFile(ctx, public); err != nil {
		t.Fatalf("create: %v", err)
	}
	private := testFile("fl-priv")
	private.Location = "uploads/2026/08/fl-priv.mp3"
	private.Public = false
	if err := st.CreateFile(ctx, private); err != nil {
		t.Fatalf("create: %v", err)
	}

	anon, err := st.ListFiles(ctx, FileFilter{})
	if err != nil {
		t.Fatalf("list anon: %v", err)
	}
	if len(anon) != 1 || anon[0].Reference != "fl-pub" {
		t.Fatalf("anon list = %v", refs(anon))
	}

	owner, err := st.ListFiles(ctx, FileFilter{ViewerID: "us-owner"})
	if err != nil {
		t.Fatalf("list owner: %v", err)
	}
	if len(owner) != 2 {
		t.Fatalf("owner list = %v", refs(owner))
	}

	admin, err := st.ListFiles(ctx, FileFilter{ViewerPrivileged: true})
	if err != nil {
		t.Fatalf("list admin: %v", err)
	}
	if len(admin) != 2 {
		t.Fatalf("admin list = %v", refs(admin))
	}
}

func TestListFilesFilters(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	audio := testFile("fl-audio")
	if err := st.CreateFile(ctx, audio); err != nil {
		t.Fatalf("create: %v", err)
	}
	image := testFile("fl-image")
	image.Name = "photo.jpg"
	image.MediaType = "image/jpeg"
	image.Backend = models.BackendRemote
	image.Location = "mediad/abc"
	image.ProcessingStatus = ""
	if err := st.CreateFile(ctx, image); err != nil {
		t.Fatalf("create: %v", err)
	}

	remote, err := st.ListFiles(ctx, FileFilter{Backend: models.BackendRemote, ViewerPrivileged: true})
	if err != nil {
		t.Fatalf("list remote: %v", err)
	}
	if len(remote) != 1 || remote[0].Reference != "fl-image" {
		t.Fatalf("remote list = %v", refs(remote))
	}

	audioOnly, err := st.ListFiles(ctx, FileFilter{Class: models.ClassAudio, ViewerPrivileged: true})
	if err != nil {
		t.Fatalf("list audio: %v", err)
	}
	if len(audioOnly) != 1 || audioOnly[0].Reference != "fl-audio" {
		t.Fatalf("audio list = %v", refs(audioOnly))
	}
}

func TestStats(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	audio := testFile("fl-s1")
	audio.SizeBytes = 100
	if err := st.CreateFile(ctx, audio); err != nil {
		t.Fatalf("create: %v", err)
	}
	image := testFile("fl-s2")
	image.MediaType = "image/png"
	image.Backend = models.BackendRemote
	image.Location = "mediad/s2"
	image.SizeBytes = 50
	if err := st.CreateFile(ctx, image); err != nil {
		t.Fatalf("create: %v", err)
	}
	doc := testFile("fl-s3")
	doc.MediaType = "application/pdf"
	doc.Location = "uploads/2026/08/s3.pdf"
	doc.SizeBytes = 25
	if err := st.CreateFile(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 3 || stats.TotalBytes != 175 {
		t.Fatalf("totals = %d files / %d bytes", stats.TotalFiles, stats.TotalBytes)
	}
	if stats.ByBackend[models.BackendLocal] != 2 || stats.ByBackend[models.BackendRemote] != 1 {
		t.Fatalf("by backend = %v", stats.ByBackend)
	}
	if stats.ByClass[models.ClassAudio] != 1 || stats.ByClass[models.ClassImage] != 1 || stats.ByClass[models.ClassDocument] != 1 {
		t.Fatalf("by class = %v", stats.ByClass)
	}
}

func TestGenerateFileReference(t *testing.T) {
	st := testStore(t)

	ref, err := GenerateFileReference(st.FileExists)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(ref, "fl-") {
		t.Fatalf("reference %q missing fl- prefix", ref)
	}

	// A taken reference is never returned again.
	file := testFile(ref)
	if err := st.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 20; i++ {
		next, err := GenerateFileReference(st.FileExists)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if next == ref {
			t.Fatalf("reference %q reused", ref)
		}
	}
}

func refs(files []models.StoredFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Reference)
	}
	return out
}
