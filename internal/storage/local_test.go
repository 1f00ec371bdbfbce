package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLocalDisk(t *testing.T) *LocalDisk {
	t.Helper()
	disk, err := NewLocalDisk(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("NewLocalDisk: %v", err)
	}
	return disk
}

func TestLocalDiskStoreAndOpen(t *testing.T) {
	disk := testLocalDisk(t)
	disk.now = func() time.Time { return time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	result, err := disk.Store(ctx, strings.NewReader("sermon audio bytes"), "sermon.mp3")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.SizeBytes != int64(len("sermon audio bytes")) {
		t.Fatalf("expected backend-reported size %d, got %d", len("sermon audio bytes"), result.SizeBytes)
	}
	if !strings.HasPrefix(result.Location, "uploads/2026/03/") {
		t.Fatalf("expected year/month partitioned location, got %q", result.Location)
	}
	if !strings.HasSuffix(result.Location, ".mp3") {
		t.Fatalf("expected extension preserved, got %q", result.Location)
	}
	if strings.Contains(result.Location, "sermon") {
		t.Fatalf("client-supplied name must not appear in location: %q", result.Location)
	}
	if result.URL != "/media/"+result.Location {
		t.Fatalf("unexpected URL %q", result.URL)
	}

	rc, err := disk.Open(ctx, result.Location)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "sermon audio bytes" {
		t.Fatalf("content mismatch: %q", content)
	}
}

func TestLocalDiskStoreUniqueNames(t *testing.T) {
	disk := testLocalDisk(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		result, err := disk.Store(ctx, strings.NewReader("x"), "dup.pdf")
		if err != nil {
			t.Fatalf("Store: %v", err)
		}
		if seen[result.Location] {
			t.Fatalf("duplicate location %q", result.Location)
		}
		seen[result.Location] = true
	}
}

func TestLocalDiskDeleteIdempotent(t *testing.T) {
	disk := testLocalDisk(t)
	ctx := context.Background()

	result, err := disk.Store(ctx, strings.NewReader("bytes"), "doc.pdf")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	exists, err := disk.Exists(ctx, result.Location)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}

	deleted, err := disk.Delete(ctx, result.Location)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v; want true", deleted, err)
	}

	// Second delete reports nothing to delete, not an error.
	deleted, err = disk.Delete(ctx, result.Location)
	if err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}
	if deleted {
		t.Fatal("repeat Delete should report false")
	}

	exists, err = disk.Exists(ctx, result.Location)
	if err != nil || exists {
		t.Fatalf("Exists after delete = %v, %v; want false", exists, err)
	}
}

func TestLocalDiskRejectsTraversal(t *testing.T) {
	disk := testLocalDisk(t)
	ctx := context.Background()

	for _, location := range []string{"", "/etc/passwd", "../outside", "uploads/../../x"} {
		if _, err := disk.Open(ctx, location); err == nil {
			t.Fatalf("Open(%q): expected error", location)
		}
		if _, err := disk.Delete(ctx, location); err == nil {
			t.Fatalf("Delete(%q): expected error", location)
		}
	}
}

func TestSanitizeExtension(t *testing.T) {
	cases := map[string]string{
		".MP3":    ".mp3",
		".pdf":    ".pdf",
		"":        "",
		".":       "",
		"./bad":   "",
		".a\\b":   "",
		".tar.gz": ".tar.gz",
	}
	for raw, want := range cases {
		if got := sanitizeExtension(raw); got != want {
			t.Fatalf("sanitizeExtension(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestLocalDiskAccessURLNoBase(t *testing.T) {
	disk, err := NewLocalDisk(filepath.Join(t.TempDir(), "blobs"), "")
	if err != nil {
		t.Fatalf("NewLocalDisk: %v", err)
	}
	if got := disk.AccessURL("uploads/2026/01/x.pdf"); got != "/uploads/2026/01/x.pdf" {
		t.Fatalf("AccessURL = %q", got)
	}
}
