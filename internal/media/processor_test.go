package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"mediad/internal/models"
	"mediad/internal/storage"
)

type fakeRegistry struct {
	mu    sync.Mutex
	files map[string]*models.StoredFile
}

func newFakeRegistry(files ...*models.StoredFile) *fakeRegistry {
	reg := &fakeRegistry{files: map[string]*models.StoredFile{}}
	for _, f := range files {
		copied := *f
		reg.files[f.Reference] = &copied
	}
	return reg
}

func (r *fakeRegistry) GetFile(_ context.Context, reference string) (*models.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[reference]
	if !ok {
		return nil, nil
	}
	copied := *file
	return &copied, nil
}

func (r *fakeRegistry) SetProcessingStatus(_ context.Context, reference string, status models.ProcessingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[reference]; ok {
		file.ProcessingStatus = status
	}
	return nil
}

func (r *fakeRegistry) CompleteProcessing(_ context.Context, reference string, durationSeconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[reference]; ok {
		file.DurationSeconds = durationSeconds
		file.ProcessingStatus = models.ProcessingCompleted
		file.ProcessingErrors = ""
	}
	return nil
}

func (r *fakeRegistry) FailProcessing(_ context.Context, reference string, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if file, ok := r.files[reference]; ok {
		file.ProcessingStatus = models.ProcessingFailed
		file.ProcessingErrors = lastError
	}
	return nil
}

func (r *fakeRegistry) snapshot(reference string) models.StoredFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.files[reference]
}

type fakeBackend struct {
	kind    models.BackendKind
	content map[string][]byte
}

func (b *fakeBackend) Kind() models.BackendKind { return b.kind }

func (b *fakeBackend) Store(context.Context, io.Reader, string) (storage.StoreResult, error) {
	return storage.StoreResult{}, fmt.Errorf("not implemented")
}

func (b *fakeBackend) Open(_ context.Context, location string) (io.ReadCloser, error) {
	content, ok := b.content[location]
	if !ok {
		return nil, fmt.Errorf("no content at %s", location)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (b *fakeBackend) Delete(context.Context, string) (bool, error) { return false, nil }
func (b *fakeBackend) Exists(_ context.Context, location string) (bool, error) {
	_, ok := b.content[location]
	return ok, nil
}
func (b *fakeBackend) AccessURL(location string) string { return "/" + location }

type scriptedExtractor struct {
	mu        sync.Mutex
	calls     int
	failUntil int
	durations []int
}

func (e *scriptedExtractor) Duration(io.Reader, string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failUntil {
		return 0, fmt.Errorf("probe: no frame header (attempt %d)", e.calls)
	}
	if len(e.durations) == 0 {
		return 185, nil
	}
	idx := e.calls - e.failUntil - 1
	if idx >= len(e.durations) {
		idx = len(e.durations) - 1
	}
	return e.durations[idx], nil
}

func (e *scriptedExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func audioFile(reference string) *models.StoredFile {
	return &models.StoredFile{
		Reference:        reference,
		Name:             "sermon.mp3",
		MediaType:        "audio/mpeg",
		Backend:          models.BackendLocal,
		Location:         "uploads/2026/08/" + reference + ".mp3",
		ProcessingStatus: models.ProcessingPending,
	}
}

func testProcessor(t *testing.T, reg *fakeRegistry, extractor Extractor) *Processor {
	t.Helper()
	backend := &fakeBackend{kind: models.BackendLocal, content: map[string][]byte{}}
	reg.mu.Lock()
	for _, file := range reg.files {
		backend.content[file.Location] = []byte("audio bytes")
	}
	reg.mu.Unlock()

	proc := NewProcessor(reg,
		map[models.BackendKind]storage.Backend{models.BackendLocal: backend},
		extractor, nil,
		Options{Workers: 2, MaxAttempts: 3, RetryDelay: 5 * time.Millisecond, QueueSize: 16})
	proc.Start(context.Background())
	t.Cleanup(proc.Stop)
	return proc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestProcessorExtractsDuration(t *testing.T) {
	reg := newFakeRegistry(audioFile("fl-ok"))
	proc := testProcessor(t, reg, &scriptedExtractor{durations: []int{185}})

	if err := proc.Dispatch(context.Background(), "fl-ok"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitFor(t, "completion", func() bool {
		return reg.snapshot("fl-ok").ProcessingStatus == models.ProcessingCompleted
	})
	file := reg.snapshot("fl-ok")
	if file.DurationSeconds != 185 {
		t.Fatalf("duration = %d, want 185", file.DurationSeconds)
	}
	if file.ProcessingErrors != "" {
		t.Fatalf("errors = %q, want empty", file.ProcessingErrors)
	}
}

func TestProcessorRetriesThenSucceeds(t *testing.T) {
	reg := newFakeRegistry(audioFile("fl-retry"))
	extractor := &scriptedExtractor{failUntil: 2, durations: []int{90}}
	proc := testProcessor(t, reg, extractor)

	if err := proc.Dispatch(context.Background(), "fl-retry"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitFor(t, "completion after retries", func() bool {
		return reg.snapshot("fl-retry").ProcessingStatus == models.ProcessingCompleted
	})
	if calls := extractor.callCount(); calls != 3 {
		t.Fatalf("extractor calls = %d, want 3", calls)
	}
	file := reg.snapshot("fl-retry")
	if file.DurationSeconds != 90 || file.ProcessingErrors != "" {
		t.Fatalf("unexpected state %+v", file)
	}
}

func TestProcessorExhaustsAttempts(t *testing.T) {
	reg := newFakeRegistry(audioFile("fl-doomed"))
	extractor := &scriptedExtractor{failUntil: 100}
	proc := testProcessor(t, reg, extractor)

	if err := proc.Dispatch(context.Background(), "fl-doomed"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	waitFor(t, "terminal failure", func() bool {
		return reg.snapshot("fl-doomed").ProcessingStatus == models.ProcessingFailed
	})

	// No further retries after the budget is spent.
	time.Sleep(30 * time.Millisecond)
	if calls := extractor.callCount(); calls != 3 {
		t.Fatalf("extractor calls = %d, want exactly 3", calls)
	}
	file := reg.snapshot("fl-doomed")
	if file.ProcessingErrors == "" {
		t.Fatal("expected last failure reason to be recorded")
	}
	if file.ProcessingErrors != "extract duration: probe: no frame header (attempt 3)" {
		t.Fatalf("errors = %q", file.ProcessingErrors)
	}
}

func TestProcessorRedispatchIsIdempotent(t *testing.T) {
	reg := newFakeRegistry(audioFile("fl-again"))
	extractor := &scriptedExtractor{durations: []int{100, 200}}
	proc := testProcessor(t, reg, extractor)
	ctx := context.Background()

	if err := proc.Dispatch(ctx, "fl-again"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	waitFor(t, "first completion", func() bool {
		return reg.snapshot("fl-again").ProcessingStatus == models.ProcessingCompleted &&
			reg.snapshot("fl-again").DurationSeconds == 100
	})

	if err := proc.Dispatch(ctx, "fl-again"); err != nil {
		t.Fatalf("redispatch: %v", err)
	}
	waitFor(t, "second completion", func() bool {
		return reg.snapshot("fl-again").DurationSeconds == 200
	})
	// State reflects only the last run; nothing accumulates.
	file := reg.snapshot("fl-again")
	if file.ProcessingStatus != models.ProcessingCompleted || file.ProcessingErrors != "" {
		t.Fatalf("unexpected state %+v", file)
	}
}

func TestProcessorSkipsNonAudio(t *testing.T) {
	doc := audioFile("fl-doc")
	doc.MediaType = "application/pdf"
	doc.ProcessingStatus = ""
	reg := newFakeRegistry(doc)
	extractor := &scriptedExtractor{}
	proc := testProcessor(t, reg, extractor)

	if err := proc.Dispatch(context.Background(), "fl-doc"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	if calls := extractor.callCount(); calls != 0 {
		t.Fatalf("extractor should not run for non-audio, got %d calls", calls)
	}
}
