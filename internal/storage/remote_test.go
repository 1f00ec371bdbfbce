package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeObjectStore is a minimal in-memory object store API.
type fakeObjectStore struct {
	objects map[string][]byte
	// sizeOverride lets tests report a size different from the client bytes.
	sizeOverride int64
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/objects", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		objectID := r.FormValue("object_id")
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.objects[objectID] = content

		size := int64(len(content))
		if f.sizeOverride > 0 {
			size = f.sizeOverride
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object_id":  objectID,
			"secure_url": fmt.Sprintf("https://%s/v1/objects/%s.bin", r.Host, objectID),
			"bytes":      size,
		})
	})
	mux.HandleFunc("/v1/objects/", func(w http.ResponseWriter, r *http.Request) {
		objectID := strings.TrimPrefix(r.URL.Path, "/v1/objects/")
		content, ok := f.objects[objectID]
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write(content)
		case http.MethodDelete:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(f.objects, objectID)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func testRemoteStore(t *testing.T, fake *fakeObjectStore) *RemoteStore {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	store, err := NewRemoteStore(srv.URL, "test-key", "mediad")
	if err != nil {
		t.Fatalf("NewRemoteStore: %v", err)
	}
	return store
}

func TestRemoteStoreRoundTrip(t *testing.T) {
	fake := newFakeObjectStore()
	store := testRemoteStore(t, fake)
	ctx := context.Background()

	result, err := store.Store(ctx, strings.NewReader("jpeg bytes"), "photo.jpg")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !strings.HasPrefix(result.Location, "mediad/") {
		t.Fatalf("expected namespaced object id, got %q", result.Location)
	}
	if result.SizeBytes != int64(len("jpeg bytes")) {
		t.Fatalf("size = %d, want %d", result.SizeBytes, len("jpeg bytes"))
	}
	if !strings.HasPrefix(result.URL, "https://") {
		t.Fatalf("expected secure URL, got %q", result.URL)
	}

	exists, err := store.Exists(ctx, result.Location)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}

	rc, err := store.Open(ctx, result.Location)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(content) != "jpeg bytes" {
		t.Fatalf("Open content = %q, %v", content, err)
	}

	deleted, err := store.Delete(ctx, result.Location)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v; want true", deleted, err)
	}
	deleted, err = store.Delete(ctx, result.Location)
	if err != nil || deleted {
		t.Fatalf("repeat Delete = %v, %v; want false, nil", deleted, err)
	}
}

func TestRemoteStoreReportedSizeIsAuthoritative(t *testing.T) {
	fake := newFakeObjectStore()
	fake.sizeOverride = 4242
	store := testRemoteStore(t, fake)

	result, err := store.Store(context.Background(), strings.NewReader("tiny"), "clip.mp4")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if result.SizeBytes != 4242 {
		t.Fatalf("expected remote-reported size 4242, got %d", result.SizeBytes)
	}
}

func TestRemoteStoreUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "upstream unavailable"})
	}))
	defer srv.Close()

	store, err := NewRemoteStore(srv.URL, "", "")
	if err != nil {
		t.Fatalf("NewRemoteStore: %v", err)
	}
	_, err = store.Store(context.Background(), strings.NewReader("x"), "photo.jpg")
	if err == nil {
		t.Fatal("expected upload error")
	}
	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Fatalf("expected remote error text, got %v", err)
	}
}

func TestObjectIDFromURL(t *testing.T) {
	cases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://store.example.com/v1/objects/mediad/abc123.bin", want: "mediad/abc123"},
		{url: "https://store.example.com/v1/objects/mediad/abc123", want: "mediad/abc123"},
		{url: "https://store.example.com/v1/objects/deep/folder/id.jpg", want: "deep/folder/id"},
		{url: "https://elsewhere.example.com/files/abc", wantErr: true},
		{url: "https://store.example.com/v1/objects/", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ObjectIDFromURL(tc.url)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ObjectIDFromURL(%q): expected error", tc.url)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ObjectIDFromURL(%q): %v", tc.url, err)
		}
		if got != tc.want {
			t.Fatalf("ObjectIDFromURL(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
