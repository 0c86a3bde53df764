package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/54b3r/docqa-go/internal/ingestion"
)

// uploadRequest builds a multipart POST /api/documents request with one file.
func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	w := ts.do(uploadRequest(t, "file", "oop.md", "# OOP\n\nClasses and objects."))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "Document 'oop.md' ingested successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", resp.Chunks)
	}
	if ts.ingester.names[0] != "oop.md" || !strings.Contains(ts.ingester.bodies[0], "Classes and objects.") {
		t.Errorf("ingester got %v %v", ts.ingester.names, ts.ingester.bodies)
	}
	if got := testutil.ToFloat64(ts.metrics.uploadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("uploads_total{ok} = %v", got)
	}
}

func TestHandleUpload_StripsDirectories(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	w := ts.do(uploadRequest(t, "file", "../../etc/notes.txt", "hello"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ts.ingester.names[0] != "notes.txt" {
		t.Errorf("name = %q, want base name", ts.ingester.names[0])
	}
}

func TestHandleUpload_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		ingErr   error
		wantCode int
	}{
		{
			name:     "unsupported extension",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "file", "deck.pptx", "x") },
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong field",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "document", "a.txt", "x") },
			wantCode: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(*testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("{}"))
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "empty document",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "file", "a.txt", " ") },
			ingErr:   fmt.Errorf("ingestion: a.txt: %w", ingestion.ErrEmptyDocument),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "backend failure",
			req:      func(t *testing.T) *http.Request { return uploadRequest(t, "file", "a.txt", "text") },
			ingErr:   errors.New("ingestion: upsert failed"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			ts.ingester.err = tt.ingErr

			w := ts.do(tt.req(t))
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 512 })
	w := ts.do(uploadRequest(t, "file", "big.txt", strings.Repeat("x", 4096)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if len(ts.ingester.names) != 0 {
		t.Error("oversized upload reached the ingester")
	}
}
