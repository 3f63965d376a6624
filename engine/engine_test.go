package engine

import (
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drummonds/gonotes/config"
	"github.com/drummonds/gonotes/internal/pdftest"
	"github.com/drummonds/gonotes/pdfrender"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// stubSource rasterizes every page as a blank image of the requested size
type stubSource struct {
	pages  int
	height float64
	closed bool
}

func (s *stubSource) PageCount() int { return s.pages }

func (s *stubSource) PageSize(index int) (float64, float64, error) {
	if s.height > 0 {
		return 612, s.height, nil
	}
	return 612, 792, nil
}

func (s *stubSource) Rasterize(index, width, height int) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

type stubBackend struct {
	loads      int
	sources    []*stubSource
	pageHeight float64
}

func (b *stubBackend) Load(data []byte) (pdfrender.Source, error) {
	b.loads++
	src := &stubSource{pages: 2, height: b.pageHeight}
	b.sources = append(b.sources, src)
	return src, nil
}

func (b *stubBackend) Close() error { return nil }

type testServer struct {
	handler *ServerHandler
	backend *stubBackend
	noteID  string
	dir     string
}

func newTestServer(t *testing.T, debug bool) *testServer {
	t.Helper()
	dir := t.TempDir()
	noteID := ulid.Make().String()
	pdftest.WriteFile(t, dir, noteID+".pdf", 2)

	serverConfig := config.ServerConfig{
		DocumentPath: dir,
		SigningKey:   "test-signing-key",
		Debug:        debug,
		Renderer:     "pdfium",
		FrontEndConfig: config.FrontEndConfig{
			RefreshInterval: 4 * time.Minute,
			URLLifetime:     5 * time.Minute,
		},
	}
	backend := &stubBackend{}
	handler := NewServerHandler(echo.New(), serverConfig, backend)
	handler.RegisterRoutes()
	return &testServer{handler: handler, backend: backend, noteID: noteID, dir: dir}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	ts.handler.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeFileResponse(t *testing.T, rec *httptest.ResponseRecorder) NoteFileResponse {
	t.Helper()
	var body NoteFileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestGetNoteFileURLIssuesSignedURL(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.get(t, "/notes/"+ts.noteID+"/file/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeFileResponse(t, rec)
	prefix := "/files/" + ts.noteID + "?token="
	if !strings.HasPrefix(body.URL, prefix) {
		t.Fatalf("Expected URL starting %q, got %q", prefix, body.URL)
	}
	if body.ExpiresAt == "" {
		t.Error("Expected expiry time in response")
	}

	token := strings.TrimPrefix(body.URL, prefix)
	if err := ts.handler.Signer.Verify(token, ts.noteID); err != nil {
		t.Errorf("Issued token does not verify: %v", err)
	}

	// The API alias returns the same contract
	if rec := ts.get(t, "/api/notes/"+ts.noteID+"/file"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from API alias, got %d", rec.Code)
	}
}

func TestGetNoteFileURLWithBaseURL(t *testing.T) {
	ts := newTestServer(t, false)
	ts.handler.ServerConfig.BaseURL = "https://notes.example.com/"

	body := decodeFileResponse(t, ts.get(t, "/notes/"+ts.noteID+"/file/"))
	if !strings.HasPrefix(body.URL, "https://notes.example.com/files/"+ts.noteID+"?token=") {
		t.Errorf("Expected absolute URL, got %q", body.URL)
	}
}

func TestGetNoteFileURLDebugIsUnsigned(t *testing.T) {
	ts := newTestServer(t, true)

	body := decodeFileResponse(t, ts.get(t, "/notes/"+ts.noteID+"/file/"))
	if body.URL != "/files/"+ts.noteID {
		t.Errorf("Expected unsigned URL, got %q", body.URL)
	}
	if rec := ts.get(t, body.URL); rec.Code != http.StatusOK {
		t.Errorf("Expected debug server to serve unsigned URL, got %d", rec.Code)
	}
}

func TestGetNoteFileURLErrors(t *testing.T) {
	ts := newTestServer(t, false)
	corruptID := ulid.Make().String()
	if err := os.WriteFile(filepath.Join(ts.dir, corruptID+".pdf"), []byte("not a pdf"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt attachment: %v", err)
	}

	tests := []struct {
		name       string
		noteID     string
		wantStatus int
		wantError  string
	}{
		{"invalid id", "not-a-ulid", http.StatusBadRequest, "Invalid note ID"},
		{"unknown note", ulid.Make().String(), http.StatusNotFound, "Note not found"},
		{"corrupt attachment", corruptID, http.StatusUnprocessableEntity, "Note has no readable PDF attachment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(t, "/notes/"+tt.noteID+"/file/")
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			body := decodeFileResponse(t, rec)
			if body.Error != tt.wantError || body.URL != "" {
				t.Errorf("Expected error %q and no URL, got %+v", tt.wantError, body)
			}
		})
	}
}

func TestServeNoteFileChecksToken(t *testing.T) {
	ts := newTestServer(t, false)
	token, _, err := ts.handler.Signer.Sign(ts.noteID)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	otherToken, _, _ := ts.handler.Signer.Sign(ulid.Make().String())

	expired := NewSigner("test-signing-key", 5*time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	expiredToken, _, _ := expired.Sign(ts.noteID)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"valid token", "?token=" + token, http.StatusOK},
		{"missing token", "", http.StatusForbidden},
		{"token for another note", "?token=" + otherToken, http.StatusForbidden},
		{"expired token", "?token=" + expiredToken, http.StatusForbidden},
		{"garbage token", "?token=abc", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(t, "/files/"+ts.noteID+tt.query)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
				t.Errorf("Expected application/pdf, got %q", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
				t.Errorf("Expected inline disposition, got %q", cd)
			}
			if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
				t.Error("Expected PDF body")
			}
		})
	}
}

func TestNoteFilePages(t *testing.T) {
	ts := newTestServer(t, false)
	token, _, _ := ts.handler.Signer.Sign(ts.noteID)
	base := "/files/" + ts.noteID

	rec := ts.get(t, base+"/info?token="+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from info, got %d: %s", rec.Code, rec.Body.String())
	}
	var info pdfrender.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to decode info: %v", err)
	}
	if info.Pages != 2 || len(info.Sizes) != 2 {
		t.Fatalf("Expected 2 pages, got %+v", info)
	}

	rec = ts.get(t, base+"/pages/2?width=306&token="+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from page, got %d: %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Page is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 306 || b.Dy() != 396 {
		t.Errorf("Expected 306x396, got %dx%d", b.Dx(), b.Dy())
	}

	if rec := ts.get(t, base+"/pages/3?token="+token); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing page, got %d", rec.Code)
	}
	if rec := ts.get(t, base+"/pages/1?width=-5&token="+token); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad width, got %d", rec.Code)
	}
	if rec := ts.get(t, base+"/pages/1"); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 without token, got %d", rec.Code)
	}

	if ts.backend.loads != 1 {
		t.Errorf("Expected attachment to be parsed once, got %d", ts.backend.loads)
	}
}

func TestNoteFilePageSizeIsBounded(t *testing.T) {
	ts := newTestServer(t, false)
	ts.backend.pageHeight = 612 * 100
	token, _, _ := ts.handler.Signer.Sign(ts.noteID)

	rec := ts.get(t, "/files/"+ts.noteID+"/pages/1?width=100000&token="+token)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from page, got %d: %s", rec.Code, rec.Body.String())
	}
	cfg, err := png.DecodeConfig(rec.Body)
	if err != nil {
		t.Fatalf("Page is not a PNG: %v", err)
	}
	if cfg.Height > maxPageHeight || cfg.Width*cfg.Height > maxPagePixels {
		t.Errorf("Expected at most %d rows and %d pixels, got %dx%d", maxPageHeight, maxPagePixels, cfg.Width, cfg.Height)
	}
	if cfg.Height < 90*cfg.Width {
		t.Errorf("Expected the page shape to be kept, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestHealthAndAbout(t *testing.T) {
	ts := newTestServer(t, false)
	if rec := ts.get(t, "/api/health"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", rec.Code)
	}
	rec := ts.get(t, "/api/about")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from about, got %d", rec.Code)
	}
	var about map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &about); err != nil {
		t.Fatalf("Failed to decode about: %v", err)
	}
	if about["urlLifetime"] != "5m0s" {
		t.Errorf("Expected urlLifetime 5m0s, got %v", about["urlLifetime"])
	}
}

func TestStartupChecks(t *testing.T) {
	ts := newTestServer(t, false)
	ts.handler.ServerConfig.DocumentPath = filepath.Join(t.TempDir(), "new", "documents")
	if err := ts.handler.StartupChecks(); err != nil {
		t.Fatalf("StartupChecks failed: %v", err)
	}
	if info, err := os.Stat(ts.handler.ServerConfig.DocumentPath); err != nil || !info.IsDir() {
		t.Errorf("Expected document directory to be created")
	}

	ts.handler.ServerConfig.SigningKey = ""
	if err := ts.handler.StartupChecks(); err == nil {
		t.Error("Expected error for missing signing key")
	}
}

func TestAttachmentInventory(t *testing.T) {
	ts := newTestServer(t, false)
	os.WriteFile(filepath.Join(ts.dir, "invoice.pdf"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(ts.dir, strings.ToLower(ulid.Make().String())+".pdf"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(ts.dir, "notes.txt"), []byte("x"), 0644)

	served, ignored := ts.handler.attachmentInventory()
	if served != 1 || ignored != 2 {
		t.Errorf("Expected 1 served and 2 ignored, got %d and %d", served, ignored)
	}
}
