package transcribe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testSource() *AudioSource {
	return NewAudioSource(5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestAudioSource_LocalPathAndFileURL(t *testing.T) {
	t.Parallel()
	p := writeFile(t, "order.m4a", "RIFFDATA")
	src := testSource()

	for _, ref := range []string{p, "file://" + p} {
		a, err := src.Open(context.Background(), ref)
		if err != nil {
			t.Fatalf("Open(%s): %v", ref, err)
		}
		b, _ := io.ReadAll(a)
		_ = a.Close()
		if string(b) != "RIFFDATA" {
			t.Errorf("body=%q", b)
		}
		if a.Filename != "order.m4a" || a.ContentType != "audio/mp4" {
			t.Errorf("Filename=%q ContentType=%q", a.Filename, a.ContentType)
		}
	}
}

func TestAudioSource_RejectsUnsupported(t *testing.T) {
	t.Parallel()
	src := testSource()
	txt := writeFile(t, "notes.txt", "hello")

	refs := []string{"", txt, filepath.Join(t.TempDir(), "missing.mp3"), t.TempDir() + "/"}
	for _, ref := range refs {
		if a, err := src.Open(context.Background(), ref); err == nil {
			_ = a.Close()
			t.Errorf("Open(%q) succeeded, want error", ref)
		}
	}
}

func TestAudioSource_RejectsOversizedFile(t *testing.T) {
	t.Parallel()
	src := testSource()
	src.maxBytes = 4
	p := writeFile(t, "big.wav", "0123456789")
	if _, err := src.Open(context.Background(), p); err == nil {
		t.Error("oversized file accepted")
	}
}

func TestAudioSource_HTTP(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rec.mp3":
			_, _ = io.WriteString(w, "ID3")
		case "/blob":
			w.Header().Set("Content-Type", "audio/webm; codecs=opus")
			_, _ = io.WriteString(w, "WEBM")
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, "<html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	src := testSource()

	a, err := src.Open(context.Background(), srv.URL+"/rec.mp3")
	if err != nil {
		t.Fatalf("Open mp3: %v", err)
	}
	_ = a.Close()
	if a.ContentType != "audio/mpeg" || a.Filename != "rec.mp3" {
		t.Errorf("mp3: Filename=%q ContentType=%q", a.Filename, a.ContentType)
	}

	a, err = src.Open(context.Background(), srv.URL+"/blob")
	if err != nil {
		t.Fatalf("Open blob: %v", err)
	}
	_ = a.Close()
	if a.ContentType != "audio/webm" || a.Filename != "blob.webm" {
		t.Errorf("blob: Filename=%q ContentType=%q", a.Filename, a.ContentType)
	}

	for _, p := range []string{"/page", "/missing.mp3"} {
		if a, err := src.Open(context.Background(), srv.URL+p); err == nil {
			_ = a.Close()
			t.Errorf("Open(%s) succeeded, want error", p)
		}
	}
}
