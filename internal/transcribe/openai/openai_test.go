package openai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	llmopenai "github.com/joseph-ayodele/voice-orders/internal/llm/openai"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
)

type captured struct {
	mu     sync.Mutex
	fields map[string]string
	file   string
}

func newServer(t *testing.T, reply string, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{fields: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			c.mu.Lock()
			for k, v := range r.MultipartForm.Value {
				c.fields[k] = v[0]
			}
			if fh := r.MultipartForm.File["file"]; len(fh) > 0 {
				c.file = fh[0].Filename
			}
			c.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestTranscribe_SendsHintsAndReadsLanguage(t *testing.T) {
	t.Parallel()
	srv, got := newServer(t, `{"text":" Drei Kisten Cola. ","language":"german","duration":2.1}`, http.StatusOK)
	tr := New(llmopenai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := tr.Transcribe(context.Background(), transcribe.Request{
		Audio:       strings.NewReader("RIFF"),
		Filename:    "order.wav",
		ContentType: "audio/wav",
		Language:    "de",
		Prompt:      "Bestellung",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "Drei Kisten Cola." {
		t.Errorf("Text=%q", res.Text)
	}
	if res.Language != "german" {
		t.Errorf("Language=%q, want german", res.Language)
	}

	got.mu.Lock()
	defer got.mu.Unlock()
	want := map[string]string{
		"model":           "whisper-1",
		"language":        "de",
		"prompt":          "Bestellung",
		"response_format": "verbose_json",
	}
	for k, v := range want {
		if got.fields[k] != v {
			t.Errorf("form %s=%q, want %q", k, got.fields[k], v)
		}
	}
	if got.file != "order.wav" {
		t.Errorf("file name=%q, want order.wav", got.file)
	}
}

func TestTranscribe_FallsBackToHint(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, `{"text":"Milch"}`, http.StatusOK)
	tr := New(llmopenai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/", TranscribeModel: "gpt-4o-mini-transcribe"}, nil)

	res, err := tr.Transcribe(context.Background(), transcribe.Request{
		Audio: strings.NewReader("x"), Filename: "a.mp3", ContentType: "audio/mpeg", Language: "de",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Language != "de" {
		t.Errorf("Language=%q, want de", res.Language)
	}
}

func TestTranscribe_ServiceError(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, `{"error":{"message":"bad audio"}}`, http.StatusBadRequest)
	tr := New(llmopenai.Config{APIKey: "k", BaseURL: srv.URL + "/v1/"}, nil)

	if _, err := tr.Transcribe(context.Background(), transcribe.Request{
		Audio: strings.NewReader("x"), Filename: "a.mp3", ContentType: "audio/mpeg",
	}); err == nil {
		t.Fatal("expected error")
	}
}
