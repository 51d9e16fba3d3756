package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/voice-orders/constants"
)

// Audio is an opened recording. Close releases the underlying file or
// response body.
type Audio struct {
	io.ReadCloser
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
}

// AudioSource resolves audio references: plain paths, file:// URLs and
// http(s):// URLs.
type AudioSource struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewAudioSource(timeout time.Duration, logger *slog.Logger) *AudioSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioSource{
		client:   &http.Client{Timeout: timeout},
		maxBytes: constants.MaxAudioBytes,
		logger:   logger,
	}
}

// Open returns a reader for ref. Unsupported extensions and oversized local
// files are rejected before any bytes are read.
func (s *AudioSource) Open(ctx context.Context, ref string) (*Audio, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty audio reference")
	}
	u, err := url.Parse(ref)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return s.openHTTP(ctx, u)
		case "file":
			return s.openFile(u.Path)
		}
	}
	return s.openFile(ref)
}

func (s *AudioSource) openFile(p string) (*Audio, error) {
	ct := constants.AudioContentType(filepath.Ext(p))
	if ct == "" {
		return nil, fmt.Errorf("unsupported audio format: %s", filepath.Ext(p))
	}
	st, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat audio: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("audio reference is a directory: %s", p)
	}
	if st.Size() > s.maxBytes {
		return nil, fmt.Errorf("audio too large: %d bytes (max %d)", st.Size(), s.maxBytes)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	s.logger.Debug("transcribe.source.file", "path", p, "bytes", st.Size())
	return &Audio{ReadCloser: f, Filename: filepath.Base(p), ContentType: ct, Size: st.Size()}, nil
}

func (s *AudioSource) openHTTP(ctx context.Context, u *url.URL) (*Audio, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch audio: status %d", resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("audio too large: %d bytes (max %d)", resp.ContentLength, s.maxBytes)
	}

	name := path.Base(u.Path)
	ct := constants.AudioContentType(path.Ext(name))
	if ct == "" {
		// trust the server when the URL carries no usable extension
		ct = strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
		if !strings.HasPrefix(ct, "audio/") && !strings.HasPrefix(ct, "video/") {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("unsupported audio content type %q", ct)
		}
		if name == "" || name == "/" || name == "." {
			name = "audio"
		}
		name += "." + extForContentType(ct)
	}
	s.logger.Debug("transcribe.source.http", "url", u.Redacted(), "bytes", resp.ContentLength)
	return &Audio{
		ReadCloser:  limitedBody{Reader: io.LimitReader(resp.Body, s.maxBytes), Closer: resp.Body},
		Filename:    name,
		ContentType: ct,
		Size:        resp.ContentLength,
	}, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}

var extByContentType = map[string]string{
	"audio/mpeg": "mp3",
	"audio/mp4":  "m4a",
	"audio/wav":  "wav",
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
	"audio/flac": "flac",
}

func extForContentType(ct string) string {
	if ext, ok := extByContentType[ct]; ok {
		return ext
	}
	return "webm"
}
