// Package openai implements transcribe.Transcriber with the OpenAI audio
// transcription endpoint.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	llmopenai "github.com/joseph-ayodele/voice-orders/internal/llm/openai"
	"github.com/joseph-ayodele/voice-orders/internal/transcribe"
)

type Transcriber struct {
	api    oai.Client
	model  string
	logger *slog.Logger
}

var _ transcribe.Transcriber = (*Transcriber)(nil)

func New(cfg llmopenai.Config, logger *slog.Logger, extra ...option.RequestOption) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.TranscribeModel
	if model == "" {
		model = string(oai.AudioModelWhisper1)
	}
	return &Transcriber{
		api:    oai.NewClient(append(llmopenai.RequestOptions(cfg), extra...)...),
		model:  model,
		logger: logger,
	}
}

// Transcribe uploads the recording and returns its text. whisper-1 is asked
// for verbose_json so the detected language is reported; other models only
// speak json and the hint is echoed back.
func (t *Transcriber) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	rid := uuid.NewString()
	start := time.Now()
	t.logger.Info("stt.transcribe.start",
		"req_id", rid,
		"model", t.model,
		"filename", req.Filename,
		"language", req.Language,
	)

	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(req.Audio, req.Filename, req.ContentType),
		Model:          oai.AudioModel(t.model),
		ResponseFormat: oai.AudioResponseFormatJSON,
	}
	if t.model == string(oai.AudioModelWhisper1) {
		params.ResponseFormat = oai.AudioResponseFormatVerboseJSON
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	res, err := t.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		t.logger.Error("stt.transcribe.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return transcribe.Result{}, fmt.Errorf("openai transcription: %w", err)
	}

	out := transcribe.Result{
		Text:     strings.TrimSpace(res.Text),
		Language: detectedLanguage(res.RawJSON(), req.Language),
	}
	t.logger.Info("stt.transcribe.ok",
		"req_id", rid,
		"text_len", len(out.Text),
		"language", out.Language,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func detectedLanguage(raw, hint string) string {
	var v struct {
		Language string `json:"language"`
	}
	if raw != "" && json.Unmarshal([]byte(raw), &v) == nil && v.Language != "" {
		return v.Language
	}
	return hint
}
