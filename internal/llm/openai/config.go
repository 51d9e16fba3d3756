package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config for the OpenAI-backed adapters.
type Config struct {
	APIKey          string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL         string        // default https://api.openai.com/v1
	Model           string        // chat model, e.g. "gpt-4o-mini"
	TranscribeModel string        // e.g. "whisper-1"
	Temperature     float32       // 0..2
	Timeout         time.Duration // http client timeout
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.TranscribeModel == "" {
		c.TranscribeModel = string(oai.AudioModelWhisper1)
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}

// RequestOptions turns cfg into openai-go client options.
func RequestOptions(cfg Config) []option.RequestOption {
	cfg = cfg.withDefaults()
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

// Client implements llm.PhraseExtractor with Chat Completions.
type Client struct {
	cfg    Config
	api    oai.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger, extra ...option.RequestOption) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		api:    oai.NewClient(append(RequestOptions(cfg), extra...)...),
		logger: logger,
	}
}
