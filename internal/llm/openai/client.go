package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/joseph-ayodele/voice-orders/internal/llm"
)

// ExtractItems implements llm.PhraseExtractor. The reply is constrained by a
// strict JSON schema, validated locally, and decoded leniently: rows that do
// not carry a name, a positive quantity and a unit are dropped and logged.
func (c *Client) ExtractItems(ctx context.Context, text string) ([]llm.ExtractedItem, error) {
	rid := uuid.NewString()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(text),
	)

	schema := llm.BuildOrderItemsJSONSchema()
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(llm.BuildSystemPrompt()),
			oai.UserMessage(llm.BuildUserPrompt(text)),
		},
		Temperature: oai.Float(float64(c.cfg.Temperature)),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   llm.SchemaName,
					Strict: oai.Bool(true),
					Schema: schema,
				},
			},
		},
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(resp.Choices[0].Message.Content))
	if len(content) == 0 {
		return nil, fmt.Errorf("empty openai response")
	}

	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		c.logger.Warn("llm.extract.schema_mismatch",
			"req_id", rid, "error", err,
			"hint", "falling back to row-level decoding",
		)
	}
	items, dropped, err := llm.DecodeItems(content)
	if err != nil {
		c.logger.Error("llm.extract.decode_failed",
			"req_id", rid, "error", err, "content", string(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	for _, d := range dropped {
		c.logger.Warn("llm.extract.row_dropped", "req_id", rid, "index", d.Index, "reason", d.Reason)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"items", len(items),
		"dropped", len(dropped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return items, nil
}
