package llm

// SchemaName is the structured-output name sent with the schema.
const SchemaName = "order_items"

// BuildOrderItemsJSONSchema returns the reply schema as a generic map. It is
// sent to the model as a strict structured-output constraint and reused to
// validate the reply locally. Strict mode rejects keywords such as minLength,
// so row-level checks live in DecodeItems.
func BuildOrderItemsJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"articleName": map[string]any{"type": "string"},
			"quantity":    map[string]any{"type": "number"},
			"unit":        map[string]any{"type": "string"},
		},
		"required":             []string{"articleName", "quantity", "unit"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{"type": "array", "items": item},
		},
		"required":             []string{"items"},
		"additionalProperties": false,
	}
}
