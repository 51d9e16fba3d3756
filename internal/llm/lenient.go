package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoItemsArray means the reply was not an object with an "items" array.
var ErrNoItemsArray = errors.New(`reply has no "items" array`)

// DroppedRow describes a row DecodeItems rejected.
type DroppedRow struct {
	Index  int
	Reason string
}

// DecodeItems reads the items of a model reply, keeping well-formed rows in
// order and reporting the rest. A row needs a non-empty articleName, a
// positive numeric quantity and a string unit. Numeric strings such as "1,5"
// are accepted as quantities.
func DecodeItems(doc []byte) ([]ExtractedItem, []DroppedRow, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode reply: %w", err)
	}
	rawItems, ok := envelope["items"]
	if !ok {
		return nil, nil, ErrNoItemsArray
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(rawItems, &rows); err != nil {
		return nil, nil, ErrNoItemsArray
	}

	items := make([]ExtractedItem, 0, len(rows))
	var dropped []DroppedRow
	for i, raw := range rows {
		it, reason := decodeRow(raw)
		if reason != "" {
			dropped = append(dropped, DroppedRow{Index: i, Reason: reason})
			continue
		}
		items = append(items, it)
	}
	return items, dropped, nil
}

func decodeRow(raw json.RawMessage) (ExtractedItem, string) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ExtractedItem{}, "not an object"
	}

	name, _ := m["articleName"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return ExtractedItem{}, "missing articleName"
	}

	var qty float64
	switch v := m["quantity"].(type) {
	case float64:
		qty = v
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
		if err != nil {
			return ExtractedItem{}, "non-numeric quantity"
		}
		qty = f
	default:
		return ExtractedItem{}, "missing quantity"
	}
	if qty <= 0 {
		return ExtractedItem{}, "non-positive quantity"
	}
	if math.Round(qty) < 1 {
		return ExtractedItem{}, "quantity rounds to zero"
	}

	unit, ok := m["unit"].(string)
	if !ok {
		return ExtractedItem{}, "missing unit"
	}
	return ExtractedItem{ArticleName: name, Quantity: qty, Unit: strings.TrimSpace(unit)}, ""
}
