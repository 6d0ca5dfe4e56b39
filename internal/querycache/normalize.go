package querycache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// maxEnvelopeDepth bounds how many {"data": ...} wrappers are peeled. The
// remote API answers bare, wrapped once, or wrapped twice for paginated lists.
const maxEnvelopeDepth = 2

// Unwrap strips response envelopes and returns the innermost payload.
func Unwrap(raw json.RawMessage) json.RawMessage {
	current := bytes.TrimSpace(raw)
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		doc := gjson.ParseBytes(current)
		if !doc.IsObject() {
			break
		}
		inner := doc.Get("data")
		if !inner.Exists() {
			break
		}
		current = bytes.TrimSpace([]byte(inner.Raw))
	}
	return current
}

func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// decodeList normalises a collection response. A null or missing body decodes
// into an empty slice so callers never branch on shape.
func decodeList[T any](raw json.RawMessage) (interface{}, error) {
	inner := Unwrap(raw)
	if isEmpty(inner) {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// decodeOne normalises a detail response.
func decodeOne[T any](raw json.RawMessage) (interface{}, error) {
	inner := Unwrap(raw)
	if isEmpty(inner) {
		return nil, fmt.Errorf("decode entity: empty payload")
	}
	var item T
	if err := json.Unmarshal(inner, &item); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return item, nil
}

// decodeOptional is used by mutations that may answer with an empty body.
func decodeOptional[T any](raw json.RawMessage) (interface{}, error) {
	inner := Unwrap(raw)
	if isEmpty(inner) {
		return nil, nil
	}
	var item T
	if err := json.Unmarshal(inner, &item); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return item, nil
}

func discardBody(json.RawMessage) (interface{}, error) {
	return nil, nil
}
