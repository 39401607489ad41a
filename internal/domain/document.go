package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToDocument converts a record into its plain JSON map form.
// Stores use it so every backend sees the same field names as the json tags.
func ToDocument(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}

// ToPlain converts any value into JSON-compatible maps, slices and scalars
func ToPlain(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyMerge sets each (possibly dotted) field path on doc, creating intermediate maps
func ApplyMerge(doc map[string]interface{}, fields map[string]interface{}) error {
	for path, value := range fields {
		plain, err := ToPlain(value)
		if err != nil {
			return fmt.Errorf("encode field %s: %w", path, err)
		}
		parts := strings.Split(path, ".")
		cur := doc
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]interface{})
			if !ok {
				next = map[string]interface{}{}
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = plain
	}
	return nil
}

// FieldValue reads a dotted path from doc
func FieldValue(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
