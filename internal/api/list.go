package api

import (
	"encoding/json"
	"fmt"
)

// ListPage is the normalized form of every list response.
type ListPage[T any] struct {
	Items   []T
	HasNext bool
}

// collectList accepts the three list shapes the backend produces (a bare
// array, a {results, next} paginated envelope, or a {data} wrapper) and
// returns the items plus whether a further page exists.
func collectList[T any](raw json.RawMessage) (ListPage[T], error) {
	var page ListPage[T]
	if len(raw) == 0 {
		return page, nil
	}

	// Bare array first: cheapest probe and the most common shape.
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return page, fmt.Errorf("failed to decode list: %w", err)
		}
		return page, nil
	}

	var envelope struct {
		Results json.RawMessage `json:"results"`
		Data    json.RawMessage `json:"data"`
		Next    *string         `json:"next"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return page, fmt.Errorf("failed to decode list envelope: %w", err)
	}

	inner := envelope.Results
	if inner == nil {
		inner = envelope.Data
	}
	if inner == nil {
		return page, fmt.Errorf("response is neither an array nor a results/data envelope")
	}
	if err := json.Unmarshal(inner, &page.Items); err != nil {
		return page, fmt.Errorf("failed to decode list items: %w", err)
	}
	page.HasNext = envelope.Next != nil && *envelope.Next != ""
	return page, nil
}
