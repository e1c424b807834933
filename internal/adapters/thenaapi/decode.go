package thenaapi

import (
	"encoding/json"
	"fmt"

	"thena/internal/domain"
)

// The backend's route variants disagree on envelope shape: bare values,
// {data: ...} wrappers, full {establishment, reviews} bundles and bare
// entry objects all occur. Everything is funneled into one canonical shape
// here; payloads matching no known shape are rejected, not guessed at.

func decodeSuggestions(raw json.RawMessage) ([]domain.Suggestion, error) {
	var items []domain.Suggestion
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Data []domain.Suggestion `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	return nil, fmt.Errorf("autocomplete: unrecognized response shape")
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("place details: unrecognized response shape: %w", err)
	}
	if inner, ok := obj["data"].(map[string]any); ok && len(obj) == 1 {
		return inner, nil
	}
	return obj, nil
}

// decodeBundle accepts either a full {establishment, reviews[]} bundle or
// entry-only data (an establishment object at the top level, or under the
// establishment key with no reviews array). Reviews stays nil for
// entry-only payloads so callers can tell the shapes apart.
func decodeBundle(raw json.RawMessage) (*domain.Bundle, error) {
	var b domain.Bundle
	if err := json.Unmarshal(raw, &b); err == nil && b.Establishment != nil && b.Establishment.ID != 0 {
		return &b, nil
	}
	var est domain.Establishment
	if err := json.Unmarshal(raw, &est); err == nil && est.ID != 0 {
		return &domain.Bundle{Establishment: &est}, nil
	}
	return nil, fmt.Errorf("bundle: unrecognized response shape")
}
