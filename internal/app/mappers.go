package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"thena/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Place-search payloads arrive in several near-duplicate shapes depending
// on which backend route produced them. First non-null alias wins, in order.
var placeAliases = map[string][]string{
	"external_id": {"place_id", "google_place_id", "googlePlaceId"},
	"name":        {"name"},
	"address":     {"formatted_address", "address"},
	"rating":      {"rating", "google_rating", "googleRating", "google.rating"},
	"categories":  {"types", "place_types", "place.types"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmpty: first non-empty string across the alias paths for key.
func firstNonEmpty(m map[string]any, key string) string {
	for _, p := range placeAliases[key] {
		if s := lookupStr(m, p); s != "" {
			return s
		}
	}
	return ""
}

// firstFloat: number from the alias paths (float64/int/string like "8,0").
func firstFloat(m map[string]any, key string) *float64 {
	for _, p := range placeAliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// stringSlice coerces an []any of strings; non-strings are skipped.
func stringSlice(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

/********** place normalizer **********/

// NormalizePlace maps a raw place-search/details record into the canonical
// Place. Pure and total: missing fields degrade to empty string / nil /
// empty slice, never an error. Categories tolerate both a real array and a
// JSON-encoded string (types_json); malformed JSON degrades to empty.
func NormalizePlace(raw map[string]any) domain.Place {
	p := domain.Place{
		ExternalID: firstNonEmpty(raw, "external_id"),
		Name:       firstNonEmpty(raw, "name"),
		Address:    firstNonEmpty(raw, "address"),
		Categories: []string{},
	}

	// provider ratings live on a 0..5 scale; anything else is noise
	if f := firstFloat(raw, "rating"); f != nil && !math.IsNaN(*f) && !math.IsInf(*f, 0) && *f >= 0 && *f <= 5 {
		p.RatingExternal = f
	}

	for _, path := range placeAliases["categories"] {
		if arr, ok := lookupAny(raw, path).([]any); ok {
			if cats := stringSlice(arr); len(cats) > 0 {
				p.Categories = cats
				return p
			}
		}
	}
	if s := lookupStr(raw, "types_json"); s != "" {
		var cats []string
		if err := json.Unmarshal([]byte(s), &cats); err == nil && cats != nil {
			p.Categories = cats
		}
	}
	return p
}
