package domain

import "time"

// Place is the canonical shape of a place-search result. ExternalID is the
// search provider's identifier and the sole reconciliation key into the
// directory; every other field is display-only and may be stale.
type Place struct {
	ExternalID     string
	Name           string
	Address        string
	RatingExternal *float64 // provider rating, 0..5
	Categories     []string
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Establishment is the directory's canonical record for a place,
// created lazily on first review submission. The backend assigns ID;
// the client never invents one.
type Establishment struct {
	ID             int64     `json:"id"`
	ExternalID     string    `json:"google_place_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	RatingExternal *float64  `json:"google_rating"`
	Categories     []string  `json:"types"`
	CreatedAt      time.Time `json:"created_at"`
}

// Bundle pairs an establishment with its full review list; it is the unit
// the panel renders from. A bundle is resolved only when both the
// establishment and the reviews array are structurally present — Reviews
// stays nil when the backend answered with entry-only data, and the
// resolver upgrades such bundles with a secondary fetch.
type Bundle struct {
	Establishment *Establishment `json:"establishment"`
	Reviews       []Review       `json:"reviews"`

	// Server-side aggregates, display-only.
	Avg         *float64 `json:"thena_avg"`
	CountScored int      `json:"thena_count_scored"`
	CountTotal  int      `json:"thena_count_total"`
}

// Resolved reports whether the bundle satisfies the strict validity
// invariant: entry and reviews array both present.
func (b *Bundle) Resolved() bool {
	return b != nil && b.Establishment != nil && b.Reviews != nil
}
