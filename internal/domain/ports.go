package domain

import "context"

// DirectoryAPI is the consumed surface of the THENA backend (directory,
// reviews, place-search proxy, auth). Implementations translate transport
// failures into the sentinel errors in errors.go.
type DirectoryAPI interface {
	// Place search proxy
	Autocomplete(ctx context.Context, query string) ([]Suggestion, error)
	PlaceDetails(ctx context.Context, placeID string) (map[string]any, error)

	// Directory
	LookupByExternalID(ctx context.Context, externalID string) (*Bundle, error)
	GetEstablishment(ctx context.Context, id int64) (*Bundle, error)
	CreateEstablishment(ctx context.Context, p Place) (*Establishment, error)

	// Reviews
	CreateReview(ctx context.Context, in ReviewInput) (*Review, error)
	DeleteReview(ctx context.Context, id int64) error

	// Auth
	Me(ctx context.Context) (*Session, error)
	RequestMagicLink(ctx context.Context, email, displayName string) (devLink string, err error)
	VerifyMagicLink(ctx context.Context, link string) error
	Logout(ctx context.Context) error
}

// DraftStore owns the persisted per-key review drafts. All operations are
// no-ops on an empty key; Load never returns nil.
type DraftStore interface {
	Save(ctx context.Context, key string, partial map[string]any) error
	Load(ctx context.Context, key string) (map[string]any, error)
	Clear(ctx context.Context, key string) error
	Rekey(ctx context.Context, oldKey, newKey string) error
}

// StateStore persists the small bits of client state that survive restarts:
// last search text, last-selected place id, last-resolved establishment id.
type StateStore interface {
	SetLastQuery(ctx context.Context, q string) error
	LastQuery(ctx context.Context) (string, error)
	SetCurrentPlaceID(ctx context.Context, id string) error
	SetCurrentEstablishmentID(ctx context.Context, id int64) error
}
