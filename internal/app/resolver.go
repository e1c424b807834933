package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"thena/internal/domain"
)

// Resolver reconciles external place identifiers against the directory.
type Resolver struct {
	api    domain.DirectoryAPI
	drafts domain.DraftStore
	sf     singleflight.Group
	log    zerolog.Logger
}

func NewResolver(api domain.DirectoryAPI, drafts domain.DraftStore, log zerolog.Logger) *Resolver {
	return &Resolver{api: api, drafts: drafts, log: log}
}

// Resolve returns the bundle for an external place id, or (nil, nil) when
// the place is confirmed absent from the directory (404/422 across every
// lookup route). Transport and server failures propagate. Concurrent
// resolves for one id are collapsed into a single backend call.
func (r *Resolver) Resolve(ctx context.Context, externalID string) (*domain.Bundle, error) {
	if externalID == "" {
		return nil, nil
	}
	v, err, _ := r.sf.Do(externalID, func() (any, error) {
		b, err := r.api.LookupByExternalID(ctx, externalID)
		if err != nil {
			if domain.NotFoundish(err) {
				return (*domain.Bundle)(nil), nil
			}
			return nil, err
		}
		return r.upgrade(ctx, b), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Bundle), nil
}

// upgrade enforces the bundle validity invariant: entry-only responses get
// one secondary fetch-by-id; if that fails the reviews list degrades to
// empty rather than failing the resolve.
func (r *Resolver) upgrade(ctx context.Context, b *domain.Bundle) *domain.Bundle {
	if b == nil || b.Resolved() {
		return b
	}
	if b.Establishment == nil {
		return nil
	}
	full, err := r.api.GetEstablishment(ctx, b.Establishment.ID)
	if err == nil && full.Resolved() {
		return full
	}
	if err != nil {
		r.log.Warn().Int64("est_id", b.Establishment.ID).Err(err).Msg("secondary bundle fetch failed")
	}
	b.Reviews = []domain.Review{}
	return b
}

// RefreshByID re-fetches the full bundle for a known establishment.
func (r *Resolver) RefreshByID(ctx context.Context, id int64) (*domain.Bundle, error) {
	b, err := r.api.GetEstablishment(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.upgrade(ctx, b), nil
}

// EnsureExists returns current unchanged when it already carries an
// establishment (idempotent, no network). Otherwise it creates the entry
// from the place snapshot, re-resolves by the server-assigned id, and
// migrates any place-keyed draft to the entry key so in-progress edits
// survive the key switch.
func (r *Resolver) EnsureExists(ctx context.Context, place *domain.Place, current *domain.Bundle) (*domain.Bundle, error) {
	if current != nil && current.Establishment != nil {
		return current, nil
	}
	if place == nil || place.ExternalID == "" {
		return nil, fmt.Errorf("no place selected")
	}

	created, err := r.api.CreateEstablishment(ctx, *place)
	if err != nil {
		return nil, err
	}

	bundle, err := r.RefreshByID(ctx, created.ID)
	if err != nil {
		// The entry exists; serve it with an empty list rather than
		// failing the whole flow on the re-resolve.
		r.log.Warn().Int64("est_id", created.ID).Err(err).Msg("re-resolve after create failed")
		bundle = &domain.Bundle{Establishment: created, Reviews: []domain.Review{}}
	}

	oldKey := "place:" + place.ExternalID
	newKey := fmt.Sprintf("est:%d", bundle.Establishment.ID)
	if err := r.drafts.Rekey(ctx, oldKey, newKey); err != nil {
		r.log.Warn().Str("from", oldKey).Str("to", newKey).Err(err).Msg("draft migration failed")
	}
	return bundle, nil
}
