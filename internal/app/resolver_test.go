package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thena/internal/domain"
)

func testResolver(api domain.DirectoryAPI, drafts domain.DraftStore) *Resolver {
	return NewResolver(api, drafts, zerolog.Nop())
}

func TestResolveEmptyIDSkipsNetwork(t *testing.T) {
	api := newFakeAPI()
	r := testResolver(api, newMemDrafts())

	b, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, 0, api.callCount("lookup"))
}

func TestResolveConfirmedAbsent(t *testing.T) {
	api := newFakeAPI()
	api.lookupFn = func(string) (*domain.Bundle, error) { return nil, domain.ErrNotFound }
	r := testResolver(api, newMemDrafts())

	b, err := r.Resolve(context.Background(), "gp-1")
	require.NoError(t, err)
	assert.Nil(t, b)

	api.lookupFn = func(string) (*domain.Bundle, error) { return nil, domain.ErrUnprocessable }
	b, err = r.Resolve(context.Background(), "gp-2")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestResolveTransportErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	api := newFakeAPI()
	api.lookupFn = func(string) (*domain.Bundle, error) { return nil, boom }
	r := testResolver(api, newMemDrafts())

	_, err := r.Resolve(context.Background(), "gp-1")
	assert.ErrorIs(t, err, boom)
}

func TestResolveUpgradesEntryOnlyBundle(t *testing.T) {
	est := &domain.Establishment{ID: 7, ExternalID: "gp-1", Name: "Le Zinc"}
	api := newFakeAPI()
	api.lookupFn = func(string) (*domain.Bundle, error) {
		return &domain.Bundle{Establishment: est}, nil
	}
	api.getFn = func(id int64) (*domain.Bundle, error) {
		return &domain.Bundle{
			Establishment: est,
			Reviews:       []domain.Review{{ID: 1, EstablishmentID: id, Comment: "ok"}},
		}, nil
	}
	r := testResolver(api, newMemDrafts())

	b, err := r.Resolve(context.Background(), "gp-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.Resolved())
	assert.Len(t, b.Reviews, 1)
	assert.Equal(t, 1, api.callCount("get"))
}

func TestResolveEntryOnlyFallsBackToEmptyReviews(t *testing.T) {
	est := &domain.Establishment{ID: 7, ExternalID: "gp-1"}
	api := newFakeAPI()
	api.lookupFn = func(string) (*domain.Bundle, error) {
		return &domain.Bundle{Establishment: est}, nil
	}
	api.getFn = func(int64) (*domain.Bundle, error) { return nil, errors.New("flaky") }
	r := testResolver(api, newMemDrafts())

	b, err := r.Resolve(context.Background(), "gp-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, b.Resolved())
	assert.Empty(t, b.Reviews)
}

func TestEnsureExistsIdempotent(t *testing.T) {
	api := newFakeAPI()
	r := testResolver(api, newMemDrafts())
	cur := &domain.Bundle{
		Establishment: &domain.Establishment{ID: 3, ExternalID: "gp-1"},
		Reviews:       []domain.Review{},
	}

	got, err := r.EnsureExists(context.Background(), &domain.Place{ExternalID: "gp-1"}, cur)
	require.NoError(t, err)
	assert.Same(t, cur, got)
	assert.Equal(t, 0, api.callCount("createEst"))
}

func TestEnsureExistsCreatesAndMigratesDraft(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.createEstFn = func(p domain.Place) (*domain.Establishment, error) {
		return &domain.Establishment{ID: 42, ExternalID: p.ExternalID, Name: p.Name}, nil
	}
	api.getFn = func(id int64) (*domain.Bundle, error) {
		return &domain.Bundle{
			Establishment: &domain.Establishment{ID: id, ExternalID: "gp-1"},
			Reviews:       []domain.Review{},
		}, nil
	}
	drafts := newMemDrafts()
	require.NoError(t, drafts.Save(ctx, "place:gp-1", map[string]any{"comment": "brouillon"}))
	r := testResolver(api, drafts)

	b, err := r.EnsureExists(ctx, &domain.Place{ExternalID: "gp-1", Name: "Le Zinc"}, nil)
	require.NoError(t, err)
	require.NotNil(t, b.Establishment)
	assert.Equal(t, int64(42), b.Establishment.ID)

	moved, err := drafts.Load(ctx, "est:42")
	require.NoError(t, err)
	assert.Equal(t, "brouillon", moved["comment"])
	old, err := drafts.Load(ctx, "place:gp-1")
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestEnsureExistsReResolveFailureServesCreated(t *testing.T) {
	api := newFakeAPI()
	api.createEstFn = func(p domain.Place) (*domain.Establishment, error) {
		return &domain.Establishment{ID: 9, ExternalID: p.ExternalID}, nil
	}
	api.getFn = func(int64) (*domain.Bundle, error) { return nil, errors.New("flaky") }
	r := testResolver(api, newMemDrafts())

	b, err := r.EnsureExists(context.Background(), &domain.Place{ExternalID: "gp-1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, b.Establishment)
	assert.Equal(t, int64(9), b.Establishment.ID)
	assert.True(t, b.Resolved())
	assert.Empty(t, b.Reviews)
}

func TestEnsureExistsNoPlace(t *testing.T) {
	r := testResolver(newFakeAPI(), newMemDrafts())
	_, err := r.EnsureExists(context.Background(), nil, nil)
	assert.Error(t, err)
}
