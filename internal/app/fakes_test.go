package app

import (
	"context"
	"sync"

	"thena/internal/domain"
)

// fakeAPI is a scriptable DirectoryAPI. Each func field overrides the
// default (zero-value success); every call is counted.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	autocompleteFn func(q string) ([]domain.Suggestion, error)
	detailsFn      func(placeID string) (map[string]any, error)
	lookupFn       func(externalID string) (*domain.Bundle, error)
	getFn          func(id int64) (*domain.Bundle, error)
	createEstFn    func(p domain.Place) (*domain.Establishment, error)
	createReviewFn func(in domain.ReviewInput) (*domain.Review, error)
	deleteReviewFn func(id int64) error
	meFn           func() (*domain.Session, error)
	magicFn        func(email, name string) (string, error)
	verifyFn       func(link string) error
	logoutFn       func() error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) count(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Autocomplete(_ context.Context, q string) ([]domain.Suggestion, error) {
	f.count("autocomplete")
	if f.autocompleteFn != nil {
		return f.autocompleteFn(q)
	}
	return nil, nil
}

func (f *fakeAPI) PlaceDetails(_ context.Context, placeID string) (map[string]any, error) {
	f.count("details")
	if f.detailsFn != nil {
		return f.detailsFn(placeID)
	}
	return map[string]any{}, nil
}

func (f *fakeAPI) LookupByExternalID(_ context.Context, externalID string) (*domain.Bundle, error) {
	f.count("lookup")
	if f.lookupFn != nil {
		return f.lookupFn(externalID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) GetEstablishment(_ context.Context, id int64) (*domain.Bundle, error) {
	f.count("get")
	if f.getFn != nil {
		return f.getFn(id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAPI) CreateEstablishment(_ context.Context, p domain.Place) (*domain.Establishment, error) {
	f.count("createEst")
	if f.createEstFn != nil {
		return f.createEstFn(p)
	}
	return &domain.Establishment{ID: 1, ExternalID: p.ExternalID, Name: p.Name}, nil
}

func (f *fakeAPI) CreateReview(_ context.Context, in domain.ReviewInput) (*domain.Review, error) {
	f.count("createReview")
	if f.createReviewFn != nil {
		return f.createReviewFn(in)
	}
	return &domain.Review{ID: 1, EstablishmentID: in.EstablishmentID}, nil
}

func (f *fakeAPI) DeleteReview(_ context.Context, id int64) error {
	f.count("deleteReview")
	if f.deleteReviewFn != nil {
		return f.deleteReviewFn(id)
	}
	return nil
}

func (f *fakeAPI) Me(_ context.Context) (*domain.Session, error) {
	f.count("me")
	if f.meFn != nil {
		return f.meFn()
	}
	return nil, domain.ErrUnauthorized
}

func (f *fakeAPI) RequestMagicLink(_ context.Context, email, name string) (string, error) {
	f.count("magic")
	if f.magicFn != nil {
		return f.magicFn(email, name)
	}
	return "", nil
}

func (f *fakeAPI) VerifyMagicLink(_ context.Context, link string) error {
	f.count("verify")
	if f.verifyFn != nil {
		return f.verifyFn(link)
	}
	return nil
}

func (f *fakeAPI) Logout(_ context.Context) error {
	f.count("logout")
	if f.logoutFn != nil {
		return f.logoutFn()
	}
	return nil
}

// memDrafts is an in-memory DraftStore mirroring the redis adapter's
// contract: empty keys are no-ops, Load never returns nil, Rekey fills
// gaps in the destination without clobbering it.
type memDrafts struct {
	mu sync.Mutex
	m  map[string]map[string]any
}

func newMemDrafts() *memDrafts {
	return &memDrafts{m: map[string]map[string]any{}}
}

func (s *memDrafts) Save(_ context.Context, key string, partial map[string]any) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[key]
	if !ok {
		cur = map[string]any{}
		s.m[key] = cur
	}
	for k, v := range partial {
		cur[k] = v
	}
	return nil
}

func (s *memDrafts) Load(_ context.Context, key string) (map[string]any, error) {
	out := map[string]any{}
	if key == "" {
		return out, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.m[key] {
		out[k] = v
	}
	return out, nil
}

func (s *memDrafts) Clear(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *memDrafts) Rekey(_ context.Context, oldKey, newKey string) error {
	if oldKey == "" || newKey == "" || oldKey == newKey {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.m[oldKey]
	if !ok {
		return nil
	}
	dst, ok := s.m[newKey]
	if !ok {
		dst = map[string]any{}
		s.m[newKey] = dst
	}
	for k, v := range old {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
	delete(s.m, oldKey)
	return nil
}
