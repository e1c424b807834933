package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"thena/internal/domain"
)

type user struct {
	ID        int64
	Email     string
	Pseudo    string
	CreatedAt time.Time
}

// fixturePlace is a search-provider record with the provider's own field
// names, so the normalizer on the client side gets realistic input.
type fixturePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           *float64 `json:"rating,omitempty"`
	Types            []string `json:"types"`
}

// store is the whole backend state behind one mutex. Small enough that a
// single lock is simpler than anything finer-grained.
type store struct {
	mu sync.Mutex

	usersByEmail map[string]*user
	usersByID    map[int64]*user
	tokens       map[string]int64 // magic-link token -> user id
	sessions     map[string]int64 // session cookie -> user id

	establishments map[int64]*domain.Establishment
	byGoogleID     map[string]int64
	reviews        map[int64]*domain.Review

	nextUserID int64
	nextEstID  int64
	nextRevID  int64

	places []fixturePlace
}

func newStore() *store {
	return &store{
		usersByEmail:   map[string]*user{},
		usersByID:      map[int64]*user{},
		tokens:         map[string]int64{},
		sessions:       map[string]int64{},
		establishments: map[int64]*domain.Establishment{},
		byGoogleID:     map[string]int64{},
		reviews:        map[int64]*domain.Review{},
		places:         fixtures(),
	}
}

func rating(v float64) *float64 { return &v }

// fixtures seeds the place-search proxy with a plausible slice of French
// hospitality venues.
func fixtures() []fixturePlace {
	return []fixturePlace{
		{PlaceID: "dev-zinc", Name: "Le Zinc", FormattedAddress: "3 rue Basse, 64100 Bayonne", Rating: rating(4.3), Types: []string{"bar", "restaurant"}},
		{PlaceID: "dev-port", Name: "Brasserie du Port", FormattedAddress: "12 quai des Corsaires, 64100 Bayonne", Rating: rating(4.0), Types: []string{"restaurant"}},
		{PlaceID: "dev-etoile", Name: "Hôtel de l'Étoile", FormattedAddress: "1 place de la Liberté, 64200 Biarritz", Rating: rating(3.8), Types: []string{"lodging"}},
		{PlaceID: "dev-maree", Name: "La Marée", FormattedAddress: "8 avenue de la Plage, 40130 Capbreton", Rating: rating(4.6), Types: []string{"restaurant", "seafood"}},
		{PlaceID: "dev-relais", Name: "Le Relais des Cimes", FormattedAddress: "route du Col, 64560 Larrau", Types: []string{"lodging", "restaurant"}},
	}
}

func (s *store) searchPlaces(q string) []domain.Suggestion {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []domain.Suggestion{}
	if q == "" {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.places {
		hay := strings.ToLower(p.Name + " " + p.FormattedAddress)
		if strings.Contains(hay, q) {
			out = append(out, domain.Suggestion{
				PlaceID:     p.PlaceID,
				Description: p.Name + ", " + p.FormattedAddress,
			})
		}
	}
	return out
}

func (s *store) place(placeID string) (fixturePlace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.places {
		if p.PlaceID == placeID {
			return p, true
		}
	}
	return fixturePlace{}, false
}

// ---- auth ----

func token() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// issueToken finds or creates the user for email and mints a one-shot
// magic-link token.
func (s *store) issueToken(email, pseudo string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByEmail[email]
	if !ok {
		s.nextUserID++
		u = &user{ID: s.nextUserID, Email: email, Pseudo: pseudo, CreatedAt: time.Now().UTC()}
		s.usersByEmail[email] = u
		s.usersByID[u.ID] = u
	} else if pseudo != "" {
		u.Pseudo = pseudo
	}
	t := token()
	s.tokens[t] = u.ID
	return t
}

// redeemToken consumes a magic-link token and opens a session.
func (s *store) redeemToken(t string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.tokens[t]
	if !ok {
		return "", false
	}
	delete(s.tokens, t)
	sid := token()
	s.sessions[sid] = uid
	return sid, true
}

func (s *store) sessionUser(sid string) (*user, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.sessions[sid]
	if !ok {
		return nil, false
	}
	u, ok := s.usersByID[uid]
	return u, ok
}

func (s *store) dropSession(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
}

// ---- directory ----

// upsertEstablishment is idempotent on the google place id: a second
// create for the same id returns the existing record.
func (s *store) upsertEstablishment(e domain.Establishment) (*domain.Establishment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byGoogleID[e.ExternalID]; ok {
		return s.establishments[id], false
	}
	s.nextEstID++
	e.ID = s.nextEstID
	e.CreatedAt = time.Now().UTC()
	if e.Categories == nil {
		e.Categories = []string{}
	}
	s.establishments[e.ID] = &e
	s.byGoogleID[e.ExternalID] = e.ID
	return &e, true
}

func (s *store) establishmentByGoogle(gid string) (*domain.Establishment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byGoogleID[gid]
	if !ok {
		return nil, false
	}
	return s.establishments[id], true
}

func (s *store) establishment(id int64) (*domain.Establishment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.establishments[id]
	return e, ok
}

// bundle assembles the full panel payload: entry, reviews newest first,
// and score aggregates.
func (s *store) bundle(e *domain.Establishment) *domain.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	reviews := []domain.Review{}
	var sum float64
	var scored int
	for _, r := range s.reviews {
		if r.EstablishmentID != e.ID {
			continue
		}
		reviews = append(reviews, *r)
		if r.Score != nil {
			sum += *r.Score
			scored++
		}
	}
	for i := 0; i < len(reviews); i++ {
		for j := i + 1; j < len(reviews); j++ {
			if reviews[j].CreatedAt.After(reviews[i].CreatedAt) {
				reviews[i], reviews[j] = reviews[j], reviews[i]
			}
		}
	}
	b := &domain.Bundle{
		Establishment: e,
		Reviews:       reviews,
		CountScored:   scored,
		CountTotal:    len(reviews),
	}
	if scored > 0 {
		avg := sum / float64(scored)
		b.Avg = &avg
	}
	return b
}

// upsertReview keeps at most one review per (establishment, user).
func (s *store) upsertReview(in domain.ReviewInput, u *user) *domain.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.EstablishmentID == in.EstablishmentID && r.AuthorID == u.ID {
			r.Score = in.Score
			r.Comment = in.Comment
			r.Role = in.Role
			r.Contract = in.Contract
			r.Housing = in.Housing
			r.HousingQuality = in.HousingQuality
			r.Flags = in.Flags
			return r
		}
	}
	s.nextRevID++
	r := &domain.Review{
		ID:              s.nextRevID,
		EstablishmentID: in.EstablishmentID,
		AuthorID:        u.ID,
		AuthorName:      u.Pseudo,
		Score:           in.Score,
		Comment:         in.Comment,
		Role:            in.Role,
		Contract:        in.Contract,
		Housing:         in.Housing,
		HousingQuality:  in.HousingQuality,
		Flags:           in.Flags,
		CreatedAt:       time.Now().UTC(),
	}
	s.reviews[r.ID] = r
	return r
}

func (s *store) review(id int64) (*domain.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	return r, ok
}

func (s *store) deleteReview(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reviews, id)
}
