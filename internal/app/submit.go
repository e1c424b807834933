package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"thena/internal/domain"
)

var (
	// ErrLoginRequired blocks a submission before any network work.
	ErrLoginRequired = errors.New("connexion requise")
	// ErrSessionExpired means a write came back 401: the cached session
	// was stale and has been dropped. The draft stays intact.
	ErrSessionExpired = errors.New("session expirée")
)

// ReviewForm is the raw, as-typed submission form. Score stays text until
// validation so the form can round-trip through the draft store verbatim.
type ReviewForm struct {
	ScoreText      string
	Comment        string
	Role           string
	Contract       string
	Housing        string
	HousingQuality string
	domain.Flags
}

// SubmitController runs the publish pipeline: auth guard, local
// validation, on-demand establishment creation, then the review write.
// Every failure path leaves the draft intact; it is cleared only once
// the review is accepted.
type SubmitController struct {
	api      domain.DirectoryAPI
	resolver *Resolver
	session  *SessionGate
	drafts   domain.DraftStore
	log      zerolog.Logger
}

func NewSubmitController(api domain.DirectoryAPI, resolver *Resolver, session *SessionGate, drafts domain.DraftStore, log zerolog.Logger) *SubmitController {
	return &SubmitController{api: api, resolver: resolver, session: session, drafts: drafts, log: log}
}

// parseScore turns the typed score into a value the backend accepts:
// empty means unscored, otherwise a number in [0, 10]. A decimal comma
// is tolerated.
func parseScore(text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return nil, &domain.ValidationError{Field: "score", Msg: "nombre attendu"}
	}
	if v < 0 || v > 10 {
		return nil, &domain.ValidationError{Field: "score", Msg: "entre 0 et 10"}
	}
	return &v, nil
}

// Validate checks the form locally and returns the wire payload, without
// the establishment id (not known until EnsureExists has run).
func (f ReviewForm) Validate() (domain.ReviewInput, error) {
	var in domain.ReviewInput
	score, err := parseScore(f.ScoreText)
	if err != nil {
		return in, err
	}
	comment := strings.TrimSpace(f.Comment)
	if comment == "" {
		return in, &domain.ValidationError{Field: "comment", Msg: "commentaire requis"}
	}
	if !domain.ValidContract(f.Contract) {
		return in, &domain.ValidationError{Field: "contract", Msg: "valeur inconnue"}
	}
	if !domain.ValidHousing(f.Housing) {
		return in, &domain.ValidationError{Field: "housing", Msg: "valeur inconnue"}
	}
	if !domain.ValidHousingQuality(f.HousingQuality) {
		return in, &domain.ValidationError{Field: "housing_quality", Msg: "valeur inconnue"}
	}
	in = domain.ReviewInput{
		Score:          score,
		Comment:        comment,
		Role:           strings.TrimSpace(f.Role),
		Contract:       f.Contract,
		Housing:        f.Housing,
		HousingQuality: f.HousingQuality,
		Flags:          f.Flags,
	}
	return in, nil
}

// Submit publishes the form against the place currently on screen.
// current may be nil (place not in the directory yet); the entry is
// created on the fly. On success the refreshed bundle comes back and the
// draft under the entry key is cleared.
func (c *SubmitController) Submit(ctx context.Context, place *domain.Place, current *domain.Bundle, form ReviewForm) (*domain.Bundle, error) {
	if !c.session.LoggedIn() {
		return nil, ErrLoginRequired
	}
	in, err := form.Validate()
	if err != nil {
		return nil, err
	}

	bundle, err := c.resolver.EnsureExists(ctx, place, current)
	if err != nil {
		return nil, c.mapAuthErr(err)
	}
	estID := bundle.Establishment.ID
	in.EstablishmentID = estID

	if _, err := c.api.CreateReview(ctx, in); err != nil {
		return nil, c.mapAuthErr(err)
	}

	// The draft outlives any failure here: it is cleared only once the
	// refreshed panel is in hand.
	fresh, err := c.resolver.RefreshByID(ctx, estID)
	if err != nil {
		return nil, err
	}
	if err := c.drafts.Clear(ctx, fmt.Sprintf("est:%d", estID)); err != nil {
		c.log.Warn().Int64("est_id", estID).Err(err).Msg("draft clear failed")
	}
	return fresh, nil
}

// mapAuthErr turns a 401 from any step of the pipeline into the
// expired-session signal, dropping the cached session on the way.
func (c *SubmitController) mapAuthErr(err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		c.session.Expire()
		return ErrSessionExpired
	}
	return err
}

// Delete removes one of the user's reviews and refreshes the panel.
// Drafts are untouched: deleting a published review and abandoning an
// in-progress one are separate acts.
func (c *SubmitController) Delete(ctx context.Context, reviewID, establishmentID int64) (*domain.Bundle, error) {
	if !c.session.LoggedIn() {
		return nil, ErrLoginRequired
	}
	if err := c.api.DeleteReview(ctx, reviewID); err != nil {
		return nil, c.mapAuthErr(err)
	}
	return c.resolver.RefreshByID(ctx, establishmentID)
}
