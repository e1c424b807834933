package app

import (
	"fmt"

	"thena/internal/domain"
)

// State is the single source of truth the presentation renders from.
// It is passed explicitly into controllers and the UI — no package-level
// slot. Single-writer from the UI loop's perspective.
type State struct {
	Place  *domain.Place
	Bundle *domain.Bundle
}

// DraftKey derives the reconciliation key for the current selection:
// establishment id when the bundle is resolved, else the place's external
// id, else "" (draft operations become no-ops).
func (s *State) DraftKey() string {
	if s == nil {
		return ""
	}
	if s.Bundle != nil && s.Bundle.Establishment != nil {
		return fmt.Sprintf("est:%d", s.Bundle.Establishment.ID)
	}
	if s.Place != nil && s.Place.ExternalID != "" {
		return "place:" + s.Place.ExternalID
	}
	return ""
}

// Reset clears the selection when the user starts a new search.
func (s *State) Reset() {
	s.Place = nil
	s.Bundle = nil
}
