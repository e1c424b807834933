package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"thena/internal/domain"
)

const sessionCookie = "thena_session"

type detail struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detail{Detail: msg})
}

// currentUser resolves the session cookie; nil when logged out.
func (s *Server) currentUser(r *http.Request) *user {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	u, ok := s.store.sessionUser(c.Value)
	if !ok {
		return nil
	}
	return u
}

// ---- auth ----

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{
		"id":         u.ID,
		"pseudo":     u.Pseudo,
		"created_at": u.CreatedAt,
	}})
}

func (s *Server) magicLink(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email  string `json:"email"`
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corps JSON invalide")
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Pseudo = strings.TrimSpace(in.Pseudo)
	if !strings.Contains(in.Email, "@") {
		writeDetail(w, http.StatusUnprocessableEntity, "adresse email invalide")
		return
	}
	if utf8.RuneCountInString(in.Pseudo) < 2 {
		writeDetail(w, http.StatusUnprocessableEntity, "pseudo trop court")
		return
	}

	t := s.store.issueToken(in.Email, in.Pseudo)
	// No mailer here: the link is handed straight back to the caller.
	link := fmt.Sprintf("http://%s/auth/verify?token=%s", r.Host, t)
	s.log.Info().Str("email", in.Email).Msg("magic link issued")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "dev_link": link})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	t := r.URL.Query().Get("token")
	sid, ok := s.store.redeemToken(t)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "lien invalide ou expiré")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.store.dropSession(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ---- place search ----

func (s *Server) autocomplete(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.searchPlaces(r.URL.Query().Get("q")))
}

func (s *Server) placeDetails(w http.ResponseWriter, r *http.Request) {
	p, ok := s.store.place(r.URL.Query().Get("place_id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "lieu inconnu")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ---- directory ----

func (s *Server) createEstablishment(w http.ResponseWriter, r *http.Request) {
	if s.currentUser(r) == nil {
		writeDetail(w, http.StatusUnauthorized, "non authentifié")
		return
	}
	var in struct {
		GooglePlaceID string   `json:"google_place_id"`
		Name          string   `json:"name"`
		Address       string   `json:"address"`
		GoogleRating  *float64 `json:"google_rating"`
		Types         []string `json:"types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corps JSON invalide")
		return
	}
	if strings.TrimSpace(in.GooglePlaceID) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "google_place_id requis")
		return
	}
	e, created := s.store.upsertEstablishment(domain.Establishment{
		ExternalID:     in.GooglePlaceID,
		Name:           strings.TrimSpace(in.Name),
		Address:        strings.TrimSpace(in.Address),
		RatingExternal: in.GoogleRating,
		Categories:     in.Types,
	})
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, e)
}

func (s *Server) lookupByGoogle(w http.ResponseWriter, r *http.Request) {
	e, ok := s.store.establishmentByGoogle(chi.URLParam(r, "gid"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "établissement inconnu")
		return
	}
	writeJSON(w, http.StatusOK, s.store.bundle(e))
}

func (s *Server) getEstablishment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	e, ok := s.store.establishment(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "établissement inconnu")
		return
	}
	writeJSON(w, http.StatusOK, s.store.bundle(e))
}

// ---- reviews ----

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "non authentifié")
		return
	}
	var in domain.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corps JSON invalide")
		return
	}
	if _, ok := s.store.establishment(in.EstablishmentID); !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "établissement inconnu")
		return
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Comment == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "commentaire requis")
		return
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 10) {
		writeDetail(w, http.StatusUnprocessableEntity, "score entre 0 et 10")
		return
	}
	if !domain.ValidContract(in.Contract) || !domain.ValidHousing(in.Housing) || !domain.ValidHousingQuality(in.HousingQuality) {
		writeDetail(w, http.StatusUnprocessableEntity, "valeur d'énumération inconnue")
		return
	}
	writeJSON(w, http.StatusCreated, s.store.upsertReview(in, u))
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	u := s.currentUser(r)
	if u == nil {
		writeDetail(w, http.StatusUnauthorized, "non authentifié")
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	rv, ok := s.store.review(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "avis introuvable")
		return
	}
	if rv.AuthorID != u.ID {
		writeDetail(w, http.StatusForbidden, "cet avis ne vous appartient pas")
		return
	}
	s.store.deleteReview(id)
	w.WriteHeader(http.StatusNoContent)
}
