// Package devserver is a self-contained, in-memory rendition of the THENA
// backend: directory, reviews, place-search fixtures and magic-link auth.
// It backs local development (cmd/thena-dev) and the end-to-end tests; it
// persists nothing.
package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct {
	mux   *chi.Mux
	store *store
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Server {
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Timeout(15 * time.Second))
	m.Use(Metrics)
	m.Use(Logger(log))

	s := &Server{mux: m, store: newStore(), log: log}
	s.routes()
	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g. /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}

func (s *Server) routes() {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.Get("/me", s.me)
	s.mux.Post("/auth/magic-link", s.magicLink)
	s.mux.Get("/auth/verify", s.verify)
	s.mux.Post("/auth/logout", s.logout)

	s.mux.Get("/api/google/autocomplete", s.autocomplete)
	s.mux.Get("/api/google/place", s.placeDetails)

	s.mux.Post("/establishments", s.createEstablishment)
	s.mux.Get("/establishments/by_google/{gid}", s.lookupByGoogle)
	s.mux.Get("/establishments/{id:[0-9]+}", s.getEstablishment)

	s.mux.Post("/reviews", s.createReview)
	s.mux.Delete("/reviews/{id:[0-9]+}", s.deleteReview)
}
