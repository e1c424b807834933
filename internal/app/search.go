package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"thena/internal/domain"
)

// SearchResult is what the debouncer eventually delivers for a query.
type SearchResult struct {
	Query       string
	Suggestions []domain.Suggestion
	Err         error
}

// Searcher debounces keystrokes into autocomplete calls. Every Set bumps
// a generation counter; a timer fire or a response belonging to an older
// generation is dropped, so out-of-order responses can never overwrite
// the suggestions for what the user currently sees.
type Searcher struct {
	api     domain.DirectoryAPI
	state   domain.StateStore
	delay   time.Duration
	deliver func(SearchResult)
	log     zerolog.Logger

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func NewSearcher(api domain.DirectoryAPI, state domain.StateStore, delay time.Duration, deliver func(SearchResult), log zerolog.Logger) *Searcher {
	return &Searcher{api: api, state: state, delay: delay, deliver: deliver, log: log}
}

// Set records a new query. An empty query cancels any pending call and
// clears the suggestion list immediately; anything else fires after the
// debounce window, unless superseded by a later Set.
func (s *Searcher) Set(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if query == "" {
		s.mu.Unlock()
		s.deliver(SearchResult{Query: ""})
		return
	}
	s.timer = time.AfterFunc(s.delay, func() { s.run(gen, query) })
	s.mu.Unlock()

	if err := s.state.SetLastQuery(context.Background(), query); err != nil {
		s.log.Debug().Err(err).Msg("persist last query failed")
	}
}

// Flush fires the pending query without waiting out the debounce window.
// The call itself never blocks; the lookup runs off the caller's
// goroutine, same as the timer path.
func (s *Searcher) Flush(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	go s.run(gen, query)
}

func (s *Searcher) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Searcher) run(gen uint64, query string) {
	if !s.current(gen) {
		return
	}
	sugs, err := s.api.Autocomplete(context.Background(), query)
	if !s.current(gen) {
		return
	}
	s.deliver(SearchResult{Query: query, Suggestions: sugs, Err: err})
}

// Stop cancels any pending timer. Further Sets are still valid.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
