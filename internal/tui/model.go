// Package tui is the terminal front end: search-as-you-type over the
// place proxy, a panel for the resolved establishment with its reviews,
// and the submission form with draft autosave.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"thena/internal/app"
	"thena/internal/domain"
)

// Services bundles everything the model talks to.
type Services struct {
	API      domain.DirectoryAPI
	Resolver *app.Resolver
	Session  *app.SessionGate
	Submit   *app.SubmitController
	Drafts   domain.DraftStore
	State    domain.StateStore
	Debounce time.Duration
	Log      zerolog.Logger
}

type mode int

const (
	modeSearch mode = iota
	modeForm
	modeLogin
)

type Model struct {
	svc      Services
	searcher *app.Searcher
	results  chan app.SearchResult

	mode mode

	// search
	input       textinput.Model
	suggestions []domain.Suggestion
	selected    int

	// panel
	place  *domain.Place
	bundle *domain.Bundle

	// form
	form reviewForm

	// login
	email   textinput.Model
	pseudo  textinput.Model
	loginAt int // 0 = email, 1 = pseudo
	devLink string

	status   string
	errText  string
	quitting bool
}

func New(svc Services) *Model {
	input := textinput.New()
	input.Placeholder = "Rechercher un établissement…"
	input.Focus()
	input.CharLimit = 120
	input.Width = 48

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 120
	email.Width = 32

	pseudo := textinput.New()
	pseudo.Placeholder = "pseudo"
	pseudo.CharLimit = 40
	pseudo.Width = 32

	m := &Model{
		svc:     svc,
		results: make(chan app.SearchResult, 8),
		input:   input,
		email:   email,
		pseudo:  pseudo,
		form:    newReviewForm(),
	}
	m.searcher = app.NewSearcher(svc.API, svc.State, svc.Debounce, func(r app.SearchResult) {
		m.results <- r
	}, svc.Log)
	return m
}

// ---- messages ----

type searchMsg app.SearchResult

type restoredQueryMsg string

type sessionMsg struct{ s *domain.Session }

type resolvedMsg struct {
	place  *domain.Place
	bundle *domain.Bundle
	err    error
}

type draftMsg struct {
	key  string
	data map[string]any
}

type linkMsg struct {
	link string
	err  error
}

type verifiedMsg struct{ err error }

type refreshedMsg struct {
	bundle *domain.Bundle
	err    error
}

type submittedMsg struct {
	bundle *domain.Bundle
	err    error
}

type deletedMsg struct {
	bundle *domain.Bundle
	err    error
}

type draftSavedMsg struct{}

// ---- commands ----

func (m *Model) listenSearch() tea.Cmd {
	return func() tea.Msg { return searchMsg(<-m.results) }
}

func (m *Model) restoreQueryCmd() tea.Cmd {
	return func() tea.Msg {
		q, err := m.svc.State.LastQuery(context.Background())
		if err != nil || q == "" {
			return nil
		}
		return restoredQueryMsg(q)
	}
}

func (m *Model) refreshSessionCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionMsg{s: m.svc.Session.Refresh(context.Background())}
	}
}

// selectCmd resolves one suggestion: details for display, then the
// directory lookup.
func (m *Model) selectCmd(placeID string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		raw, err := svc.API.PlaceDetails(ctx, placeID)
		if err != nil {
			return resolvedMsg{err: err}
		}
		place := app.NormalizePlace(raw)
		if place.ExternalID == "" {
			place.ExternalID = placeID
		}
		if err := svc.State.SetCurrentPlaceID(ctx, place.ExternalID); err != nil {
			svc.Log.Debug().Err(err).Msg("persist place id failed")
		}

		bundle, err := svc.Resolver.Resolve(ctx, place.ExternalID)
		if err != nil {
			return resolvedMsg{place: &place, err: err}
		}
		if bundle != nil && bundle.Establishment != nil {
			if err := svc.State.SetCurrentEstablishmentID(ctx, bundle.Establishment.ID); err != nil {
				svc.Log.Debug().Err(err).Msg("persist establishment id failed")
			}
		}
		return resolvedMsg{place: &place, bundle: bundle}
	}
}

func (m *Model) loadDraftCmd(key string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		d, err := svc.Drafts.Load(context.Background(), key)
		if err != nil {
			svc.Log.Debug().Str("key", key).Err(err).Msg("draft load failed")
			return nil
		}
		return draftMsg{key: key, data: d}
	}
}

func (m *Model) saveDraftCmd() tea.Cmd {
	key := m.draftKey()
	if key == "" {
		return nil
	}
	data := m.form.toDraft()
	svc := m.svc
	return func() tea.Msg {
		if err := svc.Drafts.Save(context.Background(), key, data); err != nil {
			svc.Log.Debug().Str("key", key).Err(err).Msg("draft save failed")
		}
		return draftSavedMsg{}
	}
}

func (m *Model) requestLinkCmd(email, pseudo string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		link, err := svc.Session.RequestLink(context.Background(), email, pseudo)
		return linkMsg{link: link, err: err}
	}
}

func (m *Model) verifyCmd(link string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return verifiedMsg{err: svc.Session.Verify(context.Background(), link)}
	}
}

func (m *Model) refreshCmd(estID int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		b, err := svc.Resolver.RefreshByID(ctx, estID)
		return refreshedMsg{bundle: b, err: err}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	svc := m.svc
	place, bundle, form := m.place, m.bundle, m.form.toForm()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, err := svc.Submit.Submit(ctx, place, bundle, form)
		return submittedMsg{bundle: b, err: err}
	}
}

func (m *Model) deleteCmd(reviewID, estID int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		b, err := svc.Submit.Delete(ctx, reviewID, estID)
		return deletedMsg{bundle: b, err: err}
	}
}

// ---- helpers ----

func (m *Model) draftKey() string {
	st := app.State{Place: m.place, Bundle: m.bundle}
	return st.DraftKey()
}

// ownReview finds the logged-in user's review in the current bundle.
func (m *Model) ownReview() *domain.Review {
	s := m.svc.Session.Current()
	if s == nil || m.bundle == nil {
		return nil
	}
	for i := range m.bundle.Reviews {
		if m.bundle.Reviews[i].AuthorID == s.UserID {
			return &m.bundle.Reviews[i]
		}
	}
	return nil
}

// ---- tea.Model ----

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.listenSearch(),
		m.refreshSessionCmd(),
		m.restoreQueryCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			m.searcher.Stop()
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeLogin:
			return m.updateLogin(msg)
		}

	case searchMsg:
		m.suggestions = msg.Suggestions
		m.selected = 0
		if msg.Err != nil {
			m.errText = "recherche indisponible: " + msg.Err.Error()
		} else {
			m.errText = ""
		}
		return m, m.listenSearch()

	case restoredQueryMsg:
		if m.input.Value() == "" {
			m.input.SetValue(string(msg))
			m.input.CursorEnd()
			m.searcher.Flush(string(msg))
		}
		return m, nil

	case sessionMsg:
		if msg.s != nil {
			m.status = "connecté en tant que " + msg.s.DisplayName
		}
		return m, nil

	case resolvedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.place = msg.place
		m.bundle = msg.bundle
		m.mode = modeForm
		m.form.reset()
		m.errText = ""
		if key := m.draftKey(); key != "" {
			return m, m.loadDraftCmd(key)
		}
		return m, nil

	case draftMsg:
		if msg.key == m.draftKey() && len(msg.data) > 0 {
			m.form.fromDraft(msg.data)
			m.status = "brouillon restauré"
		}
		return m, nil

	case linkMsg:
		if msg.err != nil {
			if ve, ok := domain.AsValidation(msg.err); ok {
				m.errText = ve.Error()
			} else {
				m.errText = msg.err.Error()
			}
			return m, nil
		}
		if msg.link == "" {
			m.status = "lien envoyé par email"
			return m, nil
		}
		m.devLink = msg.link
		m.status = "lien reçu, connexion…"
		return m, m.verifyCmd(msg.link)

	case verifiedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.devLink = ""
		if m.place != nil {
			m.mode = modeForm
		} else {
			m.mode = modeSearch
		}
		return m, m.refreshSessionCmd()

	case refreshedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.bundle = msg.bundle
		m.status = "panneau actualisé"
		return m, nil

	case submittedMsg:
		return m.onSubmitted(msg)

	case deletedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.bundle = msg.bundle
		m.status = "avis supprimé"
		return m, nil

	case draftSavedMsg:
		return m, nil
	}

	return m, nil
}

func (m *Model) onSubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.bundle = msg.bundle
		m.form.reset()
		m.status = "avis publié"
		m.errText = ""
		return m, nil
	case errors.Is(msg.err, app.ErrLoginRequired), errors.Is(msg.err, app.ErrSessionExpired):
		m.mode = modeLogin
		m.loginAt = 0
		m.email.Focus()
		m.pseudo.Blur()
		m.errText = msg.err.Error()
		return m, nil
	default:
		if ve, ok := domain.AsValidation(msg.err); ok {
			m.form.fieldErrs[ve.Field] = ve.Msg
			m.errText = ""
			return m, nil
		}
		m.errText = msg.err.Error()
		return m, nil
	}
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < len(m.suggestions)-1 {
			m.selected++
		}
		return m, nil
	case "enter":
		if len(m.suggestions) == 0 {
			m.searcher.Flush(m.input.Value())
			return m, nil
		}
		return m, m.selectCmd(m.suggestions[m.selected].PlaceID)
	case "esc":
		m.quitting = true
		m.searcher.Stop()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.searcher.Set(v)
	}
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.form
	switch msg.String() {
	case "esc":
		m.mode = modeSearch
		m.place = nil
		m.bundle = nil
		m.status = ""
		m.errText = ""
		return m, nil
	case "tab", "shift+tab":
		if msg.String() == "tab" {
			f.next()
		} else {
			f.prev()
		}
		return m, m.saveDraftCmd()
	case "ctrl+s":
		f.fieldErrs = map[string]string{}
		return m, m.submitCmd()
	case "ctrl+x":
		if rv := m.ownReview(); rv != nil {
			return m, m.deleteCmd(rv.ID, rv.EstablishmentID)
		}
		return m, nil
	case "ctrl+r":
		if m.bundle != nil && m.bundle.Establishment != nil {
			return m, m.refreshCmd(m.bundle.Establishment.ID)
		}
		return m, nil
	}

	switch f.focus {
	case fieldContract:
		if d, ok := arrowDelta(msg); ok {
			f.contractIdx = cycle(f.contractIdx, d, len(contractOpts))
			return m, m.saveDraftCmd()
		}
	case fieldHousing:
		if d, ok := arrowDelta(msg); ok {
			f.housingIdx = cycle(f.housingIdx, d, len(housingOpts))
			return m, m.saveDraftCmd()
		}
	case fieldHousingQuality:
		if d, ok := arrowDelta(msg); ok {
			f.housingQualityIdx = cycle(f.housingQualityIdx, d, len(housingQualityOpts))
			return m, m.saveDraftCmd()
		}
	case fieldFlags:
		if d, ok := arrowDelta(msg); ok {
			f.flagIdx = cycle(f.flagIdx, d, 5)
			return m, nil
		}
		if msg.String() == " " {
			toggleFlag(&f.flags, f.flagIdx)
			return m, m.saveDraftCmd()
		}
	}

	var cmd tea.Cmd
	var changed bool
	switch f.focus {
	case fieldScore:
		before := f.score.Value()
		f.score, cmd = f.score.Update(msg)
		changed = f.score.Value() != before
	case fieldComment:
		before := f.comment.Value()
		f.comment, cmd = f.comment.Update(msg)
		changed = f.comment.Value() != before
	case fieldRole:
		before := f.role.Value()
		f.role, cmd = f.role.Update(msg)
		changed = f.role.Value() != before
	}
	if changed {
		return m, tea.Batch(cmd, m.saveDraftCmd())
	}
	return m, cmd
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeSearch
		if m.place != nil {
			m.mode = modeForm
		}
		m.errText = ""
		return m, nil
	case "tab", "shift+tab", "down", "up":
		m.loginAt = 1 - m.loginAt
		if m.loginAt == 0 {
			m.email.Focus()
			m.pseudo.Blur()
		} else {
			m.pseudo.Focus()
			m.email.Blur()
		}
		return m, nil
	case "enter":
		m.errText = ""
		return m, m.requestLinkCmd(m.email.Value(), m.pseudo.Value())
	}

	var cmd tea.Cmd
	if m.loginAt == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.pseudo, cmd = m.pseudo.Update(msg)
	}
	return m, cmd
}

func arrowDelta(msg tea.KeyMsg) (int, bool) {
	switch msg.String() {
	case "left":
		return -1, true
	case "right":
		return 1, true
	}
	return 0, false
}

func toggleFlag(f *domain.Flags, idx int) {
	switch idx {
	case 0:
		f.SplitShift = !f.SplitShift
	case 1:
		f.UnpaidOvertime = !f.UnpaidOvertime
	case 2:
		f.ToxicManager = !f.ToxicManager
	case 3:
		f.Harassment = !f.Harassment
	case 4:
		f.Recommend = !f.Recommend
	}
}

func formatScore(s *float64) string {
	if s == nil {
		return "—"
	}
	return strconv.FormatFloat(*s, 'f', -1, 64) + "/10"
}

func formatAvg(b *domain.Bundle) string {
	if b == nil || b.Avg == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f/10 (%d noté(s), %d avis)", *b.Avg, b.CountScored, b.CountTotal)
}
