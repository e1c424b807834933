package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"

	"thena/internal/app"
	"thena/internal/domain"
)

// form field focus order
const (
	fieldScore = iota
	fieldComment
	fieldRole
	fieldContract
	fieldHousing
	fieldHousingQuality
	fieldFlags
	fieldCount
)

// reviewForm is the on-screen state of the submission form. Enum fields
// cycle through their allowed values with left/right; index 0 is "not
// stated". Flags toggle with space on the focused row.
type reviewForm struct {
	score   textinput.Model
	comment textarea.Model
	role    textinput.Model

	contractIdx       int
	housingIdx        int
	housingQualityIdx int

	flags     domain.Flags
	flagIdx   int
	focus     int
	fieldErrs map[string]string
}

// enum option lists, with the empty "not stated" slot first.
var (
	contractOpts       = append([]string{""}, domain.Contracts...)
	housingOpts        = append([]string{""}, domain.Housings...)
	housingQualityOpts = append([]string{""}, domain.HousingQualities...)
)

func newReviewForm() reviewForm {
	score := textinput.New()
	score.Placeholder = "0-10"
	score.CharLimit = 4
	score.Width = 6

	comment := textarea.New()
	comment.Placeholder = "Votre expérience dans cet établissement…"
	comment.SetHeight(4)
	comment.SetWidth(56)
	comment.ShowLineNumbers = false

	role := textinput.New()
	role.Placeholder = "serveur, chef de partie…"
	role.CharLimit = 60
	role.Width = 30

	f := reviewForm{score: score, comment: comment, role: role, fieldErrs: map[string]string{}}
	f.setFocus(fieldScore)
	return f
}

func (f *reviewForm) setFocus(i int) {
	f.focus = i
	f.score.Blur()
	f.comment.Blur()
	f.role.Blur()
	switch i {
	case fieldScore:
		f.score.Focus()
	case fieldComment:
		f.comment.Focus()
	case fieldRole:
		f.role.Focus()
	}
}

func (f *reviewForm) next() { f.setFocus((f.focus + 1) % fieldCount) }
func (f *reviewForm) prev() { f.setFocus((f.focus + fieldCount - 1) % fieldCount) }

func cycle(idx, delta, n int) int { return (idx + delta + n) % n }

// toForm snapshots the screen state into the submission payload.
func (f *reviewForm) toForm() app.ReviewForm {
	return app.ReviewForm{
		ScoreText:      f.score.Value(),
		Comment:        f.comment.Value(),
		Role:           f.role.Value(),
		Contract:       contractOpts[f.contractIdx],
		Housing:        housingOpts[f.housingIdx],
		HousingQuality: housingQualityOpts[f.housingQualityIdx],
		Flags:          f.flags,
	}
}

// toDraft serializes the form for the draft store; field names mirror the
// review payload so drafts stay readable.
func (f *reviewForm) toDraft() map[string]any {
	return map[string]any{
		"score":           f.score.Value(),
		"comment":         f.comment.Value(),
		"role":            f.role.Value(),
		"contract":        contractOpts[f.contractIdx],
		"housing":         housingOpts[f.housingIdx],
		"housing_quality": housingQualityOpts[f.housingQualityIdx],
		"coupure":         f.flags.SplitShift,
		"unpaid_overtime": f.flags.UnpaidOvertime,
		"toxic_manager":   f.flags.ToxicManager,
		"harassment":      f.flags.Harassment,
		"recommend":       f.flags.Recommend,
	}
}

// fromDraft restores a saved draft. Unknown or mistyped values are
// ignored so a stale draft can never wedge the form.
func (f *reviewForm) fromDraft(d map[string]any) {
	if v, ok := d["score"].(string); ok {
		f.score.SetValue(v)
	}
	if v, ok := d["comment"].(string); ok {
		f.comment.SetValue(v)
	}
	if v, ok := d["role"].(string); ok {
		f.role.SetValue(v)
	}
	f.contractIdx = optIndex(contractOpts, d["contract"])
	f.housingIdx = optIndex(housingOpts, d["housing"])
	f.housingQualityIdx = optIndex(housingQualityOpts, d["housing_quality"])
	f.flags.SplitShift = boolAt(d, "coupure")
	f.flags.UnpaidOvertime = boolAt(d, "unpaid_overtime")
	f.flags.ToxicManager = boolAt(d, "toxic_manager")
	f.flags.Harassment = boolAt(d, "harassment")
	f.flags.Recommend = boolAt(d, "recommend")
}

func optIndex(opts []string, v any) int {
	s, _ := v.(string)
	for i, o := range opts {
		if o == s {
			return i
		}
	}
	return 0
}

func boolAt(d map[string]any, key string) bool {
	b, _ := d[key].(bool)
	return b
}

func (f *reviewForm) reset() {
	*f = newReviewForm()
}
