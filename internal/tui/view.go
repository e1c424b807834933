package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("45"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)
)

var flagLabels = []string{"coupure", "heures sup non payées", "management toxique", "harcèlement", "recommande"}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" THENA ") + "  " + m.sessionLine() + "\n")

	switch m.mode {
	case modeSearch:
		m.viewSearch(&b)
	case modeForm:
		m.viewPanel(&b)
	case modeLogin:
		m.viewLogin(&b)
	}

	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render("✗ "+m.errText) + "\n")
	} else if m.status != "" {
		b.WriteString("\n" + okStyle.Render("✓ "+m.status) + "\n")
	}

	return containerStyle.Render(b.String())
}

func (m *Model) sessionLine() string {
	if s := m.svc.Session.Current(); s != nil {
		return dimStyle.Render("connecté: ") + valueStyle.Render(s.DisplayName)
	}
	return dimStyle.Render("non connecté")
}

func (m *Model) viewSearch(b *strings.Builder) {
	b.WriteString("\n" + sectionStyle.Render("┃ Recherche") + "\n")
	b.WriteString("  " + m.input.View() + "\n\n")

	if len(m.suggestions) == 0 {
		b.WriteString(dimStyle.Render("  tapez pour chercher un établissement") + "\n")
	}
	for i, s := range m.suggestions {
		line := "  " + s.Description
		if i == m.selected {
			line = selectedStyle.Render("▸ " + s.Description)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(footer("↑↓", "choisir", "entrée", "ouvrir", "esc", "quitter"))
}

func (m *Model) viewPanel(b *strings.Builder) {
	if m.place != nil {
		b.WriteString("\n" + sectionStyle.Render("┃ "+m.place.Name) + "\n")
		if m.place.Address != "" {
			b.WriteString("  " + dimStyle.Render(m.place.Address) + "\n")
		}
		if m.place.RatingExternal != nil {
			b.WriteString("  " + labelStyle.Render("note Google: ") + valueStyle.Render(fmt.Sprintf("%.1f/5", *m.place.RatingExternal)) + "\n")
		}
	}

	b.WriteString("  " + labelStyle.Render("note THENA: ") + valueStyle.Render(formatAvg(m.bundle)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Avis") + "\n")
	if m.bundle == nil || len(m.bundle.Reviews) == 0 {
		b.WriteString(dimStyle.Render("  aucun avis pour le moment — soyez le premier") + "\n")
	}
	if m.bundle != nil {
		for _, r := range m.bundle.Reviews {
			b.WriteString("  " + valueStyle.Render(r.AuthorName) + " " + labelStyle.Render(formatScore(r.Score)))
			if r.Role != "" {
				b.WriteString(dimStyle.Render(" · " + r.Role))
			}
			if r.Contract != "" {
				b.WriteString(dimStyle.Render(" · " + r.Contract))
			}
			b.WriteString("\n")
			b.WriteString("    " + r.Comment + "\n")
		}
	}

	m.viewForm(b)
}

func (m *Model) viewForm(b *strings.Builder) {
	f := &m.form
	b.WriteString("\n" + sectionStyle.Render("┃ Votre avis") + "\n")

	b.WriteString(m.fieldLine(fieldScore, "Note", f.score.View(), "score"))
	b.WriteString(m.fieldLine(fieldComment, "Commentaire", "\n"+indent(f.comment.View(), 4), "comment"))
	b.WriteString(m.fieldLine(fieldRole, "Poste", f.role.View(), ""))
	b.WriteString(m.fieldLine(fieldContract, "Contrat", enumView(contractOpts, f.contractIdx), "contract"))
	b.WriteString(m.fieldLine(fieldHousing, "Logement", enumView(housingOpts, f.housingIdx), "housing"))
	b.WriteString(m.fieldLine(fieldHousingQuality, "Qualité logement", enumView(housingQualityOpts, f.housingQualityIdx), "housing_quality"))

	flags := make([]string, len(flagLabels))
	on := []bool{f.flags.SplitShift, f.flags.UnpaidOvertime, f.flags.ToxicManager, f.flags.Harassment, f.flags.Recommend}
	for i, label := range flagLabels {
		box := "☐"
		if on[i] {
			box = "☑"
		}
		item := box + " " + label
		if f.focus == fieldFlags && i == f.flagIdx {
			item = selectedStyle.Render(item)
		}
		flags[i] = item
	}
	b.WriteString(m.cursor(fieldFlags) + labelStyle.Render("Signaux: ") + strings.Join(flags, "  ") + "\n")

	keys := []string{"tab", "champ suivant", "ctrl+s", "publier", "ctrl+r", "actualiser"}
	if m.ownReview() != nil {
		keys = append(keys, "ctrl+x", "supprimer mon avis")
	}
	keys = append(keys, "esc", "retour")
	b.WriteString(footer(keys...))
}

func (m *Model) fieldLine(field int, label, view, errKey string) string {
	line := m.cursor(field) + labelStyle.Render(label+": ") + view
	if errKey != "" {
		if msg, ok := m.form.fieldErrs[errKey]; ok {
			line += "  " + errorStyle.Render(msg)
		}
	}
	return line + "\n"
}

func (m *Model) cursor(field int) string {
	if m.form.focus == field {
		return selectedStyle.Render("▸") + " "
	}
	return "  "
}

func (m *Model) viewLogin(b *strings.Builder) {
	b.WriteString("\n" + sectionStyle.Render("┃ Connexion") + "\n")
	b.WriteString(dimStyle.Render("  un lien magique vous sera envoyé") + "\n\n")
	b.WriteString("  " + labelStyle.Render("Email:  ") + m.email.View() + "\n")
	b.WriteString("  " + labelStyle.Render("Pseudo: ") + m.pseudo.View() + "\n")
	if m.devLink != "" {
		b.WriteString("\n  " + dimStyle.Render("lien dev: ") + m.devLink + "\n")
	}
	b.WriteString(footer("tab", "champ", "entrée", "envoyer", "esc", "annuler"))
}

func enumView(opts []string, idx int) string {
	v := opts[idx]
	if v == "" {
		v = "non précisé"
	}
	return dimStyle.Render("◂ ") + valueStyle.Render(v) + dimStyle.Render(" ▸")
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

// footer renders key/help pairs: footer("tab", "champ suivant", ...).
func footer(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, footerKeyStyle.Render("["+pairs[i]+"]")+footerStyle.Render(" "+pairs[i+1]))
	}
	return "\n" + footerStyle.Render("") + strings.Join(parts, "  ") + "\n"
}
