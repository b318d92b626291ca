package formatter

import (
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		titleRendered := StyleHeader.Render(strings.ToUpper(title))
		return boxStyle.Render(titleRendered + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Ago renders t relative to now, e.g. "3 minutes ago". Anything under a
// second reads "just now".
func Ago(t, now time.Time) string {
	if d := now.Sub(t); d >= 0 && d < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Held renders a lock age with the urgency coloring used for long-held
// sessions: yellow past an hour, red past a day.
func Held(acquired, now time.Time) string {
	text := Ago(acquired, now)
	switch d := now.Sub(acquired); {
	case d >= 24*time.Hour:
		return StyleRed.Render(text)
	case d >= time.Hour:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

// Timestamp renders an absolute local time for audit listings.
func Timestamp(t time.Time) string {
	return t.Local().Format("Jan 2 15:04:05")
}

// TierBadge returns a purple tier label.
func TierBadge(t domain.SubNodeTier) string {
	if t == "" {
		return StyleDim.Render("--")
	}
	return StylePurple.Render(string(t))
}

// RoleBadge returns the display form of a role, e.g. "Team Lead".
func RoleBadge(r domain.Role) string {
	words := strings.Split(string(r), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	label := strings.Join(words, " ")
	switch {
	case r.IsRoot():
		return StyleRed.Render(label)
	case r.IsElevated():
		return StyleYellow.Render(label)
	default:
		return StyleFg.Render(label)
	}
}

// StatusCell returns a colored release-matrix cell.
func StatusCell(s domain.CommitStatus) string {
	switch s {
	case domain.StatusCommitted:
		return StyleGreen.Render("✔ committed")
	case domain.StatusCommitting:
		return StyleYellowBold.Render("▶ committing")
	default:
		return StyleDim.Render("· pending")
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Plural returns "1 lock", "3 locks" or "2 audit entries".
func Plural(n int, word string) string {
	return english.Plural(n, word, "")
}
