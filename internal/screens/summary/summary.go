package summary

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/ui/components"
	"github.com/abhisek/viva/internal/ui/layout"
	"github.com/abhisek/viva/internal/ui/theme"
)

// Data is everything the summary needs from a finished run.
type Data struct {
	Mode       quiz.Mode
	Questions  int
	Score      int
	Duration   time.Duration
	Transcript []quiz.Turn
	Completed  bool
}

// SummaryScreen displays the end-of-session recap.
type SummaryScreen struct {
	data   Data
	scroll int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(data Data) *SummaryScreen {
	return &SummaryScreen{data: data}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Enter", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.scroll > 0 {
				s.scroll--
			}
		case "down", "j":
			s.scroll++
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	var b strings.Builder

	title := "Session complete!"
	if !s.data.Completed {
		title = "Session ended early"
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render(title))
	b.WriteString("\n\n")

	mins := int(s.data.Duration.Minutes())
	secs := int(s.data.Duration.Seconds()) % 60
	statsLine := fmt.Sprintf("%s        Duration: %d:%02d", s.data.Mode, mins, secs)
	if s.scored() {
		statsLine += fmt.Sprintf("        Score: %d/%d", s.data.Score, s.answered())
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Render(statsLine))
	b.WriteString("\n\n")

	if s.scored() && s.answered() > 0 {
		bar := components.NewProgressBar("", float64(s.data.Score)/float64(s.answered()), true, min(width-8, 50))
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
		b.WriteString("\n\n")
	}

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(
		strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render("Transcript")))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n\n")

	head := lipgloss.Height(b.String())
	b.WriteString(s.renderTranscript(width, height-head))
	return b.String()
}

// scored reports whether any turn carries a verdict. Coach runs
// without scoring enabled show no score line.
func (s *SummaryScreen) scored() bool {
	for _, t := range s.data.Transcript {
		if t.Verdict != nil {
			return true
		}
	}
	return false
}

// answered counts user turns, i.e. questions that got an answer.
func (s *SummaryScreen) answered() int {
	n := 0
	for _, t := range s.data.Transcript {
		if t.Speaker == quiz.SpeakerUser {
			n++
		}
	}
	return n
}

func (s *SummaryScreen) renderTranscript(width, height int) string {
	if height < 1 {
		return ""
	}
	textWidth := min(width-8, 70)
	if textWidth < 20 {
		textWidth = 20
	}

	var lines []string
	for _, turn := range s.data.Transcript {
		var prefix string
		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch turn.Speaker {
		case quiz.SpeakerAgent:
			prefix = "Q: "
			style = style.Foreground(theme.Secondary)
		case quiz.SpeakerUser:
			prefix = "A: "
			if turn.Verdict != nil {
				if *turn.Verdict {
					prefix = "A ✓ "
					style = style.Foreground(theme.Success)
				} else {
					prefix = "A ✗ "
					style = style.Foreground(theme.Error)
				}
			}
		default:
			prefix = "-- "
			style = style.Foreground(theme.TextDim).Italic(true)
		}
		rendered := style.Width(textWidth).Render(prefix + turn.Text)
		lines = append(lines, strings.Split(rendered, "\n")...)
		lines = append(lines, "")
	}

	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if s.scroll > maxScroll {
		s.scroll = maxScroll
	}
	end := s.scroll + height
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[s.scroll:end]

	var b strings.Builder
	for _, l := range visible {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, l))
		b.WriteString("\n")
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
