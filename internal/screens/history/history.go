package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/store"
	"github.com/abhisek/viva/internal/ui/layout"
	"github.com/abhisek/viva/internal/ui/theme"
)

type historyLoadedMsg struct {
	Sessions []store.SessionSummaryRecord
	Err      error
}

type turnsLoadedMsg struct {
	SessionID string
	Turns     []store.TurnRecord
	Err       error
}

// HistoryScreen lists past sessions; expanding one replays its
// transcript from the event log.
type HistoryScreen struct {
	eventRepo store.EventRepo
	sessions  []store.SessionSummaryRecord
	turns     map[string][]store.TurnRecord
	selected  int
	expanded  map[int]bool
	loaded    bool
	errMsg    string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(eventRepo store.EventRepo) *HistoryScreen {
	return &HistoryScreen{
		eventRepo: eventRepo,
		turns:     make(map[string][]store.TurnRecord),
		expanded:  make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return func() tea.Msg {
		sessions, err := s.eventRepo.QuerySessionSummaries(context.Background(), store.QueryOpts{Limit: 50})
		if err != nil {
			return historyLoadedMsg{Err: err}
		}
		return historyLoadedMsg{Sessions: sessions}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Transcript"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.sessions = msg.Sessions
		}
		s.loaded = true
		return s, nil

	case turnsLoadedMsg:
		if msg.Err == nil {
			s.turns[msg.SessionID] = msg.Turns
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.sessions)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			return s.toggleExpand()
		}
	}
	return s, nil
}

// toggleExpand flips the transcript view for the selected session,
// loading its turns on first open.
func (s *HistoryScreen) toggleExpand() (screen.Screen, tea.Cmd) {
	if s.selected >= len(s.sessions) {
		return s, nil
	}
	s.expanded[s.selected] = !s.expanded[s.selected]

	sess := s.sessions[s.selected]
	if _, ok := s.turns[sess.SessionID]; ok || !s.expanded[s.selected] {
		return s, nil
	}
	repo := s.eventRepo
	return s, func() tea.Msg {
		turns, err := repo.QueryTurns(context.Background(), sess.SessionID)
		return turnsLoadedMsg{SessionID: sess.SessionID, Turns: turns, Err: err}
	}
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.sessions) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No sessions yet. Start practicing!")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, sess := range s.sessions {
		dateStr := sess.Timestamp.Format("Jan 02, 2006")
		mins := sess.DurationSecs / 60
		secs := sess.DurationSecs % 60

		scoreStr := ""
		if sess.Mode != "coach" || sess.Score > 0 {
			scoreStr = fmt.Sprintf("  %d/%d", sess.Score, sess.QuestionsTotal)
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s  %s  %d:%02d  %d questions%s",
			prefix, dateStr, sess.Mode, mins, secs, sess.QuestionsTotal, scoreStr)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			s.renderTurns(&b, sess.SessionID, width)
		}
	}

	return b.String()
}

func (s *HistoryScreen) renderTurns(b *strings.Builder, sessionID string, width int) {
	turns, ok := s.turns[sessionID]
	if !ok {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
				Render("    Loading transcript...")))
		b.WriteString("\n")
		return
	}
	if len(turns) == 0 {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
				Render("    No transcript recorded")))
		b.WriteString("\n")
		return
	}

	textWidth := min(width-12, 64)
	for _, turn := range turns {
		prefix := "Q"
		style := lipgloss.NewStyle().Foreground(theme.Secondary)
		switch turn.Speaker {
		case "user":
			prefix = "A"
			style = lipgloss.NewStyle().Foreground(theme.Text)
			if turn.HasVerdict {
				if turn.Verdict {
					prefix = "A ✓"
					style = style.Foreground(theme.Success)
				} else {
					prefix = "A ✗"
					style = style.Foreground(theme.Error)
				}
			}
		case "system":
			prefix = "--"
			style = lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
		}

		text := turn.Text
		if len(text) > textWidth {
			text = text[:textWidth-3] + "..."
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			style.Render(fmt.Sprintf("    %s %s", prefix, text))))
		b.WriteString("\n")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
