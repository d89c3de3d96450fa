package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	doc "github.com/abhisek/viva/internal/ingest"
	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/screens/history"
	ingestscreen "github.com/abhisek/viva/internal/screens/ingest"
	"github.com/abhisek/viva/internal/screens/placeholder"
	"github.com/abhisek/viva/internal/screens/practice"
	"github.com/abhisek/viva/internal/screens/welcome"
	"github.com/abhisek/viva/internal/store"
	"github.com/abhisek/viva/internal/ui/components"
	"github.com/abhisek/viva/internal/ui/theme"
)

// Deps carries everything the home menu hands down to the screens it
// opens. Live and Coach differ in evaluator and capture channel, so
// each mode gets its own practice deps.
type Deps struct {
	Extractor  doc.Extractor
	EventRepo  store.EventRepo
	Live       practice.Deps
	Coach      practice.Deps
	ScoreCoach bool
}

// HomeScreen is the main menu of the application.
type HomeScreen struct {
	menu     components.Menu
	sessions int
	loaded   bool
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps Deps) *HomeScreen {
	h := &HomeScreen{}

	items := []components.MenuItem{
		{Label: "LIVE PRACTICE", Action: func() tea.Cmd {
			return pushMode(deps, quiz.Config{Mode: quiz.ModeLive}, deps.Live, "Live Practice")
		}},
		{Label: "PRESENTATION COACH", Action: func() tea.Cmd {
			cfg := quiz.Config{Mode: quiz.ModeCoach, ScoreCoach: deps.ScoreCoach}
			return pushMode(deps, cfg, deps.Coach, "Presentation Coach")
		}},
		{Label: "HISTORY", Action: func() tea.Cmd {
			if deps.EventRepo == nil {
				return func() tea.Msg {
					return router.PushScreenMsg{Screen: placeholder.New("History")}
				}
			}
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(deps.EventRepo)}
			}
		}},
		{Label: "QUIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	}
	h.menu = components.NewMenu(items)

	if deps.EventRepo != nil {
		if sessions, err := deps.EventRepo.QuerySessionSummaries(context.Background(), store.QueryOpts{}); err == nil {
			h.sessions = len(sessions)
			h.loaded = true
		}
	}
	return h
}

func pushMode(deps Deps, cfg quiz.Config, pd practice.Deps, title string) tea.Cmd {
	if deps.Extractor == nil {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: placeholder.New(title)}
		}
	}
	return func() tea.Msg {
		return router.PushScreenMsg{Screen: ingestscreen.New(cfg, deps.Extractor, pd)}
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	var sections []string

	sections = append(sections, lipgloss.PlaceHorizontal(width, lipgloss.Center, welcome.RenderBanner(width)))

	tagline := lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("Oral practice for anything you need to explain out loud")
	sections = append(sections, tagline)

	if h.loaded && h.sessions > 0 {
		noun := "sessions"
		if h.sessions == 1 {
			noun = "session"
		}
		sections = append(sections, lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Accent).
			Render(fmt.Sprintf("%d %s practiced", h.sessions, noun)))
	}

	menu := lipgloss.PlaceHorizontal(width, lipgloss.Center, h.menu.View())
	sections = append(sections, menu)

	content := strings.Join(sections, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
