package ingest

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	doc "github.com/abhisek/viva/internal/ingest"
	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/screens/practice"
	"github.com/abhisek/viva/internal/ui/components"
	"github.com/abhisek/viva/internal/ui/layout"
	"github.com/abhisek/viva/internal/ui/theme"
)

// parseDoneMsg carries the extraction outcome.
type parseDoneMsg struct {
	session   *quiz.Session
	questions quiz.QuestionSet
	err       error
}

// spinnerTickMsg animates the parsing indicator.
type spinnerTickMsg time.Time

// IngestScreen asks for a study document, turns it into a question set
// and hands the ready session to the practice screen.
type IngestScreen struct {
	mode      quiz.Mode
	cfg       quiz.Config
	extractor doc.Extractor
	deps      practice.Deps

	input   components.TextInput
	session *quiz.Session
	parsing bool
	frame   int
	errMsg  string
}

var _ screen.Screen = (*IngestScreen)(nil)
var _ screen.KeyHintProvider = (*IngestScreen)(nil)

// New creates an ingest screen for the given practice mode.
func New(cfg quiz.Config, extractor doc.Extractor, deps practice.Deps) *IngestScreen {
	return &IngestScreen{
		mode:      cfg.Mode,
		cfg:       cfg,
		extractor: extractor,
		deps:      deps,
		input:     components.NewTextInput("Path to notes, a PDF or an image...", false, 0),
	}
}

func (s *IngestScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *IngestScreen) Title() string {
	if s.mode == quiz.ModeCoach {
		return "Presentation Coach"
	}
	return "Live Practice"
}

func (s *IngestScreen) KeyHints() []layout.KeyHint {
	if s.parsing {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Load document"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *IngestScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case parseDoneMsg:
		return s.handleParseDone(msg)

	case spinnerTickMsg:
		if s.parsing {
			s.frame++
			return s, spinnerTick()
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// An in-flight extraction is abandoned; its result is
			// matched against the session it was started for and
			// dropped once the screen is gone.
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "enter":
			if !s.parsing {
				return s.submit()
			}
			return s, nil
		}
		if s.parsing {
			return s, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *IngestScreen) submit() (screen.Screen, tea.Cmd) {
	path := strings.TrimSpace(s.input.Value())
	if path == "" {
		return s, nil
	}

	session := quiz.NewSession(s.cfg)
	if err := session.BeginParsing(); err != nil {
		s.errMsg = err.Error()
		return s, nil
	}
	s.session = session
	s.parsing = true
	s.errMsg = ""

	extractor := s.extractor
	return s, tea.Batch(spinnerTick(), func() tea.Msg {
		document, err := doc.LoadDocument(path)
		if err != nil {
			return parseDoneMsg{session: session, err: err}
		}
		qs, err := extractor.Extract(context.Background(), document)
		if err != nil {
			return parseDoneMsg{session: session, err: err}
		}
		return parseDoneMsg{session: session, questions: qs}
	})
}

func (s *IngestScreen) handleParseDone(msg parseDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.session != s.session {
		// Result from an extraction we already abandoned.
		return s, nil
	}
	s.parsing = false

	if msg.err != nil {
		s.session.ParseFailed(msg.err.Error())
		s.session = nil
		s.errMsg = msg.err.Error()
		return s, nil
	}

	s.session.ParseSucceeded(msg.questions)
	ready := s.session
	s.session = nil
	return s, func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: practice.New(ready, s.deps)}
	}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func spinnerTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

func (s *IngestScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n\n")

	heading := "What should I quiz you on?"
	if s.mode == quiz.ModeCoach {
		heading = "What are you presenting about?"
	}
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Bold(true).
		Render(heading))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("Point me at your study material: .txt, .md, .pdf or an image."))
	b.WriteString("\n\n")

	if s.parsing {
		frame := spinnerFrames[s.frame%len(spinnerFrames)]
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Secondary).
			Render(frame + " Reading the document and drafting questions..."))
		return b.String()
	}

	input := lipgloss.NewStyle().
		Width(min(width-8, 60)).
		Render(s.input.View())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, input))

	if s.errMsg != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(theme.Error).
			Render(s.errMsg))
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
