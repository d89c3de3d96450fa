package practice

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/ui/theme"
)

func (s *PracticeScreen) View(width, height int) string {
	if s.quitConfirm {
		return renderQuitConfirm(width)
	}

	statusLine := s.renderStatusLine(width)
	statusHeight := lipgloss.Height(statusLine) + 1

	transcriptHeight := height - statusHeight
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}

	var b strings.Builder
	b.WriteString(s.renderTranscript(width, transcriptHeight))
	b.WriteString("\n")
	b.WriteString(statusLine)
	return b.String()
}

// renderTranscript renders the most recent turns that fit the area,
// newest at the bottom.
func (s *PracticeScreen) renderTranscript(width, height int) string {
	turns := s.session.Transcript()

	textWidth := width - 6
	if textWidth < 20 {
		textWidth = 20
	}

	var lines []string
	for _, turn := range turns {
		lines = append(lines, renderTurn(turn, textWidth)...)
		lines = append(lines, "")
	}

	// Keep the tail.
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append([]string{""}, lines...)
	}

	padded := make([]string, len(lines))
	for i, l := range lines {
		padded[i] = "  " + l
	}
	return strings.Join(padded, "\n")
}

func renderTurn(turn quiz.Turn, width int) []string {
	var label string
	var labelStyle lipgloss.Style

	switch turn.Speaker {
	case quiz.SpeakerAgent:
		label = "Examiner"
		labelStyle = lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)
	case quiz.SpeakerUser:
		label = "You"
		labelStyle = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	default:
		label = "System"
		labelStyle = lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true)
	}

	marker := ""
	if turn.Verdict != nil {
		if *turn.Verdict {
			marker = " " + lipgloss.NewStyle().Foreground(theme.Success).Bold(true).Render("✓")
		} else {
			marker = " " + lipgloss.NewStyle().Foreground(theme.Error).Bold(true).Render("✗")
		}
	}

	textStyle := lipgloss.NewStyle().Foreground(theme.Text).Width(width)
	if turn.Speaker == quiz.SpeakerSystem {
		textStyle = textStyle.Foreground(theme.TextDim).Italic(true)
	}
	body := textStyle.Render(turn.Text)

	lines := []string{labelStyle.Render(label+":") + marker}
	lines = append(lines, strings.Split(body, "\n")...)
	return lines
}

// renderStatusLine shows what the session is doing right now and which
// key moves it along.
func (s *PracticeScreen) renderStatusLine(width int) string {
	var text string
	var style lipgloss.Style

	switch s.session.State() {
	case quiz.StateAsking:
		if s.session.Narrating() {
			text = "Speaking..."
			style = lipgloss.NewStyle().Foreground(theme.Secondary)
		} else if s.session.AnswerReady() {
			text = "Press Space when you are ready to answer"
			style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
		} else {
			text = "..."
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		}
	case quiz.StateListening:
		text = fmt.Sprintf("● Listening %s  (pauses end your answer, Enter finishes now)", s.elapsedStr())
		style = lipgloss.NewStyle().Foreground(theme.Error).Bold(true)
	case quiz.StateRecording:
		text = fmt.Sprintf("● Recording %s  (Space to stop)", s.elapsedStr())
		style = lipgloss.NewStyle().Foreground(theme.Error).Bold(true)
	case quiz.StateEvaluating:
		text = "Evaluating your answer..."
		style = lipgloss.NewStyle().Foreground(theme.Secondary)
	case quiz.StateFeedback:
		text = "Press Enter for the next question"
		style = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	case quiz.StateFinished:
		text = "Session complete"
		style = lipgloss.NewStyle().Foreground(theme.Success).Bold(true)
	default:
		text = s.session.State().String()
		style = lipgloss.NewStyle().Foreground(theme.TextDim)
	}

	line := lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(text))

	if s.statusMsg != "" {
		warn := lipgloss.PlaceHorizontal(width, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.Error).Render(s.statusMsg))
		line = warn + "\n" + line
	}
	return line
}

func (s *PracticeScreen) elapsedStr() string {
	if s.recordingSince.IsZero() {
		return "0:00"
	}
	d := time.Since(s.recordingSince)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func renderQuitConfirm(width int) string {
	var b strings.Builder
	b.WriteString("\n\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Bold(true).
		Render("End this session early?"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("Answers so far are kept in the transcript."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Success).
		Render("[Y] Yes, end session"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.Primary).
		Render("[N] No, keep going"))
	return b.String()
}
