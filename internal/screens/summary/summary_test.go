package summary

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/viva/internal/quiz"
)

func verdict(v bool) *bool { return &v }

func testData() Data {
	return Data{
		Mode:      quiz.ModeLive,
		Questions: 2,
		Score:     1,
		Duration:  4 * time.Minute,
		Completed: true,
		Transcript: []quiz.Turn{
			{Speaker: quiz.SpeakerAgent, Text: "What is a goroutine?", QuestionID: "q1"},
			{Speaker: quiz.SpeakerUser, Text: "A lightweight thread managed by the runtime.", QuestionID: "q1", Verdict: verdict(true)},
			{Speaker: quiz.SpeakerAgent, Text: "Right.", QuestionID: "q1"},
			{Speaker: quiz.SpeakerAgent, Text: "What does the select statement do?", QuestionID: "q2"},
			{Speaker: quiz.SpeakerUser, Text: quiz.NotAnswered, QuestionID: "q2", Verdict: verdict(false)},
			{Speaker: quiz.SpeakerAgent, Text: "Not quite.", QuestionID: "q2"},
		},
	}
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testData())
	if s.Title() != "Session Summary" {
		t.Errorf("Title = %q, want %q", s.Title(), "Session Summary")
	}
}

func TestSummaryScreen_Display(t *testing.T) {
	s := New(testData())
	view := s.View(80, 40)
	if view == "" {
		t.Fatal("expected non-empty summary view")
	}
	if !strings.Contains(view, "Session complete!") {
		t.Error("expected completion title")
	}
	if !strings.Contains(view, "Score: 1/2") {
		t.Error("expected score line")
	}
	if !strings.Contains(view, "What is a goroutine?") {
		t.Error("expected transcript question")
	}
}

func TestSummaryScreen_EndedEarly(t *testing.T) {
	data := testData()
	data.Completed = false
	s := New(data)
	view := s.View(80, 40)
	if !strings.Contains(view, "Session ended early") {
		t.Error("expected early-end title")
	}
}

func TestSummaryScreen_CoachHidesScore(t *testing.T) {
	data := testData()
	data.Mode = quiz.ModeCoach
	for i := range data.Transcript {
		data.Transcript[i].Verdict = nil
	}
	s := New(data)
	view := s.View(80, 40)
	if strings.Contains(view, "Score:") {
		t.Error("coach run without verdicts should not show a score")
	}
}

func TestSummaryScreen_Navigation_Enter(t *testing.T) {
	s := New(testData())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Error("expected a command on Enter (pop)")
	}
}

func TestSummaryScreen_Navigation_Esc(t *testing.T) {
	s := New(testData())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Error("expected a command on Esc (pop)")
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	s := New(testData())
	hints := s.KeyHints()
	if len(hints) != 2 {
		t.Errorf("KeyHints length = %d, want 2", len(hints))
	}
}
