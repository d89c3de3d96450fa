package practice

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/evaluate"
	"github.com/abhisek/viva/internal/narrate"
	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/screens/summary"
	"github.com/abhisek/viva/internal/store"
	"github.com/abhisek/viva/internal/ui/layout"

	"github.com/google/uuid"
)

// Deps are the side-effect executors for a practice run. The session
// itself only decides transitions; everything here does the actual
// speaking, listening and judging.
type Deps struct {
	Narrator  *narrate.Narrator
	Gateway   evaluate.Gateway
	EventRepo store.EventRepo

	// NewChannel opens a fresh capture channel for one answer.
	// Channels are single-use, so every answer gets its own.
	NewChannel func() (capture.Channel, error)
}

// PracticeScreen drives one oral practice run: it executes the effects
// the session requests and feeds completions back in, tagged with the
// epoch they were scheduled under so a reset can discard stragglers.
type PracticeScreen struct {
	session *quiz.Session
	deps    Deps

	sessionID string
	channel   capture.Channel
	lastAudio capture.Result

	// persisted counts transcript turns already in the event log.
	persisted int

	recordingSince time.Time
	statusMsg      string
	quitConfirm    bool
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)
var _ screen.StatusProvider = (*PracticeScreen)(nil)

// New creates a practice screen for a session that has already parsed
// its questions (state ready).
func New(session *quiz.Session, deps Deps) *PracticeScreen {
	return &PracticeScreen{
		session:   session,
		deps:      deps,
		sessionID: uuid.New().String(),
	}
}

func (s *PracticeScreen) Init() tea.Cmd {
	if s.deps.EventRepo != nil {
		_ = s.deps.EventRepo.AppendSessionEvent(context.Background(), store.SessionEventData{
			SessionID:      s.sessionID,
			Action:         "start",
			Mode:           s.session.Mode().String(),
			QuestionsTotal: len(s.session.Questions()),
		})
	}
	eff := s.session.Start()
	s.persistTurns()
	if s.session.State() == quiz.StateFinished {
		return s.finishCmd()
	}
	return s.runEffect(eff)
}

func (s *PracticeScreen) Title() string {
	if s.session.Mode() == quiz.ModeCoach {
		return "Presentation Coach"
	}
	return "Live Practice"
}

// Status reports progress for the header's right-hand segment.
func (s *PracticeScreen) Status() string {
	total := len(s.session.Questions())
	if total == 0 {
		return ""
	}
	cursor := s.session.Cursor()
	if cursor >= total {
		cursor = total - 1
	}
	return fmt.Sprintf("Q %d/%d", cursor+1, total)
}

func (s *PracticeScreen) KeyHints() []layout.KeyHint {
	if s.quitConfirm {
		return []layout.KeyHint{
			{Key: "Y", Description: "End session"},
			{Key: "N", Description: "Keep going"},
		}
	}
	switch s.session.State() {
	case quiz.StateListening:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Finish answer"},
			{Key: "Esc", Description: "Quit"},
		}
	case quiz.StateRecording:
		return []layout.KeyHint{
			{Key: "Space", Description: "Stop recording"},
			{Key: "Esc", Description: "Quit"},
		}
	case quiz.StateFeedback:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next question"},
			{Key: "Esc", Description: "Quit"},
		}
	case quiz.StateAsking:
		if s.session.AnswerReady() {
			return []layout.KeyHint{
				{Key: "Space", Description: "Start answering"},
				{Key: "Esc", Description: "Quit"},
			}
		}
	}
	return []layout.KeyHint{
		{Key: "Esc", Description: "Quit"},
	}
}

func (s *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case narrationDoneMsg:
		return s.handleNarrationDone(msg)
	case captureStartedMsg:
		return s.handleCaptureStarted(msg)
	case captureFailedMsg:
		return s.handleCaptureFailed(msg)
	case autoStopMsg:
		return s.handleAutoStop(msg)
	case captureDoneMsg:
		return s.handleCaptureDone(msg)
	case evalDoneMsg:
		return s.handleEvalDone(msg)
	case timerTickMsg:
		if s.capturing() {
			return s, tickCmd()
		}
		return s, nil
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

// runEffect schedules the side effect a transition asked for.
func (s *PracticeScreen) runEffect(eff quiz.Effect) tea.Cmd {
	switch eff.Kind {
	case quiz.EffectNarrate:
		return s.narrateCmd(eff.Utterance, eff.NarrationID)
	case quiz.EffectArmCapture:
		return s.openChannelCmd()
	case quiz.EffectEvaluate:
		return s.evaluateCmd(eff)
	}
	return nil
}

func (s *PracticeScreen) narrateCmd(chunks []string, id int) tea.Cmd {
	if s.deps.Narrator == nil {
		epoch := s.session.Epoch()
		return func() tea.Msg {
			return narrationDoneMsg{epoch: epoch, id: id}
		}
	}
	u := s.deps.Narrator.Begin(chunks...)
	epoch := s.session.Epoch()
	return func() tea.Msg {
		<-u.Done()
		return narrationDoneMsg{epoch: epoch, id: id, cancelled: u.Cancelled(), err: u.Err()}
	}
}

func (s *PracticeScreen) openChannelCmd() tea.Cmd {
	epoch := s.session.Epoch()
	newChannel := s.deps.NewChannel
	return func() tea.Msg {
		if newChannel == nil {
			return captureFailedMsg{epoch: epoch, err: &capture.DeviceError{Op: "open", Err: errNoChannel}}
		}
		ch, err := newChannel()
		if err != nil {
			return captureFailedMsg{epoch: epoch, err: err}
		}
		if err := ch.Start(context.Background()); err != nil {
			return captureFailedMsg{epoch: epoch, err: err}
		}
		return captureStartedMsg{epoch: epoch, channel: ch}
	}
}

func (s *PracticeScreen) evaluateCmd(eff quiz.Effect) tea.Cmd {
	epoch := s.session.Epoch()
	gw := s.deps.Gateway
	q := *eff.Question
	res := s.lastAudio
	if res.Text == "" && !res.HasAudio() {
		res.Text = eff.Answer
	}
	return func() tea.Msg {
		if gw == nil {
			return evalDoneMsg{epoch: epoch, err: errNoGateway}
		}
		fb, err := gw.Evaluate(context.Background(), q, res)
		return evalDoneMsg{epoch: epoch, feedback: fb, err: err}
	}
}

func (s *PracticeScreen) handleNarrationDone(msg narrationDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.cancelled {
		return s, nil
	}
	if msg.err != nil {
		s.statusMsg = "Narration failed: " + msg.err.Error()
	}
	eff := s.session.NarrationDone(msg.epoch, msg.id)
	s.persistTurns()
	if s.session.State() == quiz.StateFinished {
		return s, s.finishCmd()
	}
	return s, s.runEffect(eff)
}

func (s *PracticeScreen) handleCaptureStarted(msg captureStartedMsg) (screen.Screen, tea.Cmd) {
	if msg.epoch != s.session.Epoch() || !s.capturing() {
		// The session moved on while the channel was opening.
		go func() { _, _ = msg.channel.Stop() }()
		return s, nil
	}
	s.channel = msg.channel
	s.recordingSince = time.Now()
	s.statusMsg = ""

	cmds := []tea.Cmd{tickCmd()}
	if ac := msg.channel.AutoStop(); ac != nil {
		epoch := msg.epoch
		cmds = append(cmds, func() tea.Msg {
			<-ac
			return autoStopMsg{epoch: epoch}
		})
	}
	return s, tea.Batch(cmds...)
}

func (s *PracticeScreen) handleCaptureFailed(msg captureFailedMsg) (screen.Screen, tea.Cmd) {
	if msg.epoch != s.session.Epoch() {
		return s, nil
	}
	s.session.CaptureFailed(msg.err.Error())
	s.persistTurns()
	s.statusMsg = "Capture failed. Press Space to retry."
	return s, nil
}

func (s *PracticeScreen) handleAutoStop(msg autoStopMsg) (screen.Screen, tea.Cmd) {
	if msg.epoch != s.session.Epoch() || !s.capturing() {
		// Stale signal from a channel we already stopped.
		return s, nil
	}
	return s.finishCapture()
}

// finishCapture closes the channel in the background and reports the
// result. Stop blocks while the recorder flushes, so it never runs on
// the update loop.
func (s *PracticeScreen) finishCapture() (screen.Screen, tea.Cmd) {
	if s.channel == nil {
		return s, nil
	}
	ch := s.channel
	s.channel = nil
	epoch := s.session.Epoch()
	return s, func() tea.Msg {
		res, err := ch.Stop()
		return captureDoneMsg{epoch: epoch, result: res, err: err}
	}
}

func (s *PracticeScreen) handleCaptureDone(msg captureDoneMsg) (screen.Screen, tea.Cmd) {
	if msg.epoch != s.session.Epoch() {
		return s, nil
	}
	if msg.err != nil {
		s.session.CaptureFailed(msg.err.Error())
		s.persistTurns()
		s.statusMsg = "Capture failed. Press Space to retry."
		return s, nil
	}
	s.lastAudio = msg.result
	text := msg.result.Text
	if text == "" && msg.result.HasAudio() {
		// Audio-only capture has no transcript; keep the user turn and
		// the "You:" bubble readable.
		text = "(recorded answer)"
	}
	eff := s.session.StopCapture(text)
	return s, s.runEffect(eff)
}

func (s *PracticeScreen) handleEvalDone(msg evalDoneMsg) (screen.Screen, tea.Cmd) {
	eff := s.session.EvaluationDone(msg.epoch, msg.feedback, msg.err)
	s.persistTurns()
	s.lastAudio = capture.Result{}
	if s.session.State() == quiz.StateFinished && !s.session.Narrating() {
		return s, s.finishCmd()
	}
	return s, s.runEffect(eff)
}

func (s *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.quitConfirm {
		switch key {
		case "y", "Y":
			s.quitConfirm = false
			return s.endEarly()
		case "n", "N", "esc":
			s.quitConfirm = false
		}
		return s, nil
	}

	switch key {
	case "esc":
		s.quitConfirm = true
		return s, nil

	case "enter", " ", "space":
		switch s.session.State() {
		case quiz.StateListening, quiz.StateRecording:
			return s.finishCapture()
		case quiz.StateFeedback:
			if key == " " || key == "space" {
				return s, nil
			}
			return s.nextQuestion()
		case quiz.StateAsking:
			if s.session.StartCapture() {
				return s, s.openChannelCmd()
			}
		}
	}
	return s, nil
}

func (s *PracticeScreen) nextQuestion() (screen.Screen, tea.Cmd) {
	eff := s.session.Next()
	s.persistTurns()
	if s.session.State() == quiz.StateFinished {
		return s, s.finishCmd()
	}
	return s, s.runEffect(eff)
}

// endEarly tears the run down from any state: in-flight narration and
// capture are stopped and whatever transcript exists is kept. The
// reset bumps the epoch so stragglers from cancelled effects are
// discarded if they ever arrive.
func (s *PracticeScreen) endEarly() (screen.Screen, tea.Cmd) {
	if s.deps.Narrator != nil {
		s.deps.Narrator.Stop()
	}
	if s.channel != nil {
		ch := s.channel
		s.channel = nil
		go func() { _, _ = ch.Stop() }()
	}
	cmd := s.finishCmd()
	s.session.Reset()
	return s, cmd
}

// finishCmd persists the end-of-session event and hands over to the
// summary screen, replacing this one on the stack.
func (s *PracticeScreen) finishCmd() tea.Cmd {
	s.persistTurns()
	transcript := s.session.Transcript()
	data := summary.Data{
		Mode:       s.session.Mode(),
		Questions:  len(s.session.Questions()),
		Score:      quiz.ReplayScore(transcript),
		Transcript: transcript,
		Completed:  s.session.State() == quiz.StateFinished,
	}
	if !s.session.StartedAt().IsZero() {
		data.Duration = time.Since(s.session.StartedAt())
	}
	if s.deps.EventRepo != nil {
		_ = s.deps.EventRepo.AppendSessionEvent(context.Background(), store.SessionEventData{
			SessionID:      s.sessionID,
			Action:         "end",
			Mode:           s.session.Mode().String(),
			QuestionsTotal: data.Questions,
			Score:          data.Score,
			DurationSecs:   int(data.Duration.Seconds()),
		})
	}
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: summary.New(data)}
	}
}

// persistTurns appends any transcript turns not yet in the event log.
// Called after transitions that patch verdicts, so user turns land
// with their verdict already attached.
func (s *PracticeScreen) persistTurns() {
	if s.deps.EventRepo == nil {
		return
	}
	transcript := s.session.Transcript()
	for ; s.persisted < len(transcript); s.persisted++ {
		turn := transcript[s.persisted]
		data := store.TurnEventData{
			SessionID:  s.sessionID,
			QuestionID: turn.QuestionID,
			Speaker:    string(turn.Speaker),
			Text:       turn.Text,
		}
		if turn.Verdict != nil {
			data.HasVerdict = true
			data.Verdict = *turn.Verdict
		}
		_ = s.deps.EventRepo.AppendTurnEvent(context.Background(), data)
	}
}

func (s *PracticeScreen) capturing() bool {
	st := s.session.State()
	return st == quiz.StateListening || st == quiz.StateRecording
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg(t)
	})
}

var (
	errNoChannel = errString("no capture channel configured")
	errNoGateway = errString("no evaluator configured")
)

type errString string

func (e errString) Error() string { return string(e) }
