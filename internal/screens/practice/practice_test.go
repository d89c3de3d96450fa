package practice

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/narrate"
	"github.com/abhisek/viva/internal/quiz"
	"github.com/abhisek/viva/internal/router"
	"github.com/abhisek/viva/internal/screen"
	"github.com/abhisek/viva/internal/screens/summary"
	"github.com/abhisek/viva/internal/store"
)

// fakeChannel is a scripted capture channel.
type fakeChannel struct {
	result   capture.Result
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (f *fakeChannel) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeChannel) Stop() (capture.Result, error) {
	f.stopped = true
	if f.stopErr != nil {
		return capture.Result{}, f.stopErr
	}
	return f.result, nil
}

func (f *fakeChannel) AutoStop() <-chan struct{} { return nil }

// fakeGateway pops canned feedback in order.
type fakeGateway struct {
	feedbacks []*quiz.Feedback
	errs      []error
	calls     []quiz.Question
	results   []capture.Result
}

func (f *fakeGateway) Evaluate(ctx context.Context, q quiz.Question, res capture.Result) (*quiz.Feedback, error) {
	f.calls = append(f.calls, q)
	f.results = append(f.results, res)
	i := len(f.calls) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var fb *quiz.Feedback
	if i < len(f.feedbacks) {
		fb = f.feedbacks[i]
	}
	return fb, err
}

// fakeRepo records appended events and stubs the rest of the repo.
type fakeRepo struct {
	sessionEvents []store.SessionEventData
	turnEvents    []store.TurnEventData
}

func (r *fakeRepo) AppendSessionEvent(ctx context.Context, data store.SessionEventData) error {
	r.sessionEvents = append(r.sessionEvents, data)
	return nil
}

func (r *fakeRepo) AppendTurnEvent(ctx context.Context, data store.TurnEventData) error {
	r.turnEvents = append(r.turnEvents, data)
	return nil
}

func (r *fakeRepo) AppendLLMRequest(context.Context, store.LLMRequestEventData) error { return nil }
func (r *fakeRepo) QuerySessionSummaries(context.Context, store.QueryOpts) ([]store.SessionSummaryRecord, error) {
	return nil, nil
}
func (r *fakeRepo) QueryTurns(context.Context, string) ([]store.TurnRecord, error) { return nil, nil }
func (r *fakeRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMEventRecord, error) {
	return nil, nil
}
func (r *fakeRepo) GetLLMEvent(context.Context, int) (*store.LLMEventRecord, error) { return nil, nil }
func (r *fakeRepo) LLMUsageByPurpose(context.Context) ([]store.LLMPurposeUsage, error) {
	return nil, nil
}
func (r *fakeRepo) LLMUsageByModel(context.Context) ([]store.LLMModelUsage, error) { return nil, nil }

func twoQuestions() quiz.QuestionSet {
	return quiz.QuestionSet{
		{ID: "q1", Prompt: "What is a context?", IdealAnswer: "Cancellation and deadlines"},
		{ID: "q2", Prompt: "What is a channel?", IdealAnswer: "Typed conduit"},
	}
}

func readySession(t *testing.T, cfg quiz.Config) *quiz.Session {
	t.Helper()
	s := quiz.NewSession(cfg)
	if err := s.BeginParsing(); err != nil {
		t.Fatalf("BeginParsing: %v", err)
	}
	s.ParseSucceeded(twoQuestions())
	return s
}

func correct(msg string) *quiz.Feedback {
	return &quiz.Feedback{Verdict: &quiz.Verdict{Correct: true, Message: msg}}
}

// step executes a command and feeds its message back, returning the
// next command. Fails the test if the command is nil.
func step(t *testing.T, s screen.Screen, cmd tea.Cmd) (screen.Screen, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return s.Update(cmd())
}

func newLiveScreen(t *testing.T, ch *fakeChannel, gw *fakeGateway, repo *fakeRepo) (*PracticeScreen, *quiz.Session) {
	t.Helper()
	sess := readySession(t, quiz.Config{Mode: quiz.ModeLive})
	deps := Deps{
		Narrator:  narrate.New(&narrate.NullEngine{}),
		Gateway:   gw,
		EventRepo: repo,
		NewChannel: func() (capture.Channel, error) {
			return ch, nil
		},
	}
	return New(sess, deps), sess
}

func TestLiveAnswerRoundTrip(t *testing.T) {
	ch := &fakeChannel{result: capture.Result{Text: "cancellation and deadlines"}}
	gw := &fakeGateway{feedbacks: []*quiz.Feedback{correct("Right.")}}
	repo := &fakeRepo{}
	scr, sess := newLiveScreen(t, ch, gw, repo)

	var s screen.Screen = scr
	cmd := s.Init()

	// Narration of the first question completes, arming capture.
	s, cmd = step(t, s, cmd)
	if sess.State() != quiz.StateListening {
		t.Fatalf("state = %v, want listening", sess.State())
	}

	// Channel opens.
	s, _ = step(t, s, cmd)
	if !ch.started {
		t.Fatal("channel never started")
	}

	// Manual stop with Enter.
	s, cmd = s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	s, cmd = step(t, s, cmd) // captureDoneMsg → evaluate
	if sess.State() != quiz.StateEvaluating {
		t.Fatalf("state = %v, want evaluating", sess.State())
	}

	// Evaluation returns; feedback and next question narrate together.
	s, _ = step(t, s, cmd)
	if sess.State() != quiz.StateAsking {
		t.Fatalf("state = %v, want asking", sess.State())
	}
	if sess.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", sess.Cursor())
	}
	if len(gw.calls) != 1 || gw.calls[0].ID != "q1" {
		t.Fatalf("gateway calls = %+v", gw.calls)
	}

	// The answered turn was persisted with its verdict.
	var found bool
	for _, ev := range repo.turnEvents {
		if ev.Speaker == "user" && ev.QuestionID == "q1" {
			found = true
			if !ev.HasVerdict || !ev.Verdict {
				t.Errorf("persisted turn missing correct verdict: %+v", ev)
			}
		}
	}
	if !found {
		t.Error("user turn for q1 was not persisted")
	}
	if len(repo.sessionEvents) == 0 || repo.sessionEvents[0].Action != "start" {
		t.Errorf("session start event not recorded: %+v", repo.sessionEvents)
	}
}

func TestSessionEndReachesSummary(t *testing.T) {
	ch := &fakeChannel{result: capture.Result{Text: "an answer"}}
	gw := &fakeGateway{feedbacks: []*quiz.Feedback{correct("Yes."), correct("Yes.")}}
	repo := &fakeRepo{}
	scr, sess := newLiveScreen(t, ch, gw, repo)

	var s screen.Screen = scr
	cmd := s.Init()

	for q := 0; q < 2; q++ {
		s, cmd = step(t, s, cmd) // narration done
		s, _ = step(t, s, cmd)   // channel opened
		s, cmd = s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
		s, cmd = step(t, s, cmd) // capture done → evaluate
		s, cmd = step(t, s, cmd) // evaluation done
	}

	// After the last evaluation the closing feedback narrates, then the
	// summary takes over.
	if sess.State() != quiz.StateFinished {
		t.Fatalf("state = %v, want finished", sess.State())
	}
	if cmd == nil {
		t.Fatal("expected closing narration command")
	}
	msg := cmd()
	_, cmd = s.Update(msg) // narration done → replace with summary
	if cmd == nil {
		t.Fatal("expected replace command")
	}
	replace, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	sum, ok := replace.Screen.(*summary.SummaryScreen)
	if !ok {
		t.Fatalf("expected summary screen, got %T", replace.Screen)
	}
	_ = sum

	last := repo.sessionEvents[len(repo.sessionEvents)-1]
	if last.Action != "end" || last.Score != 2 || last.QuestionsTotal != 2 {
		t.Errorf("end event = %+v, want action end, score 2/2", last)
	}
}

func TestCaptureFailureIsRetriable(t *testing.T) {
	bad := &fakeChannel{startErr: &capture.PermissionError{Device: "mic"}}
	good := &fakeChannel{result: capture.Result{Text: "retry answer"}}
	channels := []*fakeChannel{bad, good}
	gw := &fakeGateway{feedbacks: []*quiz.Feedback{correct("Ok.")}}

	sess := readySession(t, quiz.Config{Mode: quiz.ModeLive})
	deps := Deps{
		Narrator:  narrate.New(&narrate.NullEngine{}),
		Gateway:   gw,
		EventRepo: &fakeRepo{},
		NewChannel: func() (capture.Channel, error) {
			ch := channels[0]
			channels = channels[1:]
			return ch, nil
		},
	}
	var s screen.Screen = New(sess, deps)
	cmd := s.Init()

	s, cmd = step(t, s, cmd) // narration done → arm capture
	s, _ = step(t, s, cmd)   // open fails → captureFailedMsg
	if sess.State() != quiz.StateAsking || !sess.AnswerReady() {
		t.Fatalf("state = %v answerReady = %v, want recoverable asking", sess.State(), sess.AnswerReady())
	}

	// Space retries with a fresh channel.
	s, cmd = s.Update(tea.KeyPressMsg{Code: ' '})
	s, _ = step(t, s, cmd)
	if !good.started {
		t.Fatal("retry channel never started")
	}
	if sess.State() != quiz.StateListening {
		t.Fatalf("state = %v, want listening", sess.State())
	}
}

func TestCoachFlowWaitsForExplicitStart(t *testing.T) {
	ch := &fakeChannel{result: capture.Result{Text: "", Audio: []byte{1, 2}, MIME: "audio/wav"}}
	gw := &fakeGateway{feedbacks: []*quiz.Feedback{
		{Report: &quiz.Report{Correctness: "Accurate.", Confidence: "Steady.", Tone: "Clear."}},
	}}
	sess := readySession(t, quiz.Config{Mode: quiz.ModeCoach})
	deps := Deps{
		Narrator:  narrate.New(&narrate.NullEngine{}),
		Gateway:   gw,
		EventRepo: &fakeRepo{},
		NewChannel: func() (capture.Channel, error) {
			return ch, nil
		},
	}
	var s screen.Screen = New(sess, deps)
	cmd := s.Init()

	s, cmd = step(t, s, cmd) // narration done
	if cmd != nil {
		t.Fatal("coach mode must not arm capture on its own")
	}
	if !sess.AnswerReady() {
		t.Fatal("expected answer ready after narration")
	}

	// Space starts, space stops.
	s, cmd = s.Update(tea.KeyPressMsg{Code: ' '})
	s, _ = step(t, s, cmd) // channel opened
	if sess.State() != quiz.StateRecording {
		t.Fatalf("state = %v, want recording", sess.State())
	}
	s, cmd = s.Update(tea.KeyPressMsg{Code: ' '})
	s, cmd = step(t, s, cmd) // capture done → evaluate
	s, cmd = step(t, s, cmd) // evaluation done → feedback narration
	if sess.State() != quiz.StateFeedback {
		t.Fatalf("state = %v, want feedback", sess.State())
	}

	// The recording has no transcript, so the user turn carries a
	// placeholder instead of an empty line.
	var userText string
	for _, turn := range sess.Transcript() {
		if turn.Speaker == quiz.SpeakerUser {
			userText = turn.Text
		}
	}
	if userText != "(recorded answer)" {
		t.Fatalf("user turn text = %q, want %q", userText, "(recorded answer)")
	}
	// The placeholder is display-only; the gateway evaluates the audio.
	if got := gw.results[0]; got.Text != "" || !got.HasAudio() {
		t.Fatalf("gateway result = {Text:%q audio:%v}, want audio only", got.Text, got.HasAudio())
	}

	// Feedback narration completes, then Enter advances.
	s, _ = step(t, s, cmd)
	s, cmd = s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if sess.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", sess.Cursor())
	}
	if cmd == nil {
		t.Fatal("expected narration for the next question")
	}
}

func TestQuitConfirmEndsEarly(t *testing.T) {
	ch := &fakeChannel{}
	gw := &fakeGateway{}
	repo := &fakeRepo{}
	scr, _ := newLiveScreen(t, ch, gw, repo)

	var s screen.Screen = scr
	cmd := s.Init()
	s, _ = step(t, s, cmd) // narration done → listening

	s, _ = s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	s, cmd = s.Update(tea.KeyPressMsg{Code: 'y'})
	if cmd == nil {
		t.Fatal("expected summary handover")
	}
	replace, ok := cmd().(router.ReplaceScreenMsg)
	if !ok {
		t.Fatalf("expected ReplaceScreenMsg, got %T", cmd())
	}
	if _, ok := replace.Screen.(*summary.SummaryScreen); !ok {
		t.Fatalf("expected summary screen, got %T", replace.Screen)
	}
	last := repo.sessionEvents[len(repo.sessionEvents)-1]
	if last.Action != "end" {
		t.Errorf("last event action = %q, want end", last.Action)
	}
}

func TestStaleEvaluationDiscarded(t *testing.T) {
	ch := &fakeChannel{result: capture.Result{Text: "late"}}
	gw := &fakeGateway{}
	scr, sess := newLiveScreen(t, ch, gw, &fakeRepo{})

	var s screen.Screen = scr
	cmd := s.Init()
	s, _ = step(t, s, cmd)

	before := sess.State()
	s, cmd = s.Update(evalDoneMsg{epoch: sess.Epoch() - 1, feedback: correct("stale")})
	if cmd != nil {
		t.Fatal("stale evaluation must not schedule effects")
	}
	if sess.State() != before {
		t.Fatalf("state changed on stale evaluation: %v → %v", before, sess.State())
	}
}
