package quiz

import (
	"errors"
	"testing"
)

func threeQuestions() QuestionSet {
	return QuestionSet{
		{ID: "q1", Prompt: "What is ATP?", SpokenPrompt: "Can you tell me what ATP is?", IdealAnswer: "Adenosine triphosphate."},
		{ID: "q2", Prompt: "Define osmosis.", IdealAnswer: "Diffusion of water across a membrane."},
		{ID: "q3", Prompt: "What does DNA stand for?", IdealAnswer: "Deoxyribonucleic acid."},
	}
}

// readySession builds a session already holding questions, as if
// ingestion had just completed.
func readySession(t *testing.T, cfg Config, qs QuestionSet) *Session {
	t.Helper()
	s := NewSession(cfg)
	if err := s.BeginParsing(); err != nil {
		t.Fatalf("BeginParsing: %v", err)
	}
	s.ParseSucceeded(qs)
	if s.State() != StateReady {
		t.Fatalf("state = %s, want ready", s.State())
	}
	return s
}

func correctFeedback(msg string) *Feedback {
	return &Feedback{Verdict: &Verdict{Correct: true, Message: msg}}
}

func wrongFeedback(msg string) *Feedback {
	return &Feedback{Verdict: &Verdict{Correct: false, Message: msg}}
}

// answerLive drives one full live-mode question: narration finishes,
// capture stops with the given answer, evaluation resolves.
func answerLive(t *testing.T, s *Session, answer string, fb *Feedback, evalErr error) Effect {
	t.Helper()
	eff := s.NarrationDone(s.Epoch(), s.narID)
	if eff.Kind != EffectArmCapture {
		t.Fatalf("after narration: effect %v, want arm capture", eff.Kind)
	}
	if s.State() != StateListening {
		t.Fatalf("state = %s, want listening", s.State())
	}
	eff = s.StopCapture(answer)
	if eff.Kind != EffectEvaluate {
		t.Fatalf("after stop: effect %v, want evaluate", eff.Kind)
	}
	if s.State() != StateEvaluating {
		t.Fatalf("state = %s, want evaluating", s.State())
	}
	return s.EvaluationDone(s.Epoch(), fb, evalErr)
}

func TestLiveSessionHappyPath(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())

	eff := s.Start()
	if eff.Kind != EffectNarrate {
		t.Fatalf("Start effect = %v, want narrate", eff.Kind)
	}
	if got, want := eff.Utterance[0], "Can you tell me what ATP is?"; got != want {
		t.Errorf("narrated %q, want spoken prompt %q", got, want)
	}

	for i := 0; i < 3; i++ {
		eff = answerLive(t, s, "some answer", correctFeedback("Correct, well done."), nil)
	}

	if s.State() != StateFinished {
		t.Fatalf("state = %s, want finished", s.State())
	}
	if s.Cursor() != 3 {
		t.Errorf("cursor = %d, want 3", s.Cursor())
	}
	if s.Score() != 3 {
		t.Errorf("score = %d, want 3", s.Score())
	}
	// Closing feedback of the last question is still narrated.
	if eff.Kind != EffectNarrate {
		t.Errorf("final effect = %v, want narrate", eff.Kind)
	}
	if s.Current() != nil {
		t.Errorf("Current() after finish = %+v, want nil", s.Current())
	}
}

func TestFeedbackAndNextQuestionNarrateTogether(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()

	eff := answerLive(t, s, "energy currency", correctFeedback("Exactly right."), nil)
	if eff.Kind != EffectNarrate {
		t.Fatalf("effect = %v, want narrate", eff.Kind)
	}
	if len(eff.Utterance) != 2 {
		t.Fatalf("utterance chunks = %d, want 2 (feedback then next question)", len(eff.Utterance))
	}
	if eff.Utterance[0] != "Exactly right." {
		t.Errorf("first chunk = %q, want feedback text", eff.Utterance[0])
	}
	if eff.Utterance[1] != "Define osmosis." {
		t.Errorf("second chunk = %q, want next question narration", eff.Utterance[1])
	}
	if s.State() != StateAsking || s.Cursor() != 1 {
		t.Errorf("state/cursor = %s/%d, want asking/1", s.State(), s.Cursor())
	}
}

func TestGatewayErrorAdvancesExactlyOne(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()

	eff := answerLive(t, s, "mumble", nil, errors.New("evaluation timed out"))

	if s.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", s.Cursor())
	}
	if s.State() != StateAsking {
		t.Fatalf("state = %s, want asking", s.State())
	}
	// No feedback chunk leads the next question's narration.
	if eff.Kind != EffectNarrate || len(eff.Utterance) != 1 {
		t.Errorf("effect = %+v, want single-chunk narrate", eff)
	}
	if s.Score() != 0 {
		t.Errorf("score = %d, want 0", s.Score())
	}

	// The failure is visible in the transcript as a system turn, and
	// the user turn stays unevaluated.
	var sysTurn, userTurn *Turn
	for i := range s.Transcript() {
		tr := &s.Transcript()[i]
		switch tr.Speaker {
		case SpeakerSystem:
			sysTurn = tr
		case SpeakerUser:
			userTurn = tr
		}
	}
	if sysTurn == nil {
		t.Fatal("no system turn logged for the evaluation failure")
	}
	if userTurn == nil || userTurn.Verdict != nil {
		t.Errorf("user turn = %+v, want logged with nil verdict", userTurn)
	}
}

func TestNotAnsweredSentinelEvaluatesNormally(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()

	answerLive(t, s, NotAnswered, wrongFeedback("You did not answer the question."), nil)

	if s.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", s.Cursor())
	}
	var user *Turn
	for i := range s.Transcript() {
		if s.Transcript()[i].Speaker == SpeakerUser {
			user = &s.Transcript()[i]
		}
	}
	if user == nil || user.Text != NotAnswered {
		t.Fatalf("user turn = %+v, want sentinel text", user)
	}
	if user.Verdict == nil || *user.Verdict {
		t.Errorf("verdict = %v, want false", user.Verdict)
	}
}

func TestDoubleStopIsIgnored(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)

	first := s.StopCapture("answer")
	second := s.StopCapture("answer again")

	if first.Kind != EffectEvaluate {
		t.Fatalf("first stop effect = %v, want evaluate", first.Kind)
	}
	if second.Kind != EffectNone {
		t.Errorf("second stop effect = %v, want none", second.Kind)
	}
	userTurns := 0
	for _, tr := range s.Transcript() {
		if tr.Speaker == SpeakerUser {
			userTurns++
		}
	}
	if userTurns != 1 {
		t.Errorf("user turns = %d, want 1", userTurns)
	}
}

func TestResetDiscardsStaleEvaluation(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)
	s.StopCapture("answer")

	staleEpoch := s.Epoch()
	s.Reset()

	if s.State() != StateIdle {
		t.Fatalf("state after reset = %s, want idle", s.State())
	}
	if len(s.Transcript()) != 0 {
		t.Fatalf("transcript after reset has %d turns, want 0", len(s.Transcript()))
	}

	eff := s.EvaluationDone(staleEpoch, correctFeedback("Correct."), nil)
	if eff.Kind != EffectNone {
		t.Errorf("stale evaluation produced effect %v, want none", eff.Kind)
	}
	if s.State() != StateIdle || len(s.Transcript()) != 0 {
		t.Errorf("stale evaluation mutated the session: state=%s turns=%d", s.State(), len(s.Transcript()))
	}
}

func TestStaleNarrationDoneDiscarded(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	eff := s.Start()
	staleEpoch, staleID := s.Epoch(), eff.NarrationID
	s.Reset()

	if eff := s.NarrationDone(staleEpoch, staleID); eff.Kind != EffectNone {
		t.Errorf("stale narration completion produced effect %v", eff.Kind)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSupersededNarrationDoneDiscarded(t *testing.T) {
	s := readySession(t, Config{Mode: ModeCoach}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)
	s.StartCapture()
	s.StopCapture("recorded answer")

	feedbackEff := s.EvaluationDone(s.Epoch(), &Feedback{Report: &Report{
		Correctness: "Accurate.",
	}}, nil)
	if feedbackEff.Kind != EffectNarrate {
		t.Fatalf("feedback effect = %v, want narrate", feedbackEff.Kind)
	}

	// The user presses next while the feedback utterance is still
	// playing; question 2 narration begins.
	nextEff := s.Next()
	if nextEff.Kind != EffectNarrate {
		t.Fatalf("next effect = %v, want narrate", nextEff.Kind)
	}

	// The feedback utterance now reports its natural completion. Same
	// epoch, but it belongs to a superseded narration and must not
	// unlock capture while question 2 is audible.
	if eff := s.NarrationDone(s.Epoch(), feedbackEff.NarrationID); eff.Kind != EffectNone {
		t.Fatalf("superseded completion produced effect %v", eff.Kind)
	}
	if !s.Narrating() {
		t.Fatal("narrating cleared by a superseded utterance's completion")
	}
	if s.AnswerReady() {
		t.Fatal("capture unlocked while question narration is still playing")
	}
	if s.StartCapture() {
		t.Fatal("StartCapture accepted during question narration")
	}

	// The real completion for question 2 unlocks capture as usual.
	s.NarrationDone(s.Epoch(), nextEff.NarrationID)
	if !s.AnswerReady() {
		t.Fatal("answer not ready after the current narration finished")
	}
}

func TestCaptureBlockedWhileNarrating(t *testing.T) {
	s := readySession(t, Config{Mode: ModeCoach}, threeQuestions())
	s.Start()

	if s.AnswerReady() {
		t.Fatal("answer ready while question narration is in progress")
	}
	if s.StartCapture() {
		t.Fatal("StartCapture accepted while narrating")
	}
	if s.ActiveOps() != 1 {
		t.Errorf("active ops = %d, want 1 (narration only)", s.ActiveOps())
	}

	s.NarrationDone(s.Epoch(), s.narID)
	if !s.AnswerReady() {
		t.Fatal("answer not ready after narration finished")
	}
	if !s.StartCapture() {
		t.Fatal("StartCapture rejected after narration finished")
	}
	if s.State() != StateRecording {
		t.Errorf("state = %s, want recording", s.State())
	}
	if s.StartCapture() {
		t.Error("StartCapture accepted twice")
	}
}

func TestCoachFlowWithReport(t *testing.T) {
	s := readySession(t, Config{Mode: ModeCoach}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)
	s.StartCapture()

	eff := s.StopCapture("recorded answer")
	if eff.Kind != EffectEvaluate {
		t.Fatalf("stop effect = %v, want evaluate", eff.Kind)
	}

	fb := &Feedback{Report: &Report{
		Correctness: "Your answer was accurate.",
		Confidence:  "You sounded confident.",
		Tone:        "Good pacing.",
	}}
	eff = s.EvaluationDone(s.Epoch(), fb, nil)

	if s.State() != StateFeedback {
		t.Fatalf("state = %s, want feedback", s.State())
	}
	// Coach feedback is narrated on its own; advancing waits for the
	// explicit next action.
	if eff.Kind != EffectNarrate || len(eff.Utterance) != 1 {
		t.Fatalf("effect = %+v, want single-chunk narrate", eff)
	}
	if s.Cursor() != 0 {
		t.Errorf("cursor advanced to %d before Next", s.Cursor())
	}

	// Without opting in, coach reports contribute nothing to score.
	if s.Score() != 0 {
		t.Errorf("score = %d, want 0", s.Score())
	}

	eff = s.Next()
	if s.State() != StateAsking || s.Cursor() != 1 {
		t.Fatalf("after Next: state/cursor = %s/%d, want asking/1", s.State(), s.Cursor())
	}
	if eff.Kind != EffectNarrate {
		t.Errorf("Next effect = %v, want narrate", eff.Kind)
	}

	// Next outside feedback is a no-op.
	if eff := s.Next(); eff.Kind != EffectNone {
		t.Errorf("Next while asking produced effect %v", eff.Kind)
	}
}

func TestCoachScoringOptIn(t *testing.T) {
	s := readySession(t, Config{Mode: ModeCoach, ScoreCoach: true}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)
	s.StartCapture()
	s.StopCapture("recorded answer")
	s.EvaluationDone(s.Epoch(), &Feedback{Report: &Report{Correctness: "That was correct."}}, nil)

	if s.Score() != 1 {
		t.Errorf("score = %d, want 1 with coach scoring enabled", s.Score())
	}
}

func TestCaptureFailureIsRecoverable(t *testing.T) {
	s := readySession(t, Config{Mode: ModeCoach}, threeQuestions())
	s.Start()
	s.NarrationDone(s.Epoch(), s.narID)
	s.StartCapture()

	s.CaptureFailed("microphone permission denied")

	if s.State() != StateAsking {
		t.Fatalf("state = %s, want asking", s.State())
	}
	if !s.AnswerReady() {
		t.Fatal("capture not retryable after device failure")
	}
	last := s.Transcript()[len(s.Transcript())-1]
	if last.Speaker != SpeakerSystem {
		t.Errorf("last turn speaker = %s, want system", last.Speaker)
	}

	if !s.StartCapture() {
		t.Fatal("retry StartCapture rejected")
	}
}

func TestParseFailedReturnsToIdle(t *testing.T) {
	s := NewSession(Config{Mode: ModeLive})
	if err := s.BeginParsing(); err != nil {
		t.Fatalf("BeginParsing: %v", err)
	}
	s.ParseFailed("no questions found in document")

	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	// Restartable: a second submission proceeds normally.
	if err := s.BeginParsing(); err != nil {
		t.Fatalf("BeginParsing after failure: %v", err)
	}
	s.ParseSucceeded(threeQuestions())
	if s.State() != StateReady {
		t.Errorf("state = %s, want ready", s.State())
	}
}

func TestBeginParsingRejectedMidSession(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()
	if err := s.BeginParsing(); err == nil {
		t.Error("BeginParsing accepted while a run is in progress")
	}
}

func TestReplayScoreMatchesLive(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, threeQuestions())
	s.Start()
	answerLive(t, s, "a1", correctFeedback("Correct."), nil)
	answerLive(t, s, "a2", wrongFeedback("Not quite."), nil)
	answerLive(t, s, "a3", correctFeedback("Correct."), nil)

	if s.Score() != 2 {
		t.Fatalf("score = %d, want 2", s.Score())
	}
	// Replaying the transcript turn by turn converges on the same
	// score the session tracked incrementally.
	replayed := append([]Turn(nil), s.Transcript()...)
	if got := ReplayScore(replayed); got != s.Score() {
		t.Errorf("ReplayScore = %d, live score = %d", got, s.Score())
	}
}

func TestEmptyQuestionSetFinishesImmediately(t *testing.T) {
	s := readySession(t, Config{Mode: ModeLive}, QuestionSet{})
	eff := s.Start()
	if s.State() != StateFinished {
		t.Fatalf("state = %s, want finished", s.State())
	}
	if eff.Kind != EffectNone {
		t.Errorf("effect = %v, want none", eff.Kind)
	}
}

func TestClassifyReport(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }
	tests := []struct {
		name        string
		correctness string
		want        *bool
	}{
		{"accurate", "Your answer was accurate and complete.", boolPtr(true)},
		{"incorrect beats correct substring", "Your answer was incorrect.", boolPtr(false)},
		{"inaccurate", "The definition was inaccurate.", boolPtr(false)},
		{"spot on", "Spot on, nothing to add.", boolPtr(true)},
		{"ambiguous", "You covered most key points.", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyReport(Report{Correctness: tt.correctness})
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("got %v, want nil", *got)
			case tt.want != nil && got == nil:
				t.Errorf("got nil, want %v", *tt.want)
			case tt.want != nil && got != nil && *got != *tt.want:
				t.Errorf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}
