package quiz

import (
	"fmt"
	"time"
)

// Session is the live practice run. It owns the authoritative state,
// question cursor, and transcript, and is the only component allowed
// to mutate session progress.
//
// All methods run on the UI event loop (single-threaded cooperative
// scheduling); transitions run to completion without preemption, so
// the fields need no locking. Asynchronous completions (narration,
// capture, evaluation) re-enter through the epoch-tagged methods,
// which discard events from a previous session generation.
type Session struct {
	cfg Config

	questions  QuestionSet
	cursor     int
	state      State
	transcript []Turn

	// epoch increments on every Reset. Async completions tagged with
	// an older epoch are discarded rather than applied to the new
	// session.
	epoch int

	// narrating is true while an utterance requested by this session
	// is audible. Capture must never be armed while it is set.
	narrating bool

	// narID identifies the current narration request. A completion
	// carrying an older ID belongs to an utterance that was cancelled
	// or superseded (e.g. feedback finishing naturally right as Next
	// starts the following question) and must not clear narrating.
	narID int

	// answerReady gates the coach-mode "start answering" affordance:
	// set once question narration completes, cleared when the next
	// question is asked.
	answerReady bool

	startedAt time.Time
}

// NewSession creates an idle session.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, state: StateIdle}
}

func (s *Session) State() State           { return s.state }
func (s *Session) Mode() Mode             { return s.cfg.Mode }
func (s *Session) Cursor() int            { return s.cursor }
func (s *Session) Epoch() int             { return s.epoch }
func (s *Session) Questions() QuestionSet { return s.questions }
func (s *Session) StartedAt() time.Time   { return s.startedAt }

// AnswerReady reports whether the coach-mode capture affordance is
// unlocked (question narration has finished and no capture has begun).
func (s *Session) AnswerReady() bool {
	return s.state == StateAsking && s.answerReady && !s.narrating
}

// Narrating reports whether a narration requested by this session is
// still audible.
func (s *Session) Narrating() bool { return s.narrating }

// Transcript returns the ordered turns. Callers must not mutate it.
func (s *Session) Transcript() []Turn { return s.transcript }

// Current returns the question at the cursor, or nil when finished or
// not started.
func (s *Session) Current() *Question {
	if s.cursor < 0 || s.cursor >= len(s.questions) {
		return nil
	}
	q := s.questions[s.cursor]
	return &q
}

// Score counts user turns with a true verdict. Derived, never stored.
func (s *Session) Score() int {
	return ReplayScore(s.transcript)
}

// ReplayScore recomputes a score from a transcript. Replaying a log in
// order yields the same score the session tracked incrementally.
func ReplayScore(transcript []Turn) int {
	n := 0
	for _, t := range transcript {
		if t.Speaker == SpeakerUser && t.Verdict != nil && *t.Verdict {
			n++
		}
	}
	return n
}

// ActiveOps counts in-flight side effects. The session invariant is
// that this never exceeds 1.
func (s *Session) ActiveOps() int {
	n := 0
	if s.narrating {
		n++
	}
	if s.state == StateListening || s.state == StateRecording {
		n++
	}
	if s.state == StateEvaluating {
		n++
	}
	return n
}

// BeginParsing transitions idle → parsing. The caller must already
// hold a document; submitting without one is an ingestion error the
// caller surfaces without transitioning.
func (s *Session) BeginParsing() error {
	if s.state != StateIdle {
		return fmt.Errorf("cannot submit document in state %s", s.state)
	}
	s.state = StateParsing
	return nil
}

// ParseFailed returns the session to idle with the failure logged as a
// system turn. The session is restartable with no residual state.
func (s *Session) ParseFailed(reason string) {
	if s.state != StateParsing {
		return
	}
	s.questions = nil
	s.state = StateIdle
	s.transcript = append(s.transcript, Turn{Speaker: SpeakerSystem, Text: reason})
}

// ParseSucceeded attaches the extracted question set and transitions
// parsing → ready.
func (s *Session) ParseSucceeded(qs QuestionSet) {
	if s.state != StateParsing {
		return
	}
	s.questions = qs
	s.state = StateReady
}

// Start begins the run: ready → asking with cursor 0, clearing any
// previous transcript. Returns the narration effect for the first
// question.
func (s *Session) Start() Effect {
	if s.state != StateReady {
		return Effect{}
	}
	s.transcript = nil
	s.cursor = 0
	s.startedAt = time.Now()
	if len(s.questions) == 0 {
		s.state = StateFinished
		return Effect{}
	}
	return s.ask(nil)
}

// ask enters asking for the question at the cursor, optionally
// prefixing the utterance with feedback chunks from the previous
// question so they play back-to-back.
func (s *Session) ask(lead []string) Effect {
	s.state = StateAsking
	s.answerReady = false
	q := s.questions[s.cursor]
	s.transcript = append(s.transcript, Turn{
		Speaker:    SpeakerAgent,
		Text:       q.Prompt,
		QuestionID: q.ID,
	})
	return s.narrate(append(lead, q.Narration()))
}

// narrate marks a new narration in flight and returns its effect. The
// ID bump supersedes any earlier utterance still audible.
func (s *Session) narrate(chunks []string) Effect {
	s.narrating = true
	s.narID++
	return Effect{
		Kind:        EffectNarrate,
		Utterance:   chunks,
		NarrationID: s.narID,
	}
}

// NarrationDone handles completion of an utterance started by this
// session. Stale epochs, cancelled narrations, and completions for a
// superseded utterance are discarded.
func (s *Session) NarrationDone(epoch, id int) Effect {
	if epoch != s.epoch || !s.narrating || id != s.narID {
		return Effect{}
	}
	s.narrating = false

	if s.state != StateAsking {
		// Feedback or closing narration finished; nothing to drive.
		return Effect{}
	}

	switch s.cfg.Mode {
	case ModeLive:
		s.state = StateListening
		return Effect{Kind: EffectArmCapture}
	default:
		// Coach mode waits for an explicit capture start.
		s.answerReady = true
		return Effect{}
	}
}

// StartCapture begins capturing an answer. In live mode the session
// arms capture itself after narration, so this is the explicit coach
// control and the retry path after a capture failure. Idempotent:
// calling it while capture is already active is a no-op, and it is
// rejected while narration is still in progress.
func (s *Session) StartCapture() bool {
	if s.state == StateRecording || s.state == StateListening {
		return false
	}
	if !s.AnswerReady() {
		return false
	}
	s.answerReady = false
	if s.cfg.Mode == ModeLive {
		s.state = StateListening
	} else {
		s.state = StateRecording
	}
	return true
}

// CaptureFailed handles a capture-device failure (e.g. microphone
// permission denied): the failure is logged as a system turn and the
// session returns to a stable asking state from which capture can be
// retried, rather than stranding in listening or recording.
func (s *Session) CaptureFailed(reason string) {
	if s.state != StateRecording && s.state != StateListening {
		return
	}
	s.transcript = append(s.transcript, Turn{Speaker: SpeakerSystem, Text: reason})
	s.state = StateAsking
	s.answerReady = true
}

// StopCapture finalizes the answer: listening|recording → evaluating.
// Manual stops and silence auto-stops both route here; a second stop
// after the first is ignored because the state has already advanced,
// so a single evaluating transition occurs per answer.
func (s *Session) StopCapture(answer string) Effect {
	if s.state != StateListening && s.state != StateRecording {
		return Effect{}
	}
	q := s.Current()
	if q == nil {
		return Effect{}
	}
	s.transcript = append(s.transcript, Turn{
		Speaker:    SpeakerUser,
		Text:       answer,
		QuestionID: q.ID,
	})
	s.state = StateEvaluating
	return Effect{Kind: EffectEvaluate, Question: q, Answer: answer}
}

// EvaluationDone applies the gateway result. On success the verdict is
// attached to the just-logged user turn and feedback is appended and
// narrated; on failure a system turn records the error and feedback
// narration is skipped. Either way the cursor advances by exactly one.
// Responses from a previous epoch are discarded.
func (s *Session) EvaluationDone(epoch int, fb *Feedback, evalErr error) Effect {
	if epoch != s.epoch || s.state != StateEvaluating {
		return Effect{}
	}
	q := s.Current()

	var lead []string
	if evalErr != nil || fb == nil {
		s.transcript = append(s.transcript, Turn{
			Speaker:    SpeakerSystem,
			Text:       "Could not evaluate this answer: " + errText(evalErr),
			QuestionID: questionID(q),
		})
	} else if text := s.applyFeedback(q, fb); text != "" {
		s.transcript = append(s.transcript, Turn{
			Speaker:    SpeakerAgent,
			Text:       text,
			QuestionID: questionID(q),
		})
		lead = []string{text}
	}

	if s.cfg.Mode == ModeCoach {
		s.state = StateFeedback
		if len(lead) > 0 {
			return s.narrate(lead)
		}
		return Effect{}
	}
	return s.advance(lead)
}

// Next advances past the feedback state in coach mode. Explicit user
// action; no-op elsewhere.
func (s *Session) Next() Effect {
	if s.state != StateFeedback {
		return Effect{}
	}
	s.narrating = false
	return s.advance(nil)
}

// advance moves the cursor forward one question and either re-enters
// asking or finishes.
func (s *Session) advance(lead []string) Effect {
	s.cursor++
	if s.cursor >= len(s.questions) {
		s.cursor = len(s.questions)
		s.state = StateFinished
		if len(lead) > 0 {
			return s.narrate(lead)
		}
		return Effect{}
	}
	return s.ask(lead)
}

// applyFeedback attaches the verdict to the most recent user turn for
// the question and returns the feedback text to log and narrate.
func (s *Session) applyFeedback(q *Question, fb *Feedback) string {
	var verdict *bool
	var text string

	switch {
	case fb.Verdict != nil:
		v := fb.Verdict.Correct
		verdict = &v
		text = fb.Verdict.Message
	case fb.Report != nil:
		if s.cfg.ScoreCoach {
			verdict = ClassifyReport(*fb.Report)
		}
		text = fb.Report.Summary()
	}

	if verdict != nil && q != nil {
		// Patch one field on the already-logged user turn; the
		// transcript is otherwise append-only.
		for i := len(s.transcript) - 1; i >= 0; i-- {
			t := &s.transcript[i]
			if t.Speaker == SpeakerUser && t.QuestionID == q.ID {
				t.Verdict = verdict
				break
			}
		}
	}
	return text
}

// Reset discards transcript, questions, and cursor entirely and
// returns to idle. The epoch bump makes any in-flight async result
// stale, so a dangling evaluation response cannot mutate the new
// session.
func (s *Session) Reset() {
	s.epoch++
	s.questions = nil
	s.transcript = nil
	s.cursor = 0
	s.narrating = false
	s.answerReady = false
	s.state = StateIdle
}

func questionID(q *Question) string {
	if q == nil {
		return ""
	}
	return q.ID
}

func errText(err error) string {
	if err == nil {
		return "empty evaluation response"
	}
	return err.Error()
}
