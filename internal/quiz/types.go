package quiz

import "strings"

// Question is a single practice question extracted from a source document.
type Question struct {
	// ID identifies the question within its set, e.g. "q3".
	ID string

	// Prompt is the question text shown in the transcript.
	Prompt string

	// SpokenPrompt is an optional conversational rephrasing used only
	// for narration. Empty means Prompt is narrated as-is.
	SpokenPrompt string

	// IdealAnswer is the canonical answer used for semantic evaluation.
	// Never shown to the student before they answer.
	IdealAnswer string
}

// Narration returns the text to speak for this question.
func (q Question) Narration() string {
	if q.SpokenPrompt != "" {
		return q.SpokenPrompt
	}
	return q.Prompt
}

// QuestionSet is the ordered, immutable sequence of questions for one
// session. Produced by the ingestion boundary and never mutated after.
type QuestionSet []Question

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerAgent  Speaker = "agent"
	SpeakerUser   Speaker = "user"
	SpeakerSystem Speaker = "system"
)

// NotAnswered is the transcript sentinel recorded when capture ends
// with no usable speech.
const NotAnswered = "Not answered"

// Turn is one entry in the append-only session transcript.
type Turn struct {
	Speaker    Speaker
	Text       string
	QuestionID string

	// Verdict is set only on user turns, and only once evaluation of
	// that answer resolves. Nil means unevaluated (or evaluation failed).
	Verdict *bool
}

// Verdict is the boolean-judgment feedback shape used by the live
// practice variant.
type Verdict struct {
	Correct bool
	Message string
}

// Report is the three-dimension free-text feedback shape used by the
// presentation-coach variant. It deliberately carries no boolean; the
// coach gives qualitative feedback.
type Report struct {
	Correctness string
	Confidence  string
	Tone        string
}

// Summary flattens the report into the paragraph that is logged and
// narrated back to the student.
func (r Report) Summary() string {
	out := ""
	for _, part := range []string{r.Correctness, r.Confidence, r.Tone} {
		if part == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += part
	}
	return out
}

// ClassifyReport derives an optional boolean verdict from a coach
// report by keyword inspection of its correctness dimension. Returns
// nil when the text is too ambiguous to call either way.
func ClassifyReport(r Report) *bool {
	text := strings.ToLower(r.Correctness)
	if text == "" {
		return nil
	}
	for _, kw := range []string{"incorrect", "inaccurate", "wrong", "not correct", "off the mark"} {
		if strings.Contains(text, kw) {
			v := false
			return &v
		}
	}
	for _, kw := range []string{"correct", "accurate", "right", "spot on", "well answered"} {
		if strings.Contains(text, kw) {
			v := true
			return &v
		}
	}
	return nil
}

// Feedback is the result of evaluating one answer. Exactly one of
// Verdict or Report is set, matching the session mode.
type Feedback struct {
	Verdict *Verdict
	Report  *Report
}

// Mode selects the product variant.
type Mode int

const (
	// ModeLive is chat-style practice: continuous transcription,
	// silence auto-stop, boolean verdicts, running score.
	ModeLive Mode = iota

	// ModeCoach is presentation coaching: explicit record/stop, audio
	// evaluation, free-text reports, explicit next-question step.
	ModeCoach
)

func (m Mode) String() string {
	if m == ModeCoach {
		return "coach"
	}
	return "live"
}

// State is the session state. Exactly one value at any instant; the
// single source of truth for which actions are valid next.
type State int

const (
	StateIdle State = iota
	StateParsing
	StateReady
	StateAsking
	StateListening
	StateRecording
	StateEvaluating
	StateFeedback
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateReady:
		return "ready"
	case StateAsking:
		return "asking"
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateEvaluating:
		return "evaluating"
	case StateFeedback:
		return "feedback"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// EffectKind tags the side effect a transition requests from the
// controller. The session itself never performs side effects.
type EffectKind int

const (
	// EffectNone means no side effect is requested.
	EffectNone EffectKind = iota

	// EffectNarrate requests narration of Utterance. The first chunk
	// starts a new logical utterance (cancelling any in-flight one);
	// subsequent chunks play back-to-back in order.
	EffectNarrate

	// EffectArmCapture requests that the capture channel be started
	// immediately (live mode, after question narration completes).
	EffectArmCapture

	// EffectEvaluate requests evaluation of the captured answer for
	// Question.
	EffectEvaluate
)

// Effect describes the side effect requested by a transition.
type Effect struct {
	Kind      EffectKind
	Utterance []string
	Question  *Question

	// NarrationID identifies this narration request, set for
	// EffectNarrate. Completion must be reported back with it so the
	// session can tell a stale utterance's natural finish apart from
	// the current one's.
	NarrationID int

	// Answer is the captured transcript text, set for EffectEvaluate.
	// Audio captures travel out-of-band (the controller holds the
	// capture result).
	Answer string
}

// Config parameterizes a session.
type Config struct {
	Mode Mode

	// ScoreCoach enables verdict derivation from coach reports via
	// ClassifyReport. Off by default: the coach variant gives
	// qualitative feedback, and its score stays zero unless the
	// caller opts in.
	ScoreCoach bool
}
