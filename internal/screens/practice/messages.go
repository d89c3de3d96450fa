package practice

import (
	"time"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/quiz"
)

// narrationDoneMsg is sent when an utterance finishes playing. The id
// names the narration request so the session can discard completions
// for a superseded utterance; cancelled ones carry no state transition
// either way.
type narrationDoneMsg struct {
	epoch     int
	id        int
	cancelled bool
	err       error
}

// captureStartedMsg is sent when the capture channel is open and
// receiving audio.
type captureStartedMsg struct {
	epoch   int
	channel capture.Channel
}

// captureFailedMsg is sent when the capture channel could not be opened.
type captureFailedMsg struct {
	epoch int
	err   error
}

// autoStopMsg is sent when the capture channel ends capture on its own
// (silence timeout).
type autoStopMsg struct {
	epoch int
}

// captureDoneMsg carries the finalized capture result after Stop.
type captureDoneMsg struct {
	epoch  int
	result capture.Result
	err    error
}

// evalDoneMsg carries the evaluation outcome for the pending answer.
type evalDoneMsg struct {
	epoch    int
	feedback *quiz.Feedback
	err      error
}

// timerTickMsg updates the recording elapsed display once a second.
type timerTickMsg time.Time
