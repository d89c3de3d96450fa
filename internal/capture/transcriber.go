package capture

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/viva/internal/quiz"
)

// DefaultSilenceTimeout is how long the live transcriber waits after
// the last recognized speech before auto-stopping.
const DefaultSilenceTimeout = 2500 * time.Millisecond

// Recognizer streams recognized speech segments from the microphone.
// The returned channel closes when recognition ends.
type Recognizer interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// Transcriber is the live-mode capture channel: it accumulates
// recognized segments and auto-stops after a silence window. Stop
// returns the joined transcript, or the not-answered sentinel when no
// speech was recognized.
type Transcriber struct {
	rec     Recognizer
	silence time.Duration

	mu            sync.Mutex
	started       bool
	stopped       bool
	autoStopFired bool
	segments      []string
	startErr      error

	cancel   context.CancelFunc
	autoStop chan struct{}
	drained  chan struct{}
}

// NewTranscriber creates a live capture channel. A non-positive
// silence duration falls back to DefaultSilenceTimeout.
func NewTranscriber(rec Recognizer, silence time.Duration) *Transcriber {
	if silence <= 0 {
		silence = DefaultSilenceTimeout
	}
	return &Transcriber{
		rec:      rec,
		silence:  silence,
		autoStop: make(chan struct{}),
		drained:  make(chan struct{}),
	}
}

func (t *Transcriber) AutoStop() <-chan struct{} { return t.autoStop }

func (t *Transcriber) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	segs, err := t.rec.Listen(ctx)
	if err != nil {
		t.mu.Lock()
		t.startErr = err
		t.mu.Unlock()
		close(t.drained)
		return err
	}

	go t.pump(segs)
	return nil
}

// pump drains recognized segments, restarting the silence timer on
// each one. The timer runs from Start, so a student who never speaks
// still gets auto-stopped.
func (t *Transcriber) pump(segs <-chan string) {
	defer close(t.drained)
	timer := time.NewTimer(t.silence)
	defer timer.Stop()
	for {
		select {
		case seg, ok := <-segs:
			if !ok {
				t.fireAutoStop()
				return
			}
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			t.mu.Lock()
			t.segments = append(t.segments, seg)
			t.mu.Unlock()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(t.silence)
		case <-timer.C:
			t.fireAutoStop()
			return
		}
	}
}

func (t *Transcriber) fireAutoStop() {
	t.mu.Lock()
	fired := t.autoStopFired
	t.autoStopFired = true
	t.mu.Unlock()
	if !fired {
		close(t.autoStop)
	}
}

// Stop ends recognition and returns the transcript. Safe to call
// after an auto-stop; a second Stop returns the same result.
func (t *Transcriber) Stop() (Result, error) {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return Result{}, &DeviceError{Op: "stop", Err: errNotStarted}
	}
	alreadyStopped := t.stopped
	t.stopped = true
	cancel := t.cancel
	t.mu.Unlock()

	if !alreadyStopped && cancel != nil {
		cancel()
	}
	<-t.drained

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return Result{}, t.startErr
	}
	text := strings.Join(t.segments, " ")
	if text == "" {
		text = quiz.NotAnswered
	}
	return Result{Text: text}, nil
}

var errNotStarted = &DeviceError{Op: "lifecycle", Err: errStopBeforeStart}

// errStopBeforeStart keeps the wrapped chain non-nil.
var errStopBeforeStart = errString("stop before start")

type errString string

func (e errString) Error() string { return string(e) }

// ExecRecognizer runs an external streaming speech recognizer and
// treats each stdout line as one recognized segment. Works with
// whisper-stream and vosk-transcriber style tools.
type ExecRecognizer struct {
	Path string
	Args []string
}

// recognizer candidates in preference order.
var recognizerCandidates = []struct {
	bin  string
	args []string
}{
	{"whisper-stream", []string{"--no-timestamps"}},
	{"vosk-transcriber", []string{"-o", "-"}},
}

// DiscoverRecognizer probes PATH for a known streaming recognizer.
func DiscoverRecognizer() (*ExecRecognizer, error) {
	for _, c := range recognizerCandidates {
		path, err := exec.LookPath(c.bin)
		if err != nil {
			continue
		}
		return &ExecRecognizer{Path: path, Args: c.args}, nil
	}
	return nil, &DeviceError{Op: "discover", Err: errString("no speech recognizer found (tried whisper-stream, vosk-transcriber)")}
}

func (r *ExecRecognizer) Listen(ctx context.Context) (<-chan string, error) {
	cmd := exec.CommandContext(ctx, r.Path, r.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &DeviceError{Op: "pipe", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, classifyStartErr(err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}
		_ = cmd.Wait()
	}()
	return out, nil
}

func classifyStartErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") {
		return &PermissionError{Device: "microphone", Err: err}
	}
	return &DeviceError{Op: "start", Err: err}
}
