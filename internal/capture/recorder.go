package capture

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Recorder is the coach-mode capture channel: it records microphone
// audio to a temporary WAV file via an external recorder binary and
// returns the clip bytes on Stop. It never auto-stops; ending the
// recording is an explicit user action.
type Recorder struct {
	bin  string
	args func(outPath string) []string

	mu      sync.Mutex
	started bool
	stopped bool
	cmd     *exec.Cmd
	path    string
	waitErr chan error

	// final holds the outcome of the first Stop; later Stops return it
	// unchanged.
	final    Result
	finalErr error
}

// recorder candidates in preference order. arecord is ALSA, rec is
// sox, ffmpeg as a last resort.
var recorderCandidates = []struct {
	bin  string
	args func(outPath string) []string
}{
	{"arecord", func(out string) []string {
		return []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", out}
	}},
	{"rec", func(out string) []string {
		return []string{"-q", "-r", "16000", "-c", "1", out}
	}},
	{"ffmpeg", func(out string) []string {
		return []string{"-loglevel", "quiet", "-f", "pulse", "-i", "default", "-ar", "16000", "-ac", "1", out}
	}},
}

// DiscoverRecorder probes PATH for a known recording binary.
func DiscoverRecorder() (*Recorder, error) {
	for _, c := range recorderCandidates {
		path, err := exec.LookPath(c.bin)
		if err != nil {
			continue
		}
		return &Recorder{bin: path, args: c.args}, nil
	}
	return nil, &DeviceError{Op: "discover", Err: errString("no audio recorder found (tried arecord, rec, ffmpeg)")}
}

func (r *Recorder) AutoStop() <-chan struct{} { return nil }

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	f, err := os.CreateTemp("", "viva-answer-*.wav")
	if err != nil {
		return &DeviceError{Op: "tempfile", Err: err}
	}
	path := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, r.bin, r.args(path)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return classifyStartErr(err)
	}

	r.started = true
	r.cmd = cmd
	r.path = path
	r.waitErr = make(chan error, 1)
	go func() {
		err := cmd.Wait()
		if err != nil && strings.Contains(strings.ToLower(stderr.String()), "permission") {
			err = &PermissionError{Device: "microphone", Err: err}
		}
		r.waitErr <- err
	}()
	return nil
}

// Stop interrupts the recorder, waits for it to flush the file, and
// returns the recorded clip. The temp file is removed before return;
// a second Stop returns the same finalized result.
func (r *Recorder) Stop() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return Result{}, errNotStarted
	}
	if r.stopped {
		return r.final, r.finalErr
	}
	r.stopped = true
	r.final, r.finalErr = r.finalize()
	return r.final, r.finalErr
}

func (r *Recorder) finalize() (Result, error) {
	defer os.Remove(r.path)

	// SIGINT lets arecord and sox finalize the WAV header; fall back
	// to a hard kill if the process lingers.
	_ = r.cmd.Process.Signal(os.Interrupt)
	select {
	case err := <-r.waitErr:
		var perm *PermissionError
		if errors.As(err, &perm) {
			return Result{}, perm
		}
	case <-time.After(2 * time.Second):
		_ = r.cmd.Process.Kill()
		<-r.waitErr
	}

	audio, err := os.ReadFile(r.path)
	if err != nil {
		return Result{}, &DeviceError{Op: "read", Err: err}
	}
	if len(audio) == 0 {
		return Result{}, &DeviceError{Op: "read", Err: errString("empty recording")}
	}
	return Result{Audio: audio, MIME: "audio/wav"}, nil
}
