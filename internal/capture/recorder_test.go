package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// scriptedRecorder swaps the real recorder binary for a shell script
// that writes known bytes to the output path and exits.
func scriptedRecorder(script string) *Recorder {
	return &Recorder{
		bin: "/bin/sh",
		args: func(out string) []string {
			return []string{"-c", script, out}
		},
	}
}

// waitForClip blocks until the scripted recorder has written its bytes.
// Unlike the real recorder binaries, the fake has no SIGINT handler, so
// Stop's interrupt can kill it mid-startup before the write lands.
func waitForClip(t *testing.T, r *Recorder) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fi, err := os.Stat(r.path); err == nil && fi.Size() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("scripted recorder never wrote the clip")
}

func TestRecorderCapturesClip(t *testing.T) {
	r := scriptedRecorder(`printf 'fake-wav-bytes' > "$0"`)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForClip(t, r)

	res, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !bytes.Equal(res.Audio, []byte("fake-wav-bytes")) {
		t.Errorf("audio = %q, want %q", res.Audio, "fake-wav-bytes")
	}
	if res.MIME != "audio/wav" {
		t.Errorf("mime = %q, want %q", res.MIME, "audio/wav")
	}
	if !res.HasAudio() {
		t.Error("HasAudio() = false, want true")
	}
}

func TestRecorderRepeatStopReturnsSameClip(t *testing.T) {
	r := scriptedRecorder(`printf 'fake-wav-bytes' > "$0"`)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForClip(t, r)

	res, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Second Stop returns the same finalized clip and does not fail.
	res2, err := r.Stop()
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if !bytes.Equal(res2.Audio, res.Audio) {
		t.Errorf("second Stop audio = %q, want %q", res2.Audio, res.Audio)
	}
	if res2.MIME != res.MIME {
		t.Errorf("second Stop mime = %q, want %q", res2.MIME, res.MIME)
	}
}

func TestRecorderEmptyRecordingFails(t *testing.T) {
	r := scriptedRecorder(`: > "$0"`)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := r.Stop()
	var dev *DeviceError
	if !errors.As(err, &dev) {
		t.Fatalf("Stop error = %v, want DeviceError", err)
	}

	// The failure is sticky across repeat Stops too.
	_, err2 := r.Stop()
	if !errors.As(err2, &dev) {
		t.Fatalf("second Stop error = %v, want DeviceError", err2)
	}
}

func TestRecorderStopBeforeStart(t *testing.T) {
	r := scriptedRecorder(`printf x > "$0"`)
	if _, err := r.Stop(); err == nil {
		t.Fatal("Stop before Start succeeded, want error")
	}
}
