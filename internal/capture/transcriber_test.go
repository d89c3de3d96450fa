package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/viva/internal/quiz"
)

// fakeRecognizer feeds scripted segments and closes the stream when
// its ctx is cancelled.
type fakeRecognizer struct {
	segments []string
	gap      time.Duration
	startErr error
}

func (f *fakeRecognizer) Listen(ctx context.Context) (<-chan string, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for _, seg := range f.segments {
			if f.gap > 0 {
				select {
				case <-time.After(f.gap):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- seg:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func TestTranscriberJoinsSegments(t *testing.T) {
	rec := &fakeRecognizer{segments: []string{"the mitochondria", "is the powerhouse"}}
	tr := NewTranscriber(rec, 50*time.Millisecond)

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-tr.AutoStop():
	case <-time.After(2 * time.Second):
		t.Fatal("silence auto-stop never fired")
	}

	res, err := tr.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if want := "the mitochondria is the powerhouse"; res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
}

func TestTranscriberNotAnsweredSentinel(t *testing.T) {
	tr := NewTranscriber(&fakeRecognizer{}, 30*time.Millisecond)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-tr.AutoStop():
	case <-time.After(2 * time.Second):
		t.Fatal("auto-stop never fired with no speech")
	}
	res, err := tr.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Text != quiz.NotAnswered {
		t.Errorf("text = %q, want the not-answered sentinel", res.Text)
	}
}

func TestTranscriberSpeechRestartsSilenceTimer(t *testing.T) {
	// Segments arrive every 40ms, inside the 120ms silence window, so
	// the timer must keep resetting until the stream goes quiet.
	rec := &fakeRecognizer{segments: []string{"one", "two", "three"}, gap: 40 * time.Millisecond}
	tr := NewTranscriber(rec, 120*time.Millisecond)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-tr.AutoStop():
	case <-time.After(2 * time.Second):
		t.Fatal("auto-stop never fired")
	}
	res, err := tr.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if want := "one two three"; res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
}

func TestTranscriberManualStopBeforeSilence(t *testing.T) {
	rec := &fakeRecognizer{segments: []string{"partial answer"}}
	tr := NewTranscriber(rec, time.Hour)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	res, err := tr.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Text != "partial answer" {
		t.Errorf("text = %q, want %q", res.Text, "partial answer")
	}

	// Second Stop returns the same transcript and does not hang.
	res2, err := tr.Stop()
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if res2.Text != res.Text {
		t.Errorf("second Stop text = %q, want %q", res2.Text, res.Text)
	}
}

func TestTranscriberStartFailurePropagates(t *testing.T) {
	wantErr := &PermissionError{Device: "microphone", Err: errors.New("denied")}
	tr := NewTranscriber(&fakeRecognizer{startErr: wantErr}, time.Second)

	err := tr.Start(context.Background())
	var perm *PermissionError
	if !errors.As(err, &perm) {
		t.Fatalf("Start err = %v, want PermissionError", err)
	}

	if _, err := tr.Stop(); err == nil {
		t.Error("Stop after failed Start returned nil error")
	}
}

func TestTranscriberStartIsIdempotent(t *testing.T) {
	tr := NewTranscriber(&fakeRecognizer{segments: []string{"once"}}, 50*time.Millisecond)
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	<-tr.AutoStop()
	res, err := tr.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Text != "once" {
		t.Errorf("text = %q, want %q", res.Text, "once")
	}
}

func TestClassifyStartErr(t *testing.T) {
	perm := classifyStartErr(errors.New("fork/exec /usr/bin/arecord: permission denied"))
	var pe *PermissionError
	if !errors.As(perm, &pe) {
		t.Errorf("permission denied not classified: %v", perm)
	}

	other := classifyStartErr(errors.New("no such file or directory"))
	var de *DeviceError
	if !errors.As(other, &de) {
		t.Errorf("generic failure not a DeviceError: %v", other)
	}
}
