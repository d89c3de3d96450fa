package narrate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeEngine records spoken chunks and can be made to block until
// released, so tests control playback timing.
type fakeEngine struct {
	mu     sync.Mutex
	spoken []string

	block   chan struct{} // nil means speak instantly
	failOn  string
	failErr error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Speak(ctx context.Context, text string) error {
	if e.block != nil {
		select {
		case <-e.block:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.failOn != "" && text == e.failOn {
		return e.failErr
	}
	e.mu.Lock()
	e.spoken = append(e.spoken, text)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) spokenChunks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.spoken...)
}

func waitDone(t *testing.T, u *Utterance) {
	t.Helper()
	select {
	case <-u.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("utterance did not resolve")
	}
}

func TestUtterancePlaysChunksInOrder(t *testing.T) {
	engine := &fakeEngine{}
	n := New(engine)

	u := n.Begin("first", "second", "third")
	waitDone(t, u)

	if u.Cancelled() {
		t.Fatal("utterance reported cancelled")
	}
	if u.Err() != nil {
		t.Fatalf("err = %v", u.Err())
	}
	got := engine.spokenChunks()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("spoke %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendExtendsCurrentUtterance(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	n := New(engine)

	u := n.Begin("question")
	if !n.Append("hint") {
		t.Fatal("Append rejected while utterance in flight")
	}
	close(engine.block)
	waitDone(t, u)

	got := engine.spokenChunks()
	if len(got) != 2 || got[0] != "question" || got[1] != "hint" {
		t.Errorf("spoke %v, want [question hint]", got)
	}
}

func TestAppendAfterFinishIsRejected(t *testing.T) {
	n := New(&fakeEngine{})
	u := n.Begin("only")
	waitDone(t, u)

	if n.Append("late") {
		t.Error("Append accepted after the utterance finished")
	}
}

func TestBeginCancelsInFlightUtterance(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	n := New(engine)

	first := n.Begin("interrupted")
	second := n.Begin("winner")
	close(engine.block)

	waitDone(t, first)
	waitDone(t, second)

	if !first.Cancelled() {
		t.Error("first utterance not marked cancelled")
	}
	if second.Cancelled() {
		t.Error("second utterance marked cancelled")
	}
	for _, chunk := range engine.spokenChunks() {
		if chunk == "interrupted" {
			// The blocked Speak was cancelled via ctx, so the chunk
			// must never complete.
			t.Error("cancelled chunk was spoken to completion")
		}
	}
}

func TestStopCancelsAndClearsCurrent(t *testing.T) {
	engine := &fakeEngine{block: make(chan struct{})}
	n := New(engine)

	u := n.Begin("halted")
	n.Stop()
	waitDone(t, u)

	if !u.Cancelled() {
		t.Error("stopped utterance not marked cancelled")
	}
	if n.Append("orphan") {
		t.Error("Append accepted after Stop cleared the current utterance")
	}
}

func TestEngineFailureFinishesUtterance(t *testing.T) {
	wantErr := errors.New("synth crashed")
	engine := &fakeEngine{failOn: "bad", failErr: wantErr}
	n := New(engine)

	u := n.Begin("ok", "bad", "never")
	waitDone(t, u)

	if u.Cancelled() {
		t.Error("failed utterance marked cancelled")
	}
	if !errors.Is(u.Err(), wantErr) {
		t.Errorf("err = %v, want %v", u.Err(), wantErr)
	}
	got := engine.spokenChunks()
	if len(got) != 1 || got[0] != "ok" {
		t.Errorf("spoke %v, want playback to stop at the failure", got)
	}
}

func TestNullEngineRespectsCancellation(t *testing.T) {
	e := &NullEngine{PerWord: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()
	if err := e.Speak(ctx, "one two three"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
