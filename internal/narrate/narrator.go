package narrate

import (
	"context"
	"sync"
)

// Narrator plays logical utterances through an Engine. At most one
// utterance is audible at a time: Begin cancels whatever is in flight
// and starts fresh, Append extends the current utterance with chunks
// that play back-to-back in order.
type Narrator struct {
	engine Engine

	mu      sync.Mutex
	current *Utterance
}

// New creates a narrator over the given engine.
func New(engine Engine) *Narrator {
	return &Narrator{engine: engine}
}

// Begin cancels any in-flight utterance and starts a new one with the
// given chunks. The returned handle resolves when the whole utterance
// has played or been cancelled.
func (n *Narrator) Begin(chunks ...string) *Utterance {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil {
		n.current.cancel()
	}
	u := newUtterance(chunks)
	n.current = u
	go u.run(n.engine)
	return u
}

// Append enqueues chunks onto the current utterance. Returns false if
// there is no current utterance or it has already finished; callers
// should Begin instead in that case.
func (n *Narrator) Append(chunks ...string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return false
	}
	return n.current.extend(chunks)
}

// Stop cancels the in-flight utterance, if any.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil {
		n.current.cancel()
		n.current = nil
	}
}

// Utterance is the handle for one logical narration. It tracks a
// chunk queue drained by a single playback goroutine.
type Utterance struct {
	ctx  context.Context
	stop context.CancelFunc
	done chan struct{}

	mu        sync.Mutex
	queue     []string
	cancelled bool
	finished  bool
	err       error
}

func newUtterance(chunks []string) *Utterance {
	ctx, stop := context.WithCancel(context.Background())
	return &Utterance{
		ctx:   ctx,
		stop:  stop,
		done:  make(chan struct{}),
		queue: append([]string(nil), chunks...),
	}
}

// Done resolves when the utterance has fully played, failed, or been
// cancelled. Check Cancelled to tell the cases apart.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Cancelled reports whether the utterance was cut off by a newer
// Begin or an explicit Stop.
func (u *Utterance) Cancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}

// Err returns the engine failure that ended playback, if any.
// Cancellation is not an error.
func (u *Utterance) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *Utterance) cancel() {
	u.mu.Lock()
	u.cancelled = true
	u.mu.Unlock()
	u.stop()
}

func (u *Utterance) extend(chunks []string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancelled || u.finished {
		return false
	}
	u.queue = append(u.queue, chunks...)
	return true
}

func (u *Utterance) run(engine Engine) {
	defer close(u.done)
	defer u.stop()
	for {
		u.mu.Lock()
		if u.cancelled {
			u.mu.Unlock()
			return
		}
		if len(u.queue) == 0 {
			u.finished = true
			u.mu.Unlock()
			return
		}
		chunk := u.queue[0]
		u.queue = u.queue[1:]
		u.mu.Unlock()

		if err := engine.Speak(u.ctx, chunk); err != nil {
			u.mu.Lock()
			if u.ctx.Err() == nil {
				// Engine failure, not cancellation. The utterance is
				// treated as finished so the session is not stalled
				// waiting for audio that will never play.
				u.err = err
				u.finished = true
			}
			u.mu.Unlock()
			return
		}
	}
}
