package capture

import (
	"context"
	"fmt"
)

// Result is one captured answer. Live capture fills Text; coach
// capture fills Audio and MIME and leaves Text empty until the
// evaluator transcribes it.
type Result struct {
	Text  string
	Audio []byte
	MIME  string
}

// HasAudio reports whether the result carries a recorded clip.
func (r Result) HasAudio() bool { return len(r.Audio) > 0 }

// Channel captures exactly one answer. Implementations are single-use:
// Start once, Stop once. A second Start or Stop is a no-op.
//
// AutoStop resolves when the channel decides to end capture on its own
// (silence timeout in live mode), and also after Stop drains the
// stream, so waiters never block forever. Signals arriving after a
// manual Stop are stale and should be ignored. Channels that never
// auto-stop return nil.
type Channel interface {
	Start(ctx context.Context) error
	Stop() (Result, error)
	AutoStop() <-chan struct{}
}

// PermissionError indicates the audio device could not be opened,
// typically because microphone access was denied.
type PermissionError struct {
	Device string
	Err    error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("cannot open audio device %s: %v", e.Device, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// DeviceError indicates a capture failure other than permissions, e.g.
// no recording binary installed or the recorder exiting mid-capture.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio capture %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
