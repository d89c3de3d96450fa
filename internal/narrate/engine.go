package narrate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Engine synthesizes and plays one chunk of speech, blocking until
// playback completes or ctx is cancelled.
type Engine interface {
	Speak(ctx context.Context, text string) error
	Name() string
}

// ExecEngine drives an external text-to-speech binary. Playback is
// interrupted by killing the process when ctx is cancelled.
type ExecEngine struct {
	name string
	path string
	args func(text string) []string
}

// engine candidates in preference order. say is the macOS voice,
// espeak-ng and flite are the common Linux synthesizers.
var engineCandidates = []struct {
	bin  string
	args func(text string) []string
}{
	{"say", func(text string) []string { return []string{text} }},
	{"espeak-ng", func(text string) []string { return []string{"-s", "160", text} }},
	{"espeak", func(text string) []string { return []string{"-s", "160", text} }},
	{"flite", func(text string) []string { return []string{"-t", text} }},
}

// DiscoverEngine probes PATH for a known text-to-speech binary and
// returns an engine for the first one found. Returns ErrNoEngine when
// none is installed.
func DiscoverEngine() (Engine, error) {
	for _, c := range engineCandidates {
		path, err := exec.LookPath(c.bin)
		if err != nil {
			continue
		}
		return &ExecEngine{name: c.bin, path: path, args: c.args}, nil
	}
	return nil, ErrNoEngine
}

// ErrNoEngine indicates no text-to-speech binary was found on PATH.
var ErrNoEngine = fmt.Errorf("no text-to-speech engine found (tried say, espeak-ng, espeak, flite)")

func (e *ExecEngine) Name() string { return e.name }

func (e *ExecEngine) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, e.path, e.args(text)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", e.name, err)
	}
	return nil
}

// NullEngine plays nothing. With a non-zero PerWord it still paces
// each chunk at reading speed, so silent sessions keep the same
// narration-gated flow as audible ones.
type NullEngine struct {
	PerWord time.Duration
}

func (e *NullEngine) Name() string { return "null" }

func (e *NullEngine) Speak(ctx context.Context, text string) error {
	if e.PerWord <= 0 {
		return nil
	}
	d := time.Duration(len(strings.Fields(text))) * e.PerWord
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
