package cmd

import (
	"fmt"
	"os"

	"github.com/abhisek/viva/internal/app"
	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/evaluate"
	"github.com/abhisek/viva/internal/ingest"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/narrate"
	"github.com/abhisek/viva/internal/screens/practice"
	"github.com/abhisek/viva/internal/store"
	"github.com/spf13/cobra"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	eventRepo := st.EventRepo()
	scoreCoach, _ := cmd.Flags().GetBool("score-coach")
	opts := app.Options{
		EventRepo:  eventRepo,
		ScoreCoach: scoreCoach,
	}

	var answerEval, coachEval evaluate.Gateway
	provider, err := llm.NewProviderFromEnv(ctx, eventRepo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Question extraction and evaluation will be unavailable.")
	} else {
		opts.Extractor = ingest.New(provider, ingest.DefaultConfig())
		answerEval = evaluate.NewAnswerEvaluator(provider, evaluate.DefaultConfig())
		coachEval = evaluate.NewCoachEvaluator(provider, evaluate.DefaultConfig())
	}

	narrator := narrate.New(buildEngine(cmd))
	silence, _ := cmd.Flags().GetDuration("silence")

	opts.Live = practice.Deps{
		Narrator:  narrator,
		Gateway:   answerEval,
		EventRepo: eventRepo,
		NewChannel: func() (capture.Channel, error) {
			rec, err := capture.DiscoverRecognizer()
			if err != nil {
				return nil, err
			}
			return capture.NewTranscriber(rec, silence), nil
		},
	}
	opts.Coach = practice.Deps{
		Narrator:  narrator,
		Gateway:   coachEval,
		EventRepo: eventRepo,
		NewChannel: func() (capture.Channel, error) {
			rec, err := capture.DiscoverRecorder()
			if err != nil {
				return nil, err
			}
			return rec, nil
		},
	}

	return app.Run(opts)
}

// buildEngine picks a TTS engine, falling back to silent pacing so a
// machine without speech synthesis still gets a working session flow.
func buildEngine(cmd *cobra.Command) narrate.Engine {
	if noSpeech, _ := cmd.Flags().GetBool("no-speech"); noSpeech {
		return &narrate.NullEngine{}
	}
	engine, err := narrate.DiscoverEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Text-to-speech not available:", err)
		fmt.Fprintln(os.Stderr, "Questions will be shown on screen only.")
		return &narrate.NullEngine{}
	}
	return engine
}
