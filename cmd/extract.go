package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/viva/internal/ingest"
	"github.com/abhisek/viva/internal/llm"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Extract practice questions from a document (no database)",
	Long: `Load a document and print the question set the examiner would ask.

This is a stateless developer tool — no database, no session, no events.
Useful for checking what a document yields before practicing with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().Bool("json", false, "Print the question set as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	doc, err := ingest.LoadDocument(args[0])
	if err != nil {
		return err
	}

	// No EventRepo — logging skipped.
	ctx := context.Background()
	provider, err := llm.NewProviderFromEnv(ctx, nil)
	if err != nil {
		return fmt.Errorf("LLM provider: %w", err)
	}

	extractor := ingest.New(provider, ingest.DefaultConfig())
	qs, err := extractor.Extract(ctx, doc)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(qs)
	}

	fmt.Printf("%s — %d questions\n\n", doc.Path, len(qs))
	for i, q := range qs {
		fmt.Printf("── Question %d ──\n", i+1)
		fmt.Println(q.Prompt)
		if q.SpokenPrompt != "" && q.SpokenPrompt != q.Prompt {
			fmt.Printf("  (spoken: %s)\n", q.SpokenPrompt)
		}
		fmt.Printf("  Expected: %s\n\n", q.IdealAnswer)
	}
	return nil
}
