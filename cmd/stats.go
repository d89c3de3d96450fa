package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/viva/internal/store"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		sessions, err := st.EventRepo().QuerySessionSummaries(context.Background(), store.QueryOpts{})
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions yet.")
			return nil
		}

		var totalQuestions, totalScore, totalSecs int
		byMode := make(map[string]int)
		for _, s := range sessions {
			totalQuestions += s.QuestionsTotal
			totalScore += s.Score
			totalSecs += s.DurationSecs
			byMode[s.Mode]++
		}

		fmt.Printf("Sessions:   %d", len(sessions))
		var parts []string
		for _, mode := range []string{"live", "coach"} {
			if n := byMode[mode]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, mode))
			}
		}
		if len(parts) > 0 {
			fmt.Printf("  (%s)", strings.Join(parts, ", "))
		}
		fmt.Println()

		fmt.Printf("Questions:  %d\n", totalQuestions)
		if totalQuestions > 0 {
			fmt.Printf("Score:      %d/%d (%.0f%%)\n",
				totalScore, totalQuestions,
				float64(totalScore)/float64(totalQuestions)*100)
		}
		fmt.Printf("Time spent: %s\n", (time.Duration(totalSecs) * time.Second).String())

		last := sessions[0]
		fmt.Printf("Last run:   %s (%s, %d questions)\n",
			last.Timestamp.Format("Jan 02, 2006 15:04"), last.Mode, last.QuestionsTotal)
		return nil
	},
}
