package cmd

import (
	"github.com/abhisek/viva/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "viva",
	Short: "Oral practice sessions in your terminal",
	Long:  "Viva — a terminal oral examiner: it reads your study material, asks you questions out loud and judges your spoken answers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides VIVA_DB env var)")
	rootCmd.PersistentFlags().Duration("silence", 0, "Silence window before a live answer auto-stops (default 2.5s)")
	rootCmd.PersistentFlags().Bool("no-speech", false, "Skip text-to-speech narration")
	rootCmd.PersistentFlags().Bool("score-coach", false, "Derive a score from coach reports")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then VIVA_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
