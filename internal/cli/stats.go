package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/converse-go/internal/client"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server pipeline statistics",
	Long: `Show the server's in-memory pipeline statistics: per-stage call counts,
failures, and timings. Counters reset when the server restarts.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := apiClient.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}

	printServerStats(stats)
	return nil
}

func printServerStats(stats *client.ServerStats) {
	fmt.Printf("Server Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", stats.UptimeSeconds)

	if len(stats.Stages) == 0 {
		fmt.Println("\nNo pipeline activity yet.")
		return
	}

	names := make([]string, 0, len(stats.Stages))
	for name := range stats.Stages {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stage := stats.Stages[name]
		fmt.Printf("\n%s:\n", name)
		fmt.Printf("  Calls: %d, Failures: %d\n", stage.Count, stage.Failures)
		fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
			stage.AvgMs, stage.MinMs, stage.MaxMs)
	}
}
