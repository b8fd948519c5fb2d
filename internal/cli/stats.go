package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath())
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "text" {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "db: %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Fprintf(w, "classes: %d  entities: %d  references: %d  pending updates: %d\n",
			stats.TotalClasses, stats.TotalEntities, stats.TotalRefs, stats.PendingUpdates)
		for _, c := range stats.Classes {
			fmt.Fprintf(w, "  class %d\t%d entities\t%d updates\n", c.ClassID, c.Entities, c.Updates)
		}
		return
	}
	printJSON(cmd.OutOrStdout(), stats)
}
