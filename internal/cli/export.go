package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export classes and entities as JSON",
		Long:  "Export class schemas and raw entity snapshots as a single JSON document. Filter by class with -c.",
		Run:   runExport,
	}

	cmd.Flags().Uint64P("class", "c", 0, "Filter by class id")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snap, err := s.ExportAll(cmd.Context(), classID)
	if err != nil {
		exitErr("export", err)
	}

	printJSON(cmd.OutOrStdout(), snap)
}
