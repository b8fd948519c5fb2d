package cli

import (
	"fmt"

	"github.com/rcliao/entity-codec/internal/model"
	"github.com/rcliao/entity-codec/internal/schemafile"
	"github.com/rcliao/entity-codec/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	updateCmd := &cobra.Command{
		Use:   "update [file]",
		Short: "Encode a partial plain entity into property assignments",
		Long: `Encode a partial plain object (JSON or JSONC, from a file or stdin) into typed
property assignments for an entity and queue them in the outbox.

Unknown fields are ignored. Fields that cannot be encoded are reported and left
out; the remaining fields are still queued.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runUpdate,
	}
	updateCmd.Flags().Uint64P("class", "c", 0, "Class id (required)")
	updateCmd.Flags().Uint64("id", 0, "Entity id (required)")
	updateCmd.Flags().Bool("dry-run", false, "Print the encoded update without queueing it")
	updateCmd.MarkFlagRequired("class")
	updateCmd.MarkFlagRequired("id")

	updatesCmd := &cobra.Command{
		Use:   "updates",
		Short: "List queued updates",
		Run:   runUpdates,
	}
	updatesCmd.Flags().Uint64P("class", "c", 0, "Filter by class id")

	RootCmd.AddCommand(updateCmd, updatesCmd)
}

type updateView struct {
	ID          string             `json:"id,omitempty"`
	ClassID     uint64             `json:"class_id"`
	EntityID    uint64             `json:"entity_id"`
	Assignments []model.Assignment `json:"assignments"`
	Diagnostics []string           `json:"diagnostics,omitempty"`
	Queued      bool               `json:"queued"`
}

func runUpdate(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")
	id, _ := cmd.Flags().GetUint64("id")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	data, err := readInput(args)
	if err != nil {
		exitErr("read update", err)
	}
	fields, err := schemafile.ParseUpdate(data)
	if err != nil {
		exitErr("parse update", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	schema, err := s.GetClass(cmd.Context(), classID)
	if err != nil {
		exitErr("get class", err)
	}
	u := newCodec(schema).ToSubstrateUpdate(fields)

	view := updateView{ClassID: classID, EntityID: id, Assignments: u.Assignments}
	for _, d := range u.Diagnostics {
		view.Diagnostics = append(view.Diagnostics, d.Error())
	}

	if !dryRun {
		q, err := s.QueueUpdate(cmd.Context(), store.QueueParams{ClassID: classID, EntityID: id, Update: u})
		if err != nil {
			exitErr("queue update", err)
		}
		view.ID = q.ID
		view.Queued = true
	}

	if formatFlag == "text" {
		w := cmd.OutOrStdout()
		for _, a := range u.Assignments {
			fmt.Fprintf(w, "%d\t%s\t%v\n", a.InClassIndex, a.Value.Type, a.Value.Value)
		}
		for _, d := range view.Diagnostics {
			fmt.Fprintf(w, "skipped: %s\n", d)
		}
		if view.Queued {
			fmt.Fprintf(w, "queued %s\n", view.ID)
		}
		return
	}
	printJSON(cmd.OutOrStdout(), view)
}

func runUpdates(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	updates, err := s.ListUpdates(cmd.Context(), classID)
	if err != nil {
		exitErr("list updates", err)
	}

	if formatFlag == "text" {
		for _, q := range updates {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tclass %d\tid %d\t%d assignments\t%s\n",
				q.ID, q.ClassID, q.EntityID, len(q.Assignments), q.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}
	if len(updates) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd.OutOrStdout(), updates)
}
