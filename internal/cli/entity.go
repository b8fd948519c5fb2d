package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/rcliao/entity-codec/internal/model"
	"github.com/rcliao/entity-codec/internal/schemafile"
	"github.com/rcliao/entity-codec/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	entityCmd := &cobra.Command{
		Use:   "entity",
		Short: "Store and decode raw entity snapshots",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import raw entities",
		Long:  "Import one raw entity or an array of them from a JSON or JSONC file (or stdin).",
		Args:  cobra.MaximumNArgs(1),
		Run:   runEntityImport,
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Decode a stored entity into a plain object",
		Run:   runEntityGet,
	}
	getCmd.Flags().Uint64P("class", "c", 0, "Class id (required)")
	getCmd.Flags().Uint64("id", 0, "Entity id (required)")
	getCmd.Flags().Bool("raw", false, "Print the stored raw entity instead of decoding it")
	getCmd.MarkFlagRequired("class")
	getCmd.MarkFlagRequired("id")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Decode the stored entities of a class",
		Run:   runEntityList,
	}
	listCmd.Flags().Uint64P("class", "c", 0, "Class id (required)")
	listCmd.Flags().IntP("limit", "l", 100, "Max results")
	listCmd.MarkFlagRequired("class")

	refsCmd := &cobra.Command{
		Use:   "refs",
		Short: "Show Internal references from and to an entity",
		Long:  "Show the Internal references held by an entity and those pointing at its id. Internal values carry no class, so incoming references are matched on id from every class.",
		Run:   runEntityRefs,
	}
	refsCmd.Flags().Uint64P("class", "c", 0, "Class id (required)")
	refsCmd.Flags().Uint64("id", 0, "Entity id (required)")
	refsCmd.MarkFlagRequired("class")
	refsCmd.MarkFlagRequired("id")

	entityCmd.AddCommand(importCmd, getCmd, listCmd, refsCmd)
	RootCmd.AddCommand(entityCmd)
}

func runEntityImport(cmd *cobra.Command, args []string) {
	data, err := readInput(args)
	if err != nil {
		exitErr("read entities", err)
	}
	entities, err := schemafile.ParseEntities(data)
	if err != nil {
		exitErr("parse entities", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	for i := range entities {
		if err := s.PutEntity(cmd.Context(), &entities[i]); err != nil {
			exitErr("import entity", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", len(entities))
}

func runEntityGet(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")
	id, _ := cmd.Flags().GetUint64("id")
	raw, _ := cmd.Flags().GetBool("raw")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e, err := s.GetEntity(cmd.Context(), classID, id)
	if err != nil {
		exitErr("get entity", err)
	}
	if raw {
		printJSON(cmd.OutOrStdout(), e)
		return
	}

	schema, err := s.GetClass(cmd.Context(), classID)
	if err != nil {
		exitErr("get class", err)
	}
	plain, dropped := newCodec(schema).Decode(e)
	for _, d := range dropped {
		logger.Warn("dropped property", "class", classID, "id", id, "index", d.Index, "type", d.TypeName)
	}

	if formatFlag == "text" {
		printPlainText(cmd.OutOrStdout(), plain)
		return
	}
	printJSON(cmd.OutOrStdout(), plain)
}

func runEntityList(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	schema, err := s.GetClass(cmd.Context(), classID)
	if err != nil {
		exitErr("get class", err)
	}
	raws, err := s.ListEntities(cmd.Context(), store.ListParams{ClassID: classID, Limit: limit})
	if err != nil {
		exitErr("list entities", err)
	}

	plains := newCodec(schema).ToPlainObjects(raws)
	if formatFlag == "text" {
		for _, p := range plains {
			printPlainText(cmd.OutOrStdout(), p)
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return
	}
	if len(plains) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd.OutOrStdout(), plains)
}

func runEntityRefs(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")
	id, _ := cmd.Flags().GetUint64("id")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	refs, err := s.References(cmd.Context(), classID, id)
	if err != nil {
		exitErr("references", err)
	}

	if formatFlag == "text" {
		for _, r := range refs.Outgoing {
			fmt.Fprintf(cmd.OutOrStdout(), "-> %d (property %d)\n", r.ToID, r.Index)
		}
		for _, r := range refs.Incoming {
			fmt.Fprintf(cmd.OutOrStdout(), "<- %d/%d (property %d)\n", r.FromClass, r.FromID, r.Index)
		}
		return
	}
	printJSON(cmd.OutOrStdout(), refs)
}

// printPlainText writes one "field: value" line per field, sorted by name.
func printPlainText(w io.Writer, p model.PlainEntity) {
	fmt.Fprintf(w, "class %d id %d indexes %v\n", p.ClassID, p.ID, p.InClassSchemaIndexes)
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %v\n", name, p.Fields[name])
	}
}
