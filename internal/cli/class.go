package cli

import (
	"fmt"

	"github.com/rcliao/entity-codec/internal/schemafile"
	"github.com/spf13/cobra"
)

func init() {
	classCmd := &cobra.Command{
		Use:   "class",
		Short: "Manage entity class schemas",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a class schema",
		Long:  "Import a class schema from a YAML or JSON file (or stdin). Property order defines the in-class index.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runClassImport,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored classes",
		Run:   runClassList,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a class schema and its field names",
		Run:   runClassShow,
	}
	showCmd.Flags().Uint64P("class", "c", 0, "Class id (required)")
	showCmd.MarkFlagRequired("class")

	classCmd.AddCommand(importCmd, listCmd, showCmd)
	RootCmd.AddCommand(classCmd)
}

func runClassImport(cmd *cobra.Command, args []string) {
	data, err := readInput(args)
	if err != nil {
		exitErr("read schema", err)
	}
	schema, err := schemafile.ParseSchema(data)
	if err != nil {
		exitErr("parse schema", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.PutClass(cmd.Context(), schema); err != nil {
		exitErr("import class", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"class":%d,"properties":%d}`+"\n", schema.ID, len(schema.Properties))
}

func runClassList(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	classes, err := s.ListClasses(cmd.Context())
	if err != nil {
		exitErr("list classes", err)
	}

	if formatFlag == "text" {
		for _, c := range classes {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d properties\t%d entities\n", c.ID, c.Name, c.Properties, c.Entities)
		}
		return
	}
	if len(classes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "[]")
		return
	}
	printJSON(cmd.OutOrStdout(), classes)
}

type fieldView struct {
	Index int    `json:"index"`
	Field string `json:"field"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

func runClassShow(cmd *cobra.Command, args []string) {
	classID, _ := cmd.Flags().GetUint64("class")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	schema, err := s.GetClass(cmd.Context(), classID)
	if err != nil {
		exitErr("show class", err)
	}

	c := newCodec(schema)
	fields := make([]fieldView, len(schema.Properties))
	for i, p := range schema.Properties {
		name, _ := c.FieldAt(i)
		fields[i] = fieldView{Index: i, Field: name, Name: p.Name, Type: p.TypeName}
	}

	if formatFlag == "text" {
		fmt.Fprintf(cmd.OutOrStdout(), "class %d %s\n", schema.ID, schema.Name)
		for _, f := range fields {
			fmt.Fprintf(cmd.OutOrStdout(), "  %d\t%s\t%s\n", f.Index, f.Field, f.Type)
		}
		return
	}
	printJSON(cmd.OutOrStdout(), map[string]any{
		"id":     schema.ID,
		"name":   schema.Name,
		"fields": fields,
	})
}
