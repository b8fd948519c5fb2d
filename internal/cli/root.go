// Package cli implements the entity-codec CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rcliao/entity-codec/internal/codec"
	"github.com/rcliao/entity-codec/internal/config"
	"github.com/rcliao/entity-codec/internal/model"
	"github.com/rcliao/entity-codec/internal/registry"
	"github.com/rcliao/entity-codec/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	formatFlag string
	configPath string
	logLevel   string

	cfg    = config.Default()
	logger = slog.Default()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:              "entity-codec",
	Short:            "Decode and encode schema-described chain entities",
	Long:             "Converts index-keyed chain entities to plain objects and partial plain objects to typed property updates. Class schemas and entity snapshots are kept in a local SQLite database.",
	PersistentPreRun: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ENTITY_CODEC_DB, config db_path or ~/.entity-codec/entities.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.entity-codec/config.toml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads the config, installs the logger and registers the property
// types with the global registry before any command runs.
func setup(cmd *cobra.Command, args []string) {
	c, err := config.Load(resolvedConfigPath())
	if err != nil {
		exitErr("config", err)
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	level, err := config.ParseLevel(c.LogLevel)
	if err != nil {
		exitErr("config", err)
	}
	cfg = c

	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// A failure is logged by Setup; commands that need the registry report
	// it when they open the store.
	registry.Setup(logger)
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newCodec(schema *model.ClassSchema) *codec.EntityCodec {
	opts := []codec.Option{codec.WithLogger(logger)}
	if cfg.WideIntegers {
		opts = append(opts, codec.WithWideIntegers())
	}
	return codec.New(schema, opts...)
}

// readInput reads the file named by the first argument, or stdin when no
// argument is given or it is "-".
func readInput(args []string) ([]byte, error) {
	if len(args) > 0 && args[0] != "-" {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func printJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
