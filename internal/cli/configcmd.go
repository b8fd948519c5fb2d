package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rcliao/entity-codec/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise the config file",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Run:   runConfigShow,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the resolved configuration to the config file",
		Run:   runConfigInit,
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	configCmd.AddCommand(showCmd, initCmd)
	RootCmd.AddCommand(configCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

func runConfigShow(cmd *cobra.Command, args []string) {
	c := cfg
	c.DBPath = getDBPath()
	printJSON(cmd.OutOrStdout(), c)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	path := resolvedConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		exitErr("config init", fmt.Errorf("%s already exists (use --force)", path))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		exitErr("config init", err)
	}

	c := cfg
	c.DBPath = getDBPath()
	if err := config.Save(path, c); err != nil {
		exitErr("config init", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"path":%q}`+"\n", path)
}
