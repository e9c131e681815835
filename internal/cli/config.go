package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/matzehuels/causalcanvas/pkg/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configPathCommand())
	cmd.AddCommand(c.configShowCommand())

	return cmd
}

func (c *CLI) configPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return config.Path()
}

func (c *CLI) configInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath()
			if force {
				if err := config.Save(config.Default(), path); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
				printSuccess("Wrote default config")
				printFile(path)
				return nil
			}
			created, err := config.EnsureExists(path)
			if err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			if !created {
				printInfo("Config already exists")
				printDetail("Use --force to overwrite")
			} else {
				printSuccess("Wrote default config")
			}
			printFile(path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.configPath())
			return nil
		},
	}
}

func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if _, err := os.Stat(c.configPath()); os.IsNotExist(err) {
				printDetail("No config file; showing defaults")
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
}
