package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/tarot-scan/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the tarot-scan configuration",
		Long: `Configuration is read from tarot-scan.yaml (searched in ., $HOME,
$HOME/.config/tarot-scan and /etc/tarot-scan), TAROT_* environment variables,
a .env file in the working directory and command-line flags, in increasing
order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	show := &cobra.Command{
		Use:          "show",
		Short:        "Print the resolved configuration as YAML",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if used := a.loader.GetConfigFileUsed(); used != "" {
				fmt.Fprintf(w, "# config file: %s\n", used)
			}
			return config.WriteYAML(w, a.cfg)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "Write the default configuration to a file",
		Long: `Write the default configuration to FILE (tarot-scan.yaml in the working
directory when omitted). An existing file is never overwritten.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			path, err := config.GenerateDefaultConfigFile(target)
			if err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			successColor.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
