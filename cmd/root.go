package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"edge-rules/internal/config"
	"edge-rules/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "edge-rules",
	Short: "Convert a routes manifest into edge rules",
	Long: `edge-rules - converts the routes manifest written by the framework build
into a normalized rule set for the edge request-processing layer.

Redirects become preEF rules (evaluated before edge functions) and
before-files rewrites become preCache rules (evaluated before the static
file and cache lookup). Anonymous capture groups are named after the
destination parameters and has/missing conditions are folded into
constraint maps.

Commands:
  convert     - Convert the manifest and write the rule set
  inspect     - Summarize and validate a manifest without converting it
  completion  - Generate shell completion scripts

Configuration is read from flags, EDGE_RULES_* environment variables and an
optional config file, in that order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for edge-rules.

To load completions:

Bash:
  $ source <(edge-rules completion bash)

Zsh:
  $ edge-rules completion zsh > "${fpath[1]}/_edge-rules"

Fish:
  $ edge-rules completion fish | source

PowerShell:
  PS> edge-rules completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			err = cmd.Root().GenBashCompletion(out)
		case "zsh":
			err = cmd.Root().GenZshCompletion(out)
		case "fish":
			err = cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		if err != nil {
			return fmt.Errorf("failed to generate completion: %w", err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// setup resolves the configuration and logger shared by every subcommand
func setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	if cfgFile != "" {
		log.WithField("file", cfgFile).Debug("Loaded config file")
	}
	return cfg, log, nil
}

// addSourceFlags registers the flags that locate the manifest
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("manifest", "m", ".next/routes-manifest.json", "Routes manifest path")
	cmd.Flags().String("s3-bucket", "", "S3 bucket name")
	cmd.Flags().String("s3-prefix", "", "S3 key prefix")
	cmd.Flags().String("s3-region", "eu-west-1", "AWS region")
	cmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().String("s3-source-key", "", "Read the manifest from this S3 key instead of --manifest")
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file, rotated by size")

	rootCmd.SetErr(os.Stderr)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(completionCmd)
}
