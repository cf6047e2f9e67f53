package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"edge-rules/internal/formatters"
	"edge-rules/internal/manifest"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize and validate a routes manifest",
	Long: `Print what a routes manifest contains: redirect and rewrite counts per
bucket and condition counts per type. The manifest is then validated and
the command fails if any rule is invalid.

Examples:
  edge-rules inspect
  edge-rules inspect --manifest build/routes-manifest.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd)
	},
}

func init() {
	addSourceFlags(inspectCmd)
}

func runInspect(cmd *cobra.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	m, source, err := resolveManifest(cfg, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := formatters.ManifestSummary(out, source, manifest.Summarize(m)); err != nil {
		return err
	}

	if err := manifest.Validate(m); err != nil {
		fmt.Fprintf(out, "\nValidation: failed\n")
		return err
	}
	fmt.Fprintf(out, "\nValidation: ok\n")
	return nil
}
