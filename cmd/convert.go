package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"edge-rules/internal/config"
	"edge-rules/internal/formatters"
	"edge-rules/internal/manifest"
	"edge-rules/internal/pipeline"
	"edge-rules/internal/rules"
	"edge-rules/internal/storage"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the routes manifest into an edge rule set",
	Long: `Convert the routes manifest into an edge rule set.

The rule set is written to stdout unless --output-file is given. Logs go
to stderr. The exit status is non-zero if the manifest cannot be read or
any rule fails to convert (unless --skip-invalid is set).

Examples:
  # Convert the manifest of the current build
  edge-rules convert

  # YAML output to a file
  edge-rules convert --manifest build/routes-manifest.json \
    --output yaml --output-file rules.yaml

  # Read the manifest from S3 and publish the result next to it
  edge-rules convert --s3-bucket artifacts --s3-prefix site \
    --s3-source-key routes-manifest.json --s3-upload`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

func init() {
	addSourceFlags(convertCmd)
	convertCmd.Flags().StringP("output", "o", formatters.FormatJSON, "Output format: json, yaml, text")
	convertCmd.Flags().StringP("output-file", "f", "", "Write the rule set to this file instead of stdout")
	convertCmd.Flags().Bool("skip-invalid", false, "Log and skip rules that fail to convert")
	convertCmd.Flags().Int("cache-size", rules.DefaultCacheSize, "Number of named patterns to cache")
	convertCmd.Flags().Bool("s3-upload", false, "Upload the rule set and a run record to S3")
	convertCmd.Flags().String("s3-run-id", "", "Run ID for the S3 upload (default: generated UUID)")
}

func runConvert(cmd *cobra.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	conv, err := rules.NewConverter(
		rules.WithLogger(log),
		rules.WithCacheSize(cfg.CacheSize),
		rules.WithSkipInvalid(cfg.SkipInvalid),
	)
	if err != nil {
		return err
	}

	p := pipeline.New(conv,
		pipeline.WithLogger(log),
		pipeline.WithValidation(!cfg.SkipInvalid),
	)

	var rs *rules.RuleSet
	source := cfg.Manifest
	if cfg.S3.SourceKey == "" {
		rs, err = p.RunFile(cfg.Manifest)
	} else {
		var m *manifest.RoutesManifest
		if m, source, err = downloadManifest(cfg, log); err == nil {
			rs, err = p.Run(m)
		}
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatters.Write(&buf, cfg.Output, rs); err != nil {
		return err
	}

	if cfg.OutputFile != "" {
		if err := os.WriteFile(cfg.OutputFile, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.WithField("file", cfg.OutputFile).Info("Wrote rule set")
	} else if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write rule set: %w", err)
	}

	log.WithFields(logrus.Fields{
		"preEF":    len(rs.PreEF),
		"preCache": len(rs.PreCache),
	}).Info("Converted routes manifest")

	if !cfg.S3.Upload {
		return nil
	}

	_, err = storage.UploadRuleSet(storage.RuleSetUploadConfig{
		Config:    cfg.S3.Storage(),
		RunID:     cfg.S3.RunID,
		Extension: formatters.Extension(cfg.Output),
		Content:   buf.Bytes(),
		Record: &storage.RunRecord{
			Source:   source,
			Format:   cfg.Output,
			PreEF:    len(rs.PreEF),
			PreCache: len(rs.PreCache),
			Skipped:  cfg.SkipInvalid,
		},
		Log: log,
	})
	if err != nil {
		return fmt.Errorf("failed to upload rule set: %w", err)
	}
	return nil
}

// resolveManifest loads the local manifest, or downloads it when a source
// key is configured. The second result names where it came from.
func resolveManifest(cfg *config.Config, log logrus.FieldLogger) (*manifest.RoutesManifest, string, error) {
	if cfg.S3.SourceKey != "" {
		return downloadManifest(cfg, log)
	}
	m, err := manifest.Load(cfg.Manifest)
	if err != nil {
		return nil, "", err
	}
	return m, cfg.Manifest, nil
}

func downloadManifest(cfg *config.Config, log logrus.FieldLogger) (*manifest.RoutesManifest, string, error) {
	return storage.DownloadManifest(storage.ManifestDownloadConfig{
		Config: cfg.S3.Storage(),
		Key:    cfg.S3.SourceKey,
		Log:    log,
	})
}
