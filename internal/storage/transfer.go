package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"edge-rules/internal/manifest"
)

var (
	// ErrKeyRequired is returned when no manifest object key is configured
	ErrKeyRequired = errors.New("S3 object key is required")

	// ErrRunExists is returned when an explicit run ID already has a run record
	ErrRunExists = errors.New("run already exists")
)

// ManifestDownloadConfig locates a routes manifest in S3
type ManifestDownloadConfig struct {
	Config
	Key string
	Log logrus.FieldLogger
}

// RuleSetUploadConfig describes a rendered rule set to publish
type RuleSetUploadConfig struct {
	Config
	RunID     string
	Extension string
	Content   []byte
	Record    *RunRecord
	Log       logrus.FieldLogger
}

// RunRecord is stored next to every uploaded rule set
type RunRecord struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Format    string `json:"format"`
	PreEF     int    `json:"pre_ef"`
	PreCache  int    `json:"pre_cache"`
	Skipped   bool   `json:"skip_invalid,omitempty"`
	Files     struct {
		Rules  string `json:"rules"`
		Record string `json:"record"`
	} `json:"files"`
}

// DownloadManifest fetches and decodes the manifest object. It also
// returns the object URI for run records and summaries.
func DownloadManifest(config ManifestDownloadConfig) (*manifest.RoutesManifest, string, error) {
	log := loggerOrDefault(config.Log)
	if config.Key == "" {
		return nil, "", ErrKeyRequired
	}

	s3Client, err := NewS3Client(config.Config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create S3 client: %w", err)
	}

	uri := s3Client.GetS3URI(config.Key)
	log.WithField("uri", uri).Info("Downloading routes manifest")
	data, err := s3Client.DownloadContent(config.Key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download manifest: %w", err)
	}

	m, err := manifest.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", uri, err)
	}
	return m, uri, nil
}

// UploadRuleSet uploads the rendered rule set and its run record under
// runs/<run id>/. A v7 UUID is generated when RunID is empty. An explicit
// RunID whose run record already exists is refused with ErrRunExists.
func UploadRuleSet(config RuleSetUploadConfig) (*RunRecord, error) {
	log := loggerOrDefault(config.Log)

	s3Client, err := NewS3Client(config.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	runID := config.RunID
	if runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate run ID: %w", err)
		}
		runID = id.String()
	}
	s3Prefix := path.Join("runs", runID)
	recordKey := path.Join(s3Prefix, "run.json")

	if config.RunID != "" {
		exists, err := s3Client.FileExists(recordKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check run %s: %w", runID, err)
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrRunExists, s3Client.GetS3URI(recordKey))
		}
	}

	record := config.Record
	if record == nil {
		record = &RunRecord{}
	}
	record.RunID = runID
	if record.Timestamp == "" {
		record.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	ext := config.Extension
	if ext == "" {
		ext = "json"
	}
	rulesKey := path.Join(s3Prefix, "rules."+ext)
	if err := s3Client.UploadContent(config.Content, rulesKey, contentType(ext)); err != nil {
		return nil, fmt.Errorf("failed to upload rule set: %w", err)
	}
	record.Files.Rules = rulesKey
	log.WithField("uri", s3Client.GetS3URI(rulesKey)).Info("Uploaded rule set")

	record.Files.Record = recordKey
	recordData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := s3Client.UploadContent(recordData, recordKey, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to upload run record: %w", err)
	}

	log.WithFields(logrus.Fields{
		"run_id":    runID,
		"pre_ef":    record.PreEF,
		"pre_cache": record.PreCache,
		"location":  s3Client.GetS3URI(s3Prefix) + "/",
	}).Info("Published rule set")

	return record, nil
}

func contentType(ext string) string {
	switch ext {
	case "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

func loggerOrDefault(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
