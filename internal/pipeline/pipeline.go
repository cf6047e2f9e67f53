package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"edge-rules/internal/manifest"
	"edge-rules/internal/rules"
)

// Pipeline turns a routes manifest into a rule set
type Pipeline struct {
	conv     *rules.Converter
	log      logrus.FieldLogger
	validate bool
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithValidation runs manifest.Validate before converting
func WithValidation(enabled bool) Option {
	return func(p *Pipeline) {
		p.validate = enabled
	}
}

// New creates a pipeline around conv
func New(conv *rules.Converter, opts ...Option) *Pipeline {
	p := &Pipeline{
		conv: conv,
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run converts the redirects into preEF rules and the before-files
// rewrites into preCache rules. After-files and fallback rewrites are
// counted but not converted.
func (p *Pipeline) Run(m *manifest.RoutesManifest) (*rules.RuleSet, error) {
	if p.validate {
		if err := manifest.Validate(m); err != nil {
			return nil, err
		}
	}

	preEF, err := p.conv.Convert(m.Redirects, rules.KindRedirect)
	if err != nil {
		return nil, fmt.Errorf("failed to convert redirects: %w", err)
	}

	preCache, err := p.conv.Convert(m.Rewrites.BeforeFiles, rules.KindRewrite)
	if err != nil {
		return nil, fmt.Errorf("failed to convert rewrites: %w", err)
	}

	if n := len(m.Rewrites.AfterFiles) + len(m.Rewrites.Fallback); n > 0 {
		p.log.WithFields(logrus.Fields{
			"afterFiles": len(m.Rewrites.AfterFiles),
			"fallback":   len(m.Rewrites.Fallback),
		}).Info("Leaving after-files and fallback rewrites unconverted")
	}

	p.log.WithFields(logrus.Fields{
		"redirects": len(m.Redirects),
		"rewrites":  len(m.Rewrites.BeforeFiles),
		"preEF":     len(preEF),
		"preCache":  len(preCache),
		"patterns":  p.conv.CachedPatterns(),
	}).Debug("Converted manifest")

	return &rules.RuleSet{PreEF: preEF, PreCache: preCache}, nil
}

// RunFile loads the manifest at path and runs it
func (p *Pipeline) RunFile(path string) (*rules.RuleSet, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Run(m)
}
