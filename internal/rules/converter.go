package rules

import (
	"fmt"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"edge-rules/internal/manifest"
	"edge-rules/internal/regex"
)

// DefaultCacheSize is the number of named patterns a Converter remembers
const DefaultCacheSize = 256

// RuleError reports which manifest rule failed to convert
type RuleError struct {
	Kind   Kind
	Index  int
	Source string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s %d (%s): %v", e.Kind, e.Index, e.Source, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

type patternKey struct {
	regex       string
	destination string
}

// Converter turns manifest rules into edge rules
type Converter struct {
	log         logrus.FieldLogger
	cacheSize   int
	skipInvalid bool
	patterns    *lru.Cache[patternKey, string]
}

// Option configures a Converter
type Option func(*Converter)

// WithLogger sets the logger used for warnings and debug output
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithCacheSize sets how many named patterns are kept
func WithCacheSize(size int) Option {
	return func(c *Converter) {
		c.cacheSize = size
	}
}

// WithSkipInvalid makes Convert log and drop rules that fail instead of
// aborting the whole batch.
func WithSkipInvalid(skip bool) Option {
	return func(c *Converter) {
		c.skipInvalid = skip
	}
}

// NewConverter creates a converter
func NewConverter(opts ...Option) (*Converter, error) {
	c := &Converter{
		log:       logrus.StandardLogger(),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	cache, err := lru.New[patternKey, string](c.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}
	c.patterns = cache
	return c, nil
}

// Convert converts rules in order. A rule with several host conditions
// yields one edge rule per host, consecutively and in host order.
func (c *Converter) Convert(in []manifest.Rule, kind Kind) ([]Rule, error) {
	var out []Rule
	for i, r := range in {
		converted, err := c.convertRule(r, kind)
		if err != nil {
			rerr := &RuleError{Kind: kind, Index: i, Source: r.Source, Err: err}
			if !c.skipInvalid {
				return nil, rerr
			}
			c.log.WithFields(logrus.Fields{
				"kind":   kind.String(),
				"index":  i,
				"source": r.Source,
			}).WithError(err).Warn("Skipping rule that failed to convert")
			continue
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (c *Converter) convertRule(r manifest.Rule, kind Kind) ([]Rule, error) {
	conditions, params, hosts, err := Normalize(r.Has)
	if err != nil {
		return nil, fmt.Errorf("has: %w", err)
	}

	exceptions, missingParams, missingHosts, err := Normalize(r.Missing)
	if err != nil {
		return nil, fmt.Errorf("missing: %w", err)
	}
	if missingParams != nil || missingHosts != nil {
		c.log.WithFields(logrus.Fields{
			"source": r.Source,
			"params": len(missingParams),
			"hosts":  len(missingHosts),
		}).Debug("Ignoring query and host conditions in missing list")
	}

	pattern, err := c.namedPattern(r.Regex, r.Destination)
	if err != nil {
		return nil, err
	}

	base := Rule{
		Regex:      pattern,
		To:         r.Destination,
		Status:     Status(r, kind),
		Conditions: conditions,
		Exceptions: exceptions,
		Params:     params,
	}
	if hosts == nil {
		return []Rule{base}, nil
	}

	out := make([]Rule, 0, len(hosts))
	for _, host := range hosts {
		rule := base
		rule.Host = host
		rule.Conditions = conditions.Clone()
		rule.Exceptions = exceptions.Clone()
		rule.Params = params.Clone()
		out = append(out, rule)
	}
	return out, nil
}

func (c *Converter) namedPattern(pattern, destination string) (string, error) {
	key := patternKey{regex: pattern, destination: destination}
	if named, ok := c.patterns.Get(key); ok {
		return named, nil
	}

	named, err := regex.NameGroups(pattern, destination)
	if err != nil {
		return "", err
	}

	if _, err := regexp2.Compile(named, regexp2.None); err != nil {
		c.log.WithFields(logrus.Fields{
			"regex": named,
		}).WithError(err).Warn("Named pattern does not compile with the backtracking engine")
	}

	c.patterns.Add(key, named)
	return named, nil
}

// CachedPatterns returns how many named patterns are currently cached
func (c *Converter) CachedPatterns() int {
	return c.patterns.Len()
}
