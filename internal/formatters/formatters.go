package formatters

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"edge-rules/internal/manifest"
	"edge-rules/internal/rules"
)

// Output formats accepted by Write
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// ErrUnknownFormat is returned by Write for an unsupported format name
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats
func Formats() []string {
	return []string{FormatJSON, FormatYAML, FormatText}
}

// Extension returns the file extension used for format
func Extension(format string) string {
	if format == FormatText {
		return "txt"
	}
	return format
}

// Write renders rs to w in the given format
func Write(w io.Writer, format string, rs *rules.RuleSet) error {
	switch format {
	case FormatJSON:
		return JSON(w, rs, true)
	case FormatYAML:
		return YAML(w, rs)
	case FormatText:
		return Text(w, rs)
	default:
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// JSON writes the rule set as a JSON document. Patterns are written
// verbatim, without HTML escaping of '<' and '>'.
func JSON(w io.Writer, rs *rules.RuleSet, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

// YAML writes the rule set as a YAML document
func YAML(w io.Writer, rs *rules.RuleSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// Text writes a human-readable listing of the rule set
func Text(w io.Writer, rs *rules.RuleSet) error {
	var b strings.Builder

	b.WriteString("Edge Rule Set\n")
	b.WriteString("=============\n\n")
	fmt.Fprintf(&b, "Total rules: %d\n\n", rs.Len())

	writeGroup(&b, "preEF", rs.PreEF)
	writeGroup(&b, "preCache", rs.PreCache)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeGroup(b *strings.Builder, name string, list []rules.Rule) {
	title := fmt.Sprintf("%s (%d rules)", name, len(list))
	fmt.Fprintf(b, "%s\n%s\n", title, strings.Repeat("-", len(title)))

	for _, r := range list {
		fmt.Fprintf(b, "[%d] %s -> %s\n", r.Status, r.Regex, r.To)
		if r.Host != "" {
			fmt.Fprintf(b, "  host: %s\n", r.Host)
		}
		writeConstraints(b, "conditions", r.Conditions)
		writeConstraints(b, "exceptions", r.Exceptions)
		if len(r.Params) > 0 {
			keys := make([]string, 0, len(r.Params))
			for k := range r.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, k+"="+r.Params[k])
			}
			fmt.Fprintf(b, "  params: %s\n", strings.Join(pairs, " "))
		}
	}
	b.WriteString("\n")
}

func writeConstraints(b *strings.Builder, label string, c rules.Constraints) {
	if len(c) == 0 {
		return
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+strings.Join(c[rules.ConstraintKey(k)], ","))
	}
	fmt.Fprintf(b, "  %s: %s\n", label, strings.Join(pairs, " "))
}

// ManifestSummary writes the output of the inspect command
func ManifestSummary(w io.Writer, path string, s manifest.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Routes Manifest %s\n", path)
	b.WriteString("=====================================\n\n")
	fmt.Fprintf(&b, "Version: %d\n", s.Version)
	if s.BasePath != "" {
		fmt.Fprintf(&b, "Base path: %s\n", s.BasePath)
	}
	if len(s.Locales) > 0 {
		fmt.Fprintf(&b, "Locales: %s\n", strings.Join(s.Locales, ", "))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Redirects:           %d (%d internal)\n", s.Redirects, s.Internal)
	shape := "bucketed"
	if s.FlatRewrites {
		shape = "flat"
	}
	fmt.Fprintf(&b, "Rewrites (%s):\n", shape)
	fmt.Fprintf(&b, "  beforeFiles:       %d\n", s.BeforeFiles)
	fmt.Fprintf(&b, "  afterFiles:        %d (not converted)\n", s.AfterFiles)
	fmt.Fprintf(&b, "  fallback:          %d (not converted)\n", s.Fallback)
	fmt.Fprintf(&b, "Dynamic routes:      %d\n", s.DynamicRoutes)
	fmt.Fprintf(&b, "Static routes:       %d\n\n", s.StaticRoutes)

	b.WriteString("Conditions:\n")
	b.WriteString("-----------\n")
	for _, t := range []manifest.ConditionType{manifest.ConditionHost, manifest.ConditionHeader, manifest.ConditionCookie, manifest.ConditionQuery} {
		fmt.Fprintf(&b, "  %-8s has: %d  missing: %d\n", t, s.Has[t], s.Missing[t])
	}
	for _, t := range unsupported(s) {
		fmt.Fprintf(&b, "  %-8s has: %d  missing: %d (unsupported)\n", t, s.Has[t], s.Missing[t])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func unsupported(s manifest.Summary) []manifest.ConditionType {
	seen := make(map[manifest.ConditionType]bool)
	var out []manifest.ConditionType
	for _, m := range []map[manifest.ConditionType]int{s.Has, s.Missing} {
		for t := range m {
			if !t.Supported() && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
