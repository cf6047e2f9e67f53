package regex

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		want        []string
	}{
		{name: "no placeholders", destination: "/foo1", want: nil},
		{name: "single placeholder", destination: "/new/:some", want: []string{"some"}},
		{name: "ordered placeholders", destination: "/:lang/blog/:slug", want: []string{"lang", "slug"}},
		{name: "modifier suffix", destination: "/docs/:path*", want: []string{"path"}},
		{name: "plus suffix", destination: "/:path+", want: []string{"path"}},
		{name: "placeholder inside segment", destination: "/files/name-:id", want: []string{"id"}},
		{name: "absolute destination", destination: "https://example.com/:path*", want: []string{"path"}},
		{name: "absolute destination with port", destination: "http://localhost:3000/a/:b", want: []string{"b"}},
		{name: "absolute destination without path", destination: "https://example.com", want: nil},
		{name: "query placeholder", destination: "/search?q=:term", want: []string{"term"}},
		{name: "empty name skipped", destination: "/a/:/b", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parameters(tt.destination))
		})
	}
}

func TestNameGroups(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		destination string
		want        string
	}{
		{
			name:        "catch-all redirect",
			pattern:     `^/old/(.*)$`,
			destination: "/new/:some",
			want:        `^/old/(?<some>.*)$`,
		},
		{
			name:        "non-capturing groups are skipped",
			pattern:     `^/blog/([^/]+?)(?:/)?$`,
			destination: "/news/:slug",
			want:        `^/blog/(?<slug>[^/]+?)(?:/)?$`,
		},
		{
			name:        "outer group is named before inner groups",
			pattern:     `^/((a)(b))$`,
			destination: "/:outer/:first/:second",
			want:        `^/(?<outer>(?<first>a)(?<second>b))$`,
		},
		{
			name:        "lookarounds are skipped",
			pattern:     `^(?<=/)(?!api)(.*)$`,
			destination: "/:rest",
			want:        `^(?<=/)(?!api)(?<rest>.*)$`,
		},
		{
			name:        "named groups keep their name",
			pattern:     `^/(?<lang>en|de)/(.*)$`,
			destination: "/:path",
			want:        `^/(?<lang>en|de)/(?<path>.*)$`,
		},
		{
			name:        "unicode property escape",
			pattern:     `^/(\p{L}+)$`,
			destination: "/w/:word",
			want:        `^/(?<word>\p{L}+)$`,
		},
		{
			name:        "parenthesis inside class",
			pattern:     `^/([(])$`,
			destination: "/:p",
			want:        `^/(?<p>[(])$`,
		},
		{
			name:        "escaped parenthesis",
			pattern:     `^/\((x)\)$`,
			destination: "/:v",
			want:        `^/\((?<v>x)\)$`,
		},
		{
			name:        "trailing slash redirect",
			pattern:     `^(?:/((?:[^/]+?)(?:/(?:[^/]+?))*))/$`,
			destination: "/:path+",
			want:        `^(?:/(?<path>(?:[^/]+?)(?:/(?:[^/]+?))*))/$`,
		},
		{
			name:        "quantified group",
			pattern:     `^/(ab)+/(\d{2,4})?$`,
			destination: "/:x/:y",
			want:        `^/(?<x>ab)+/(?<y>\d{2,4})?$`,
		},
		{
			name:        "alternation",
			pattern:     `^/(a)|/(b)$`,
			destination: "/:first/:second",
			want:        `^/(?<first>a)|/(?<second>b)$`,
		},
		{
			name:        "absolute destination",
			pattern:     `^/docs/(.*)$`,
			destination: "https://docs.example.com/:path*",
			want:        `^/docs/(?<path>.*)$`,
		},
		{
			name:        "no groups",
			pattern:     `^/early-rewrite$`,
			destination: "/foo1",
			want:        `^/early-rewrite$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NameGroups(tt.pattern, tt.destination)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNameGroups_GroupMismatch(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		destination string
	}{
		{name: "more groups than parameters", pattern: `^/(a)/(b)$`, destination: "/:x"},
		{name: "more parameters than groups", pattern: `^/(a)$`, destination: "/:x/:y"},
		{name: "groups without parameters", pattern: `^/old/(.*)$`, destination: "/"},
		{name: "duplicate parameter", pattern: `^/(a)/(b)$`, destination: "/:x/:x"},
		{name: "parameter clashes with named group", pattern: `^/(?<x>a)/(b)$`, destination: "/:x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NameGroups(tt.pattern, tt.destination)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrGroupMismatch), "expected ErrGroupMismatch, got %v", err)
			assert.False(t, errors.Is(err, ErrParse))
		})
	}
}

func TestNameGroups_ParseError(t *testing.T) {
	patterns := []string{
		`^/(a$`,
		`^/a)$`,
		`[abc`,
		`*a`,
		`a{3,1}`,
		`a\`,
		`(?<1x>a)`,
		`(?<x>a)(?<x>b)`,
		`(?x)`,
		`[z-a]`,
		`(?<=a)*`,
		`\p{}`,
		`\k<>`,
		`(?<a>x)\k<b>`,
		`\k<b>(?<a>x)`,
	}

	for _, pattern := range patterns {
		t.Run(pattern, func(t *testing.T) {
			_, err := NameGroups(pattern, "/")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "expected ErrParse, got %v", err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, pattern, perr.Pattern)
			assert.GreaterOrEqual(t, perr.Offset, 0)
		})
	}
}

func TestParse_NamedReferences(t *testing.T) {
	// forward references are allowed
	_, err := Parse(`\k<a>(?<a>x)`, DefaultFeatures)
	require.NoError(t, err)

	_, err = Parse(`(?<a>x)\k<b>`, DefaultFeatures)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 7, perr.Offset)
	assert.Contains(t, perr.Msg, `"b"`)

	// without any named group the reference is kept verbatim
	root, err := Parse(`/\k<b>`, DefaultFeatures)
	require.NoError(t, err)
	assert.Equal(t, `/\k<b>`, Generate(root))
}

func TestParse_Features(t *testing.T) {
	_, err := Parse(`(?<=a)b`, Features{})
	assert.ErrorIs(t, err, ErrParse)

	_, err = Parse(`(?<name>a)`, Features{})
	assert.ErrorIs(t, err, ErrParse)

	// without property escapes \p is an identity escape
	root, err := Parse(`\p{L}`, Features{})
	require.NoError(t, err)
	for _, term := range root.Body[0].Body {
		assert.NotEqual(t, KindUnicodeProperty, term.Kind)
	}

	root, err = Parse(`\p{L}`, DefaultFeatures)
	require.NoError(t, err)
	require.Len(t, root.Body[0].Body, 1)
	assert.Equal(t, KindUnicodeProperty, root.Body[0].Body[0].Kind)
}

func TestParse_RoundTrip(t *testing.T) {
	patterns := []string{
		``,
		`^/$`,
		`^/old/(.*)$`,
		`^(?:/(_next/data/[^/]{1,}))?/blog(?:/)?$`,
		`^(?!/_next)(?:/((?:[^/]+?)(?:/(?:[^/]+?))*))?/$`,
		`a|b|`,
		`[^\]\\]+`,
		`[]|[^]`,
		`\u{1F600}A\x41\cA\0`,
		`(?<=\$)\d+(?<!0)`,
		`(?<year>\d{4})-\k<year>\1`,
		`x{2}y{2,}z{2,3}?`,
		`a{`,
		`a{,5}`,
		`\bword\B`,
		`日本(語)?`,
	}

	for _, pattern := range patterns {
		t.Run(pattern, func(t *testing.T) {
			root, err := Parse(pattern, DefaultFeatures)
			require.NoError(t, err)
			assert.Equal(t, pattern, Generate(root))
		})
	}
}

func TestWalk_SkipChildren(t *testing.T) {
	root, err := Parse(`(a(b))(c)`, DefaultFeatures)
	require.NoError(t, err)

	var groups []string
	Walk(root, func(n *Node) bool {
		if n.Kind == KindGroup {
			groups = append(groups, Generate(n))
			return false
		}
		return true
	})
	assert.Equal(t, []string{"(a(b))", "(c)"}, groups)
	assert.Equal(t, 3, countUnnamedGroups(root))
}

func countUnnamedGroups(n *Node) int {
	count := 0
	Walk(n, func(node *Node) bool {
		if node.IsCapturing() && node.Name == "" {
			count++
		}
		return true
	})
	return count
}

var groupAtoms = []string{`([^/]+?)`, `(\d+)`, `(.*)`, `((?:[^/]+?)(?:/(?:[^/]+?))*)`, `(en|de)`}

func buildPattern(k, seed int) (string, string) {
	var pattern, destination strings.Builder
	pattern.WriteString("^")
	for i := 0; i < k; i++ {
		pattern.WriteString("/")
		pattern.WriteString(groupAtoms[(seed+i)%len(groupAtoms)])
		fmt.Fprintf(&destination, "/:p%d", i)
	}
	pattern.WriteString("(?:/)?$")
	return pattern.String(), destination.String()
}

func TestNameGroups_PropertyNthGroupNamedAfterNthParameter(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("nth group carries the nth parameter", prop.ForAll(
		func(k int, seed int) bool {
			pattern, destination := buildPattern(k, seed)
			named, err := NameGroups(pattern, destination)
			if err != nil {
				return false
			}
			root, err := Parse(named, DefaultFeatures)
			if err != nil {
				return false
			}
			names := GroupNames(root)
			params := Parameters(destination)
			if len(names) != len(params) || countUnnamedGroups(root) != 0 {
				return false
			}
			for i := range names {
				if names[i] != params[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 6),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestNameGroups_PropertyMismatchFails(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("group and parameter counts must agree", prop.ForAll(
		func(k int, m int, seed int) bool {
			pattern, _ := buildPattern(k, seed)
			_, destination := buildPattern(m, seed)
			_, err := NameGroups(pattern, destination)
			if k == m {
				return err == nil
			}
			return errors.Is(err, ErrGroupMismatch)
		},
		gen.IntRange(0, 5),
		gen.IntRange(0, 5),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestNameGroups_PropertyMatchingUnchanged(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("named pattern matches the same paths", prop.ForAll(
		func(k int, seed int, segment string) bool {
			pattern, destination := buildPattern(k, seed)
			named, err := NameGroups(pattern, destination)
			if err != nil {
				return false
			}
			before, err := regexp2.Compile(pattern, regexp2.None)
			if err != nil {
				return false
			}
			after, err := regexp2.Compile(named, regexp2.None)
			if err != nil {
				return false
			}
			inputs := []string{
				"",
				"/",
				"/" + segment,
				"/" + segment + "/",
				"/" + segment + "/" + segment,
				"/42/" + segment + "/de",
				"/en/7/" + segment + "/x/",
			}
			for _, input := range inputs {
				want, err1 := before.MatchString(input)
				got, err2 := after.MatchString(input)
				if err1 != nil || err2 != nil || want != got {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 4),
		gen.IntRange(0, 100),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
