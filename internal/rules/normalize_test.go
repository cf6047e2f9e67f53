package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-rules/internal/manifest"
)

func header(key, value string) manifest.Condition {
	return manifest.Condition{Type: manifest.ConditionHeader, Key: key, Value: value}
}

func cookie(key, value string) manifest.Condition {
	return manifest.Condition{Type: manifest.ConditionCookie, Key: key, Value: value}
}

func query(key, value string) manifest.Condition {
	return manifest.Condition{Type: manifest.ConditionQuery, Key: key, Value: value}
}

func host(value string) manifest.Condition {
	return manifest.Condition{Type: manifest.ConditionHost, Value: value}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name            string
		conds           []manifest.Condition
		wantConstraints Constraints
		wantParams      Params
		wantHosts       Hosts
	}{
		{
			name: "no conditions",
		},
		{
			name:            "header values accumulate",
			conds:           []manifest.Condition{header("accept", "image/avif"), header("accept", "image/webp")},
			wantConstraints: Constraints{"Header@accept": {"image/avif", "image/webp"}},
		},
		{
			name:            "header without value",
			conds:           []manifest.Condition{header("x-preview", "")},
			wantConstraints: Constraints{"Header@x-preview": {"*"}},
		},
		{
			name:            "cookie values",
			conds:           []manifest.Condition{cookie("session", ""), cookie("role", "admin"), cookie("role", "admin")},
			wantConstraints: Constraints{"Cookie@session": {"*"}, "Cookie@role": {"admin", "admin"}},
		},
		{
			name:       "query overwrites",
			conds:      []manifest.Condition{query("page", "1"), query("page", "2")},
			wantParams: Params{"page": "2"},
		},
		{
			name:       "query without value",
			conds:      []manifest.Condition{query("x", "")},
			wantParams: Params{"x": ":any"},
		},
		{
			name:      "hosts keep order",
			conds:     []manifest.Condition{host("a.com"), host("b.com")},
			wantHosts: Hosts{"a.com", "b.com"},
		},
		{
			name:            "mixed",
			conds:           []manifest.Condition{host("example.org"), header("accept", "text/html"), query("q", ""), cookie("lang", "de")},
			wantConstraints: Constraints{"Header@accept": {"text/html"}, "Cookie@lang": {"de"}},
			wantParams:      Params{"q": ":any"},
			wantHosts:       Hosts{"example.org"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraints, params, hosts, err := Normalize(tt.conds)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConstraints, constraints)
			assert.Equal(t, tt.wantParams, params)
			assert.Equal(t, tt.wantHosts, hosts)
		})
	}
}

func TestNormalize_AbsentResultsAreNil(t *testing.T) {
	constraints, params, hosts, err := Normalize([]manifest.Condition{header("accept", "")})
	require.NoError(t, err)
	assert.NotNil(t, constraints)
	assert.Nil(t, params)
	assert.Nil(t, hosts)

	constraints, params, hosts, err = Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, constraints)
	assert.Nil(t, params)
	assert.Nil(t, hosts)
}

func TestNormalize_UnsupportedType(t *testing.T) {
	_, _, _, err := Normalize([]manifest.Condition{header("a", "b"), {Type: "geo", Key: "country"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedConditionType)
	assert.ErrorIs(t, err, manifest.ErrUnsupportedConditionType)
	assert.Contains(t, err.Error(), "condition 1")
}

func TestNormalize_EmptyHost(t *testing.T) {
	_, _, hosts, err := Normalize([]manifest.Condition{host("example.org"), host("")})
	require.ErrorIs(t, err, ErrEmptyHost)
	assert.Nil(t, hosts)
	assert.Contains(t, err.Error(), "condition 1")
}

func TestConstraintKeys(t *testing.T) {
	assert.Equal(t, ConstraintKey("Header@accept"), HeaderKey("accept"))
	assert.Equal(t, ConstraintKey("Cookie@session"), CookieKey("session"))
	assert.Equal(t, ConstraintKey("Accept"), Accept)
}

func TestClone(t *testing.T) {
	c := Constraints{"Header@a": {"1"}}
	cc := c.Clone()
	cc["Header@a"][0] = "2"
	cc["Header@b"] = []string{"3"}
	assert.Equal(t, Constraints{"Header@a": {"1"}}, c)

	p := Params{"x": "1"}
	pc := p.Clone()
	pc["x"] = "2"
	assert.Equal(t, "1", p["x"])

	assert.Nil(t, Constraints(nil).Clone())
	assert.Nil(t, Params(nil).Clone())
}
