package rules

import "edge-rules/internal/manifest"

// ConstraintKey names an entry of a Constraints map
type ConstraintKey string

// Fixed constraint keys understood by the edge layer. Header and cookie
// conditions use the dynamic keys built by HeaderKey and CookieKey.
const (
	Country  ConstraintKey = "Country"
	Language ConstraintKey = "Language"
	Role     ConstraintKey = "Role"
	Cookie   ConstraintKey = "Cookie"
	Accept   ConstraintKey = "Accept"
)

// HeaderKey returns the constraint key for a request header
func HeaderKey(name string) ConstraintKey {
	return ConstraintKey("Header@" + name)
}

// CookieKey returns the constraint key for a cookie
func CookieKey(name string) ConstraintKey {
	return ConstraintKey("Cookie@" + name)
}

const (
	// AnyValue matches any header or cookie value
	AnyValue = "*"
	// AnyParam matches any query parameter value
	AnyParam = ":any"
)

// Constraints maps a key to the values accepted for it. Values under one
// key accumulate in condition order.
type Constraints map[ConstraintKey][]string

// Params maps a query parameter to its expected value
type Params map[string]string

// Hosts lists literal host names, any of which satisfies a rule
type Hosts []string

// Clone returns a deep copy; nil stays nil
func (c Constraints) Clone() Constraints {
	if c == nil {
		return nil
	}
	out := make(Constraints, len(c))
	for k, v := range c {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Clone returns a copy; nil stays nil
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Rule is one normalized edge rule. Nil maps and an empty host are left
// out of the serialized form.
type Rule struct {
	Host       string      `json:"host,omitempty" yaml:"host,omitempty"`
	Regex      string      `json:"regex" yaml:"regex"`
	To         string      `json:"to" yaml:"to"`
	Status     int         `json:"status" yaml:"status"`
	Conditions Constraints `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Exceptions Constraints `json:"exceptions,omitempty" yaml:"exceptions,omitempty"`
	Params     Params      `json:"params,omitempty" yaml:"params,omitempty"`
}

// RuleSet groups rules by when the edge layer evaluates them: PreEF before
// edge functions run, PreCache before the static file and cache lookup.
type RuleSet struct {
	PreEF    []Rule `json:"preEF,omitempty" yaml:"preEF,omitempty"`
	PreCache []Rule `json:"preCache,omitempty" yaml:"preCache,omitempty"`
}

// Len returns the total number of rules
func (rs *RuleSet) Len() int {
	return len(rs.PreEF) + len(rs.PreCache)
}

// Kind selects how status codes are resolved
type Kind int

const (
	KindRedirect Kind = iota
	KindRewrite
)

func (k Kind) String() string {
	if k == KindRewrite {
		return "rewrite"
	}
	return "redirect"
}

const (
	StatusRewrite           = 200
	StatusTemporaryRedirect = 307
	StatusPermanentRedirect = 308
	defaultRedirectStatus   = StatusPermanentRedirect
)

// Status resolves the HTTP status of a converted rule. Rewrites are always
// 200. Redirects use statusCode when it is set and non-zero, then the
// permanent flag, then 308.
func Status(r manifest.Rule, kind Kind) int {
	if kind == KindRewrite {
		return StatusRewrite
	}
	if r.StatusCode != nil && *r.StatusCode != 0 {
		return *r.StatusCode
	}
	if r.Permanent != nil {
		if *r.Permanent {
			return StatusPermanentRedirect
		}
		return StatusTemporaryRedirect
	}
	return defaultRedirectStatus
}
