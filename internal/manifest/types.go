package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// ConditionType discriminates the match conditions of a rule
type ConditionType string

const (
	ConditionHost   ConditionType = "host"
	ConditionHeader ConditionType = "header"
	ConditionCookie ConditionType = "cookie"
	ConditionQuery  ConditionType = "query"
)

// Condition is one entry of a rule's has or missing list. Value is
// optional for header, cookie and query conditions; empty means "any".
type Condition struct {
	Type  ConditionType `json:"type" validate:"required,condtype"`
	Key   string        `json:"key,omitempty" validate:"required_unless=Type host"`
	Value string        `json:"value,omitempty" validate:"required_if=Type host"`
}

// Rule is a redirect or rewrite entry of the routes manifest
type Rule struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination" validate:"required"`
	Regex       string      `json:"regex" validate:"required,jsregex"`
	Has         []Condition `json:"has,omitempty" validate:"dive"`
	Missing     []Condition `json:"missing,omitempty" validate:"dive"`
	Locale      *bool       `json:"locale,omitempty"`
	BasePath    *bool       `json:"basePath,omitempty"`
	Internal    bool        `json:"internal,omitempty"`
	StatusCode  *int        `json:"statusCode,omitempty"`
	Permanent   *bool       `json:"permanent,omitempty"`
}

// Rewrites holds the three rewrite buckets. Manifests may also carry a
// plain list, which is treated as the before-files bucket; Flat records
// that shape.
type Rewrites struct {
	BeforeFiles []Rule `json:"beforeFiles" validate:"dive"`
	AfterFiles  []Rule `json:"afterFiles" validate:"dive"`
	Fallback    []Rule `json:"fallback" validate:"dive"`
	Flat        bool   `json:"-"`
}

// UnmarshalJSON accepts either a list of rules or a bucketed object.
func (r *Rewrites) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch {
	case res.IsArray():
		var list []Rule
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*r = Rewrites{BeforeFiles: list, Flat: true}
	case res.IsObject():
		type bucketed Rewrites
		var b bucketed
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*r = Rewrites(b)
	case res.Type == gjson.Null:
		*r = Rewrites{}
	default:
		return fmt.Errorf("rewrites must be a list or an object, got %s", res.Type)
	}
	return nil
}

// Route is a dynamic or static page route
type Route struct {
	Page       string            `json:"page"`
	Regex      string            `json:"regex"`
	RouteKeys  map[string]string `json:"routeKeys,omitempty"`
	NamedRegex string            `json:"namedRegex,omitempty"`
}

// I18n is the internationalization block of the manifest
type I18n struct {
	DefaultLocale string   `json:"defaultLocale"`
	Locales       []string `json:"locales"`
}

// RSC holds the React Server Components header names
type RSC struct {
	Header            string `json:"header"`
	VaryHeader        string `json:"varyHeader"`
	ContentTypeHeader string `json:"contentTypeHeader"`
}

// RoutesManifest is the build-generated routing description of a site
type RoutesManifest struct {
	Version       int               `json:"version"`
	Pages404      bool              `json:"pages404"`
	BasePath      string            `json:"basePath"`
	Redirects     []Rule            `json:"redirects" validate:"dive"`
	Headers       []json.RawMessage `json:"headers,omitempty"`
	DynamicRoutes []Route           `json:"dynamicRoutes,omitempty"`
	StaticRoutes  []Route           `json:"staticRoutes,omitempty"`
	DataRoutes    []json.RawMessage `json:"dataRoutes,omitempty"`
	I18n          *I18n             `json:"i18n,omitempty"`
	RSC           *RSC              `json:"rsc,omitempty"`
	Rewrites      Rewrites          `json:"rewrites"`
}
