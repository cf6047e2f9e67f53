package rules

import (
	"errors"
	"fmt"

	"edge-rules/internal/manifest"
)

// ErrUnsupportedConditionType is returned for a condition type other than
// host, header, cookie or query.
var ErrUnsupportedConditionType = manifest.ErrUnsupportedConditionType

// ErrEmptyHost is returned for a host condition without a value. Such a
// rule would otherwise lose its host and match every host.
var ErrEmptyHost = errors.New("host condition without a value")

// Normalize folds conditions into constraints, query params and hosts.
// Each result is nil unless a condition of its shape was seen.
//
// Header and cookie values accumulate under their key in input order and
// default to "*". Query values default to ":any" and a repeated key
// overwrites the earlier value.
func Normalize(conds []manifest.Condition) (Constraints, Params, Hosts, error) {
	var (
		constraints Constraints
		params      Params
		hosts       Hosts
	)

	for i, c := range conds {
		switch c.Type {
		case manifest.ConditionHost:
			if c.Value == "" {
				return nil, nil, nil, fmt.Errorf("condition %d: %w", i, ErrEmptyHost)
			}
			hosts = append(hosts, c.Value)
		case manifest.ConditionHeader, manifest.ConditionCookie:
			if constraints == nil {
				constraints = make(Constraints)
			}
			key := HeaderKey(c.Key)
			if c.Type == manifest.ConditionCookie {
				key = CookieKey(c.Key)
			}
			constraints[key] = append(constraints[key], valueOr(c.Value, AnyValue))
		case manifest.ConditionQuery:
			if params == nil {
				params = make(Params)
			}
			params[c.Key] = valueOr(c.Value, AnyParam)
		default:
			return nil, nil, nil, fmt.Errorf("condition %d: %w %q", i, ErrUnsupportedConditionType, c.Type)
		}
	}

	return constraints, params, hosts, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
