package regex

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGroupMismatch is returned when the capturing groups of a pattern
// cannot be paired one to one with the parameters of a destination.
var ErrGroupMismatch = errors.New("capturing groups do not match destination parameters")

// Parameters returns the placeholder names of a destination template in
// left-to-right order. Each "/"-separated segment containing a ':'
// contributes the name that follows its first ':'. The name ends at the
// first character that cannot appear in a group name, so ":path*" yields
// "path". The scheme and authority of absolute destinations are ignored.
func Parameters(destination string) []string {
	path := destination
	if i := strings.Index(path, "://"); i >= 0 {
		rest := path[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			path = rest[j:]
		} else {
			path = ""
		}
	}

	var params []string
	for _, segment := range strings.Split(path, "/") {
		i := strings.IndexByte(segment, ':')
		if i < 0 {
			continue
		}
		if name := nameprefix(segment[i+1:]); name != "" {
			params = append(params, name)
		}
	}
	return params
}

func nameprefix(s string) string {
	for i, r := range s {
		if !isNameRune(r, i == 0) {
			return s[:i]
		}
	}
	return s
}

// NameGroups names the unnamed capturing groups of pattern after the
// parameters of destination: the Nth unnamed group, in pre-order, gets the
// Nth parameter. Non-capturing groups, lookarounds and groups that
// already carry a name are left alone. Nothing but the group names changes
// in the returned pattern.
func NameGroups(pattern, destination string) (string, error) {
	root, err := Parse(pattern, DefaultFeatures)
	if err != nil {
		return "", err
	}

	params := Parameters(destination)
	if err := checkNames(root, params); err != nil {
		return "", fmt.Errorf("%w: pattern %q, destination %q: %v", ErrGroupMismatch, pattern, destination, err)
	}

	next := assignNames(root, params, 0)
	if next != len(params) {
		return "", fmt.Errorf("%w: pattern %q has %d capturing groups, destination %q has %d parameters",
			ErrGroupMismatch, pattern, next, destination, len(params))
	}
	return Generate(root), nil
}

// assignNames walks n pre-order and names unnamed capturing groups from
// params starting at index next. It returns the index after the last
// group seen, which exceeds len(params) when there are more groups than
// names. Groups past the end of params are counted but left unnamed.
func assignNames(n *Node, params []string, next int) int {
	if n.IsCapturing() && n.Name == "" {
		if next < len(params) {
			n.Name = params[next]
		}
		next++
	}
	for _, child := range n.Body {
		next = assignNames(child, params, next)
	}
	return next
}

func checkNames(root *Node, params []string) error {
	taken := make(map[string]bool)
	for _, name := range GroupNames(root) {
		taken[name] = true
	}
	for _, name := range params {
		if taken[name] {
			return fmt.Errorf("parameter %q is bound to more than one group", name)
		}
		taken[name] = true
	}
	return nil
}

// Valid reports whether pattern parses with the default features.
func Valid(pattern string) bool {
	_, err := Parse(pattern, DefaultFeatures)
	return err == nil
}
