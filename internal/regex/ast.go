package regex

// Kind identifies the shape of a Node
type Kind int

const (
	KindDisjunction Kind = iota
	KindAlternative
	KindGroup
	KindQuantifier
	KindCharacterClass
	KindValue
	KindUnicodeProperty
	KindReference
	KindDot
	KindAnchor
)

func (k Kind) String() string {
	switch k {
	case KindDisjunction:
		return "disjunction"
	case KindAlternative:
		return "alternative"
	case KindGroup:
		return "group"
	case KindQuantifier:
		return "quantifier"
	case KindCharacterClass:
		return "characterClass"
	case KindValue:
		return "value"
	case KindUnicodeProperty:
		return "unicodePropertyEscape"
	case KindReference:
		return "reference"
	case KindDot:
		return "dot"
	case KindAnchor:
		return "anchor"
	default:
		return "unknown"
	}
}

// Behavior distinguishes the group forms
type Behavior int

const (
	BehaviorNormal Behavior = iota
	BehaviorIgnore
	BehaviorLookahead
	BehaviorNegativeLookahead
	BehaviorLookbehind
	BehaviorNegativeLookbehind
)

func (b Behavior) prefix() string {
	switch b {
	case BehaviorIgnore:
		return "?:"
	case BehaviorLookahead:
		return "?="
	case BehaviorNegativeLookahead:
		return "?!"
	case BehaviorLookbehind:
		return "?<="
	case BehaviorNegativeLookbehind:
		return "?<!"
	default:
		return ""
	}
}

// Node is one element of a parsed pattern.
//
// Disjunctions hold alternatives, alternatives hold terms, a group holds a
// single disjunction and a quantifier holds the atom it repeats. Leaves
// (values, classes, references, dots, anchors) keep their source text in
// Raw; for a quantifier Raw is the suffix, e.g. "*?" or "{2,3}".
type Node struct {
	Kind     Kind
	Behavior Behavior
	Name     string
	Body     []*Node
	Raw      string
	Start    int
	End      int
}

// IsCapturing reports whether n is a capturing group, named or not.
func (n *Node) IsCapturing() bool {
	return n.Kind == KindGroup && n.Behavior == BehaviorNormal
}

// Walk visits n and its descendants depth-first, pre-order. Returning
// false from fn skips the children of the current node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Body {
		Walk(child, fn)
	}
}

// GroupNames returns the names of the named groups in n in textual order.
func GroupNames(n *Node) []string {
	var names []string
	Walk(n, func(node *Node) bool {
		if node.IsCapturing() && node.Name != "" {
			names = append(names, node.Name)
		}
		return true
	})
	return names
}
