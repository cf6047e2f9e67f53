package regex

import "strings"

// Generate serializes a tree back into pattern source.
func Generate(n *Node) string {
	var b strings.Builder
	generate(&b, n)
	return b.String()
}

func generate(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindDisjunction:
		for i, alt := range n.Body {
			if i > 0 {
				b.WriteByte('|')
			}
			generate(b, alt)
		}
	case KindAlternative:
		for _, term := range n.Body {
			generate(b, term)
		}
	case KindGroup:
		b.WriteByte('(')
		if n.Behavior == BehaviorNormal && n.Name != "" {
			b.WriteString("?<")
			b.WriteString(n.Name)
			b.WriteByte('>')
		} else {
			b.WriteString(n.Behavior.prefix())
		}
		for _, child := range n.Body {
			generate(b, child)
		}
		b.WriteByte(')')
	case KindQuantifier:
		generate(b, n.Body[0])
		b.WriteString(n.Raw)
	default:
		b.WriteString(n.Raw)
	}
}
