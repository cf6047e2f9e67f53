package regex

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ErrParse is the sentinel for every malformed pattern
var ErrParse = errors.New("invalid regular expression")

// ParseError describes where a pattern failed to parse
type ParseError struct {
	Pattern string
	Offset  int
	Msg     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid regular expression %q at offset %d: %s", e.Pattern, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Features toggles the optional syntax accepted by Parse
type Features struct {
	UnicodePropertyEscape bool
	Lookbehind            bool
	NamedGroups           bool
}

// DefaultFeatures enables everything route manifests use
var DefaultFeatures = Features{
	UnicodePropertyEscape: true,
	Lookbehind:            true,
	NamedGroups:           true,
}

type parser struct {
	src   string
	pos   int
	f     Features
	names map[string]bool
	refs  []namedRef
}

type namedRef struct {
	name   string
	offset int
}

// Parse parses an ECMAScript regular expression (without flags) into a
// tree. The root is always a disjunction.
func Parse(pattern string, f Features) (*Node, error) {
	p := &parser{src: pattern, f: f, names: make(map[string]bool)}

	root, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		// parseDisjunction only stops early on ')'
		return nil, p.errorf(p.pos, "unmatched ')'")
	}
	// with no named groups at all \k<name> stays a literal
	if len(p.names) > 0 {
		for _, ref := range p.refs {
			if !p.names[ref.name] {
				return nil, p.errorf(ref.offset, "reference to unknown group %q", ref.name)
			}
		}
	}
	return root, nil
}

func (p *parser) errorf(offset int, format string, args ...any) error {
	return &ParseError{Pattern: p.src, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) lookingAt(s string) bool {
	return len(p.src)-p.pos >= len(s) && p.src[p.pos:p.pos+len(s)] == s
}

func (p *parser) parseDisjunction() (*Node, error) {
	d := &Node{Kind: KindDisjunction, Start: p.pos}
	for {
		alt, err := p.parseAlternative()
		if err != nil {
			return nil, err
		}
		d.Body = append(d.Body, alt)
		if p.eof() || p.peek() != '|' {
			break
		}
		p.pos++
	}
	d.End = p.pos
	return d, nil
}

func (p *parser) parseAlternative() (*Node, error) {
	alt := &Node{Kind: KindAlternative, Start: p.pos}
	for !p.eof() {
		c := p.peek()
		if c == '|' || c == ')' {
			break
		}
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		alt.Body = append(alt.Body, term)
	}
	alt.End = p.pos
	return alt, nil
}

func (p *parser) parseTerm() (*Node, error) {
	start := p.pos
	var (
		atom       *Node
		err        error
		repeatable = true
	)

	switch c := p.peek(); c {
	case '^', '$':
		p.pos++
		return p.leaf(KindAnchor, start), nil
	case '\\':
		if p.lookingAt(`\b`) || p.lookingAt(`\B`) {
			p.pos += 2
			return p.leaf(KindAnchor, start), nil
		}
		atom, err = p.parseEscape()
	case '(':
		atom, err = p.parseGroup()
		if err == nil && (atom.Behavior == BehaviorLookbehind || atom.Behavior == BehaviorNegativeLookbehind) {
			repeatable = false
		}
	case '[':
		atom, err = p.parseClass()
	case '.':
		p.pos++
		atom = p.leaf(KindDot, start)
	case '*', '+', '?':
		return nil, p.errorf(start, "nothing to repeat")
	case '{':
		if _, _, ok := p.scanRange(); ok {
			return nil, p.errorf(start, "nothing to repeat")
		}
		p.pos++
		atom = p.leaf(KindValue, start)
	default:
		_, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
		atom = p.leaf(KindValue, start)
	}
	if err != nil {
		return nil, err
	}
	if !repeatable {
		if !p.eof() && p.atQuantifier() {
			return nil, p.errorf(p.pos, "invalid quantifier after lookbehind")
		}
		return atom, nil
	}
	return p.parseQuantifier(atom)
}

func (p *parser) atQuantifier() bool {
	switch p.peek() {
	case '*', '+', '?':
		return true
	case '{':
		_, _, ok := p.scanRange()
		return ok
	}
	return false
}

func (p *parser) leaf(kind Kind, start int) *Node {
	return &Node{Kind: kind, Raw: p.src[start:p.pos], Start: start, End: p.pos}
}

func (p *parser) parseQuantifier(atom *Node) (*Node, error) {
	if p.eof() {
		return atom, nil
	}
	start := p.pos
	switch p.peek() {
	case '*', '+', '?':
		p.pos++
	case '{':
		n, m, ok := p.scanRange()
		if !ok {
			return atom, nil
		}
		if m >= 0 && m < n {
			return nil, p.errorf(start, "numbers out of order in {} quantifier")
		}
		p.pos = p.skipRange()
	default:
		return atom, nil
	}
	if !p.eof() && p.peek() == '?' {
		p.pos++
	}
	return &Node{
		Kind:  KindQuantifier,
		Body:  []*Node{atom},
		Raw:   p.src[start:p.pos],
		Start: atom.Start,
		End:   p.pos,
	}, nil
}

// scanRange checks for {n}, {n,} or {n,m} at the current position without
// consuming it. m is -1 when unbounded.
func (p *parser) scanRange() (int, int, bool) {
	i := p.pos + 1
	n, i, ok := p.scanDigits(i)
	if !ok {
		return 0, 0, false
	}
	m := n
	if i < len(p.src) && p.src[i] == ',' {
		i++
		m = -1
		if i < len(p.src) && isDigit(p.src[i]) {
			m, i, _ = p.scanDigits(i)
		}
	}
	if i >= len(p.src) || p.src[i] != '}' {
		return 0, 0, false
	}
	return n, m, true
}

func (p *parser) skipRange() int {
	i := p.pos
	for p.src[i] != '}' {
		i++
	}
	return i + 1
}

func (p *parser) scanDigits(i int) (int, int, bool) {
	start := i
	for i < len(p.src) && isDigit(p.src[i]) {
		i++
	}
	if i == start {
		return 0, i, false
	}
	n, err := strconv.Atoi(p.src[start:i])
	if err != nil {
		// overflow; the bound is still syntactically valid
		n = int(^uint(0) >> 1)
	}
	return n, i, true
}

func (p *parser) parseEscape() (*Node, error) {
	start := p.pos
	if p.pos+1 >= len(p.src) {
		return nil, p.errorf(start, `\ at end of pattern`)
	}
	c := p.src[p.pos+1]
	switch {
	case (c == 'p' || c == 'P') && p.f.UnicodePropertyEscape && p.pos+2 < len(p.src) && p.src[p.pos+2] == '{':
		end := p.indexFrom(p.pos+3, '}')
		if end < 0 || end == p.pos+3 {
			return nil, p.errorf(start, "invalid property name")
		}
		p.pos = end + 1
		return p.leaf(KindUnicodeProperty, start), nil
	case c == 'k' && p.f.NamedGroups && p.pos+2 < len(p.src) && p.src[p.pos+2] == '<':
		end := p.indexFrom(p.pos+3, '>')
		if end < 0 || !isGroupName(p.src[p.pos+3:end]) {
			return nil, p.errorf(start, "invalid named reference")
		}
		p.refs = append(p.refs, namedRef{name: p.src[p.pos+3 : end], offset: start})
		p.pos = end + 1
		return p.leaf(KindReference, start), nil
	case c >= '1' && c <= '9':
		i := p.pos + 1
		for i < len(p.src) && isDigit(p.src[i]) {
			i++
		}
		p.pos = i
		return p.leaf(KindReference, start), nil
	case c == 'u':
		p.pos += 2 + p.unicodeEscapeLen(p.pos+2)
	case c == 'x':
		p.pos += 2
		if p.hexRun(p.pos, 2) {
			p.pos += 2
		}
	case c == 'c':
		p.pos += 2
		if !p.eof() && isASCIILetter(p.peek()) {
			p.pos++
		}
	default:
		_, size := utf8.DecodeRuneInString(p.src[p.pos+1:])
		p.pos += 1 + size
	}
	return p.leaf(KindValue, start), nil
}

// unicodeEscapeLen returns how many bytes after "\u" belong to the escape.
func (p *parser) unicodeEscapeLen(i int) int {
	if p.hexRun(i, 4) {
		return 4
	}
	if i < len(p.src) && p.src[i] == '{' {
		j := i + 1
		for j < len(p.src) && isHex(p.src[j]) {
			j++
		}
		if j > i+1 && j < len(p.src) && p.src[j] == '}' {
			return j - i + 1
		}
	}
	return 0
}

func (p *parser) hexRun(i, n int) bool {
	if i+n > len(p.src) {
		return false
	}
	for j := i; j < i+n; j++ {
		if !isHex(p.src[j]) {
			return false
		}
	}
	return true
}

func (p *parser) indexFrom(i int, b byte) int {
	for ; i < len(p.src); i++ {
		if p.src[i] == b {
			return i
		}
	}
	return -1
}

func (p *parser) parseClass() (*Node, error) {
	start := p.pos
	p.pos++
	if !p.eof() && p.peek() == '^' {
		p.pos++
	}

	// prev and dash track "a-z" style ranges between plain characters so
	// that reversed ranges are rejected like the JS engine does.
	prev, dash := rune(-1), false
	for !p.eof() {
		c := p.peek()
		if c == ']' {
			p.pos++
			return p.leaf(KindCharacterClass, start), nil
		}
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return nil, p.errorf(p.pos, `\ at end of pattern`)
			}
			_, size := utf8.DecodeRuneInString(p.src[p.pos+1:])
			p.pos += 1 + size
			prev, dash = -1, false
			continue
		}
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		offset := p.pos
		p.pos += size
		switch {
		case dash && prev >= 0:
			if r < prev {
				return nil, p.errorf(offset, "range out of order in character class")
			}
			prev, dash = -1, false
		case r == '-' && prev >= 0:
			dash = true
		default:
			prev, dash = r, false
		}
	}
	return nil, p.errorf(start, "unterminated character class")
}

func (p *parser) parseGroup() (*Node, error) {
	start := p.pos
	p.pos++
	g := &Node{Kind: KindGroup, Start: start}

	if !p.eof() && p.peek() == '?' {
		switch {
		case p.lookingAt("?:"):
			g.Behavior = BehaviorIgnore
			p.pos += 2
		case p.lookingAt("?="):
			g.Behavior = BehaviorLookahead
			p.pos += 2
		case p.lookingAt("?!"):
			g.Behavior = BehaviorNegativeLookahead
			p.pos += 2
		case p.lookingAt("?<=") || p.lookingAt("?<!"):
			if !p.f.Lookbehind {
				return nil, p.errorf(start, "invalid group")
			}
			g.Behavior = BehaviorLookbehind
			if p.src[p.pos+2] == '!' {
				g.Behavior = BehaviorNegativeLookbehind
			}
			p.pos += 3
		case p.lookingAt("?<"):
			if !p.f.NamedGroups {
				return nil, p.errorf(start, "invalid group")
			}
			end := p.indexFrom(p.pos+2, '>')
			if end < 0 || !isGroupName(p.src[p.pos+2:end]) {
				return nil, p.errorf(start, "invalid capture group name")
			}
			name := p.src[p.pos+2 : end]
			if p.names[name] {
				return nil, p.errorf(start, "duplicate capture group name %q", name)
			}
			p.names[name] = true
			g.Name = name
			p.pos = end + 1
		default:
			return nil, p.errorf(start, "invalid group")
		}
	}

	body, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if p.eof() {
		return nil, p.errorf(start, "unterminated group")
	}
	p.pos++
	g.Body = []*Node{body}
	g.End = p.pos
	return g, nil
}

func isGroupName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isNameRune(r, i == 0) {
			return false
		}
	}
	return true
}

func isNameRune(r rune, first bool) bool {
	if r == '_' || r == '$' || unicode.IsLetter(r) {
		return true
	}
	return !first && unicode.IsDigit(r)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
