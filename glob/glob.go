// Package glob compiles scheme-prefixed pattern expressions into
// matchers over path values.
//
// Two syntaxes are supported at the compile entry point: "glob:" with
// conventional glob tokens, and "regex:" which delegates to the regexp
// package over the path's string form. The glob compiler is a
// segment-aware automaton: "*" and "?" never cross a separator, and
// "**" consumes one or more whole segments, so "**/name" does not match
// a bare single-segment "name".
package glob

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/memfs-go/memfs/fspath"
)

// ErrBadPattern signals a pattern expression that cannot be compiled:
// missing or unknown syntax scheme, unterminated character class,
// trailing escape, or an invalid regular expression.
var ErrBadPattern = errors.New("bad pattern")

const (
	schemeGlob  = "glob"
	schemeRegex = "regex"
)

// Option configures matcher compilation.
type Option func(*Matcher)

// WithCaseFold makes the matcher compare segments under Unicode case
// folding, aligning it with a case-insensitive store.
func WithCaseFold() Option {
	return func(m *Matcher) {
		m.fold = true
	}
}

// Matcher is a compiled pattern. It is stateless after compilation and
// safe to reuse against many path values concurrently.
type Matcher struct {
	expr     string
	fold     bool
	absolute bool
	segments []segment
	re       *regexp.Regexp
}

// Compile compiles a scheme-prefixed pattern expression, e.g.
// "glob:**/*.txt" or "regex:.*\.txt". Expressions without a scheme
// discriminator fail with ErrBadPattern.
func Compile(expr string, opts ...Option) (*Matcher, error) {
	scheme, pattern, ok := strings.Cut(expr, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing syntax scheme in %q", ErrBadPattern, expr)
	}
	m := &Matcher{expr: expr}
	for _, opt := range opts {
		opt(m)
	}
	switch scheme {
	case schemeGlob:
		if err := m.compileGlob(pattern); err != nil {
			return nil, err
		}
	case schemeRegex:
		if m.fold {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
		}
		m.re = re
	default:
		return nil, fmt.Errorf("%w: unknown syntax scheme %q", ErrBadPattern, scheme)
	}
	return m, nil
}

// MustCompile is Compile for statically known expressions; it panics on
// error.
func MustCompile(expr string, opts ...Option) *Matcher {
	m, err := Compile(expr, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the original pattern expression.
func (m *Matcher) String() string {
	return m.expr
}

// Matches reports whether the compiled pattern matches the whole path.
func (m *Matcher) Matches(p fspath.Path) bool {
	if m.re != nil {
		return m.re.MatchString(p.String())
	}
	names := p.Segments()
	if m.absolute != p.IsAbsolute() {
		if m.absolute {
			// absolute pattern never matches a relative path
			return false
		}
		// A relative pattern starting with "**" may match an absolute
		// path: the root component stands in for the required leading
		// segment, mirroring the separator-crossing translation of
		// the platform syntax.
		if len(m.segments) == 0 || !m.segments[0].multi {
			return false
		}
		return m.matchFrom(m.segments, names, 0)
	}
	return m.matchFrom(m.segments, names, 1)
}

// matchFrom matches pattern segments against name segments.
// firstMultiMin is the minimum segment count the leading "**" must
// consume; later "**" segments always consume at least one.
func (m *Matcher) matchFrom(segs []segment, names []string, firstMultiMin int) bool {
	if len(segs) == 0 {
		return len(names) == 0
	}
	seg := segs[0]
	if seg.multi {
		for k := firstMultiMin; k <= len(names); k++ {
			if m.matchFrom(segs[1:], names[k:], 1) {
				return true
			}
		}
		return false
	}
	if len(names) == 0 {
		return false
	}
	if !m.matchSegment(seg.tokens, []rune(names[0])) {
		return false
	}
	return m.matchFrom(segs[1:], names[1:], 1)
}

type segment struct {
	multi  bool // "**": one or more whole segments
	tokens []token
}

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenAny               // "?"
	tokenStar              // "*"
	tokenClass             // "[...]"
)

type token struct {
	kind  tokenKind
	lit   rune
	class *classSet
}

// classSet is a compiled "[...]" character class.
type classSet struct {
	negated bool
	singles []rune
	ranges  [][2]rune
}

func (c *classSet) contains(r rune, fold bool) bool {
	in := func(r rune) bool {
		for _, s := range c.singles {
			if s == r {
				return true
			}
		}
		for _, rg := range c.ranges {
			if rg[0] <= r && r <= rg[1] {
				return true
			}
		}
		return false
	}
	hit := in(r)
	if !hit && fold {
		if lower := unicode.ToLower(r); lower != r {
			hit = in(lower)
		}
		if upper := unicode.ToUpper(r); !hit && upper != r {
			hit = in(upper)
		}
	}
	return hit != c.negated
}

func (m *Matcher) compileGlob(pattern string) error {
	m.absolute = strings.HasPrefix(pattern, fspath.Separator)
	for part := range strings.SplitSeq(pattern, fspath.Separator) {
		if part == "" {
			continue
		}
		if part == "**" {
			m.segments = append(m.segments, segment{multi: true})
			continue
		}
		tokens, err := compileSegment(part)
		if err != nil {
			return err
		}
		m.segments = append(m.segments, segment{tokens: tokens})
	}
	return nil
}

func compileSegment(part string) ([]token, error) {
	runes := []rune(part)
	tokens := make([]token, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case '*':
			// collapse runs of "*" inside a segment
			if len(tokens) == 0 || tokens[len(tokens)-1].kind != tokenStar {
				tokens = append(tokens, token{kind: tokenStar})
			}
		case '?':
			tokens = append(tokens, token{kind: tokenAny})
		case '[':
			class, next, err := compileClass(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenClass, class: class})
			i = next
		case '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("%w: trailing escape in %q", ErrBadPattern, part)
			}
			i++
			tokens = append(tokens, token{kind: tokenLiteral, lit: runes[i]})
		default:
			tokens = append(tokens, token{kind: tokenLiteral, lit: r})
		}
	}
	return tokens, nil
}

// compileClass parses a "[...]" class starting at the opening bracket
// and returns the compiled set plus the index of the closing bracket.
func compileClass(runes []rune, start int) (*classSet, int, error) {
	class := &classSet{}
	i := start + 1
	if i < len(runes) && (runes[i] == '!' || runes[i] == '^') {
		class.negated = true
		i++
	}
	// "]" right after the opening bracket (or negation) is a literal
	first := true
	for ; i < len(runes); i++ {
		r := runes[i]
		if r == ']' && !first {
			if len(class.singles) == 0 && len(class.ranges) == 0 {
				return nil, 0, fmt.Errorf("%w: empty character class in %q", ErrBadPattern, string(runes))
			}
			return class, i, nil
		}
		first = false
		if r == '\\' {
			if i+1 >= len(runes) {
				break
			}
			i++
			r = runes[i]
		}
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] != ']' {
			lo, hi := r, runes[i+2]
			if hi < lo {
				return nil, 0, fmt.Errorf("%w: inverted range %q-%q", ErrBadPattern, lo, hi)
			}
			class.ranges = append(class.ranges, [2]rune{lo, hi})
			i += 2
			continue
		}
		class.singles = append(class.singles, r)
	}
	return nil, 0, fmt.Errorf("%w: unterminated character class in %q", ErrBadPattern, string(runes))
}

// matchSegment matches a token program against a single name segment
// with backtracking over "*".
func (m *Matcher) matchSegment(tokens []token, name []rune) bool {
	if len(tokens) == 0 {
		return len(name) == 0
	}
	switch t := tokens[0]; t.kind {
	case tokenStar:
		for k := 0; k <= len(name); k++ {
			if m.matchSegment(tokens[1:], name[k:]) {
				return true
			}
		}
		return false
	case tokenAny:
		return len(name) > 0 && m.matchSegment(tokens[1:], name[1:])
	case tokenClass:
		return len(name) > 0 && t.class.contains(name[0], m.fold) &&
			m.matchSegment(tokens[1:], name[1:])
	default:
		if len(name) == 0 {
			return false
		}
		if name[0] != t.lit && !(m.fold && foldEq(name[0], t.lit)) {
			return false
		}
		return m.matchSegment(tokens[1:], name[1:])
	}
}

func foldEq(a, b rune) bool {
	return unicode.ToLower(a) == unicode.ToLower(b)
}
