package riskmap

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Pattern is a compiled scope expression. Matching is full-string against
// forward-slash paths, never substring.
//
// Dialect:
//
//	*       a run of zero or more characters, not crossing a separator
//	**/     zero or more complete path segments (so a/**/b matches a/b)
//	**      a run of characters including separators
//	?       exactly one non-separator character
//	[...]   a character class, passed through verbatim
//	!pat    (leading only) negates the whole pattern
//
// The translation is done character by character rather than leaning on
// any regexp sugar so the segment semantics of ** stay exactly
// reproducible.
type Pattern struct {
	Raw    string
	negate bool
	re     *regexp.Regexp // nil means the pattern failed to compile
}

var patternCache sync.Map // raw string -> *Pattern

// CompilePattern compiles a scope expression, memoizing per distinct
// string. A pattern that cannot be compiled degrades to a matcher that
// never matches; compilation itself never fails the caller.
func CompilePattern(raw string) *Pattern {
	if cached, ok := patternCache.Load(raw); ok {
		return cached.(*Pattern)
	}
	p := compilePattern(raw)
	actual, _ := patternCache.LoadOrStore(raw, p)
	return actual.(*Pattern)
}

func compilePattern(raw string) *Pattern {
	p := &Pattern{Raw: raw}

	body := raw
	if strings.HasPrefix(body, "!") {
		p.negate = true
		body = body[1:]
	}

	expr, err := translateGlob(body)
	if err != nil {
		return p // fail-closed
	}
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return p
	}
	p.re = re
	return p
}

// Match reports whether path satisfies the pattern. Backslash separators
// are normalized first; a pattern that failed to compile never matches,
// negated or not.
func (p *Pattern) Match(path string) bool {
	if p.re == nil {
		return false
	}
	matched := p.re.MatchString(strings.ReplaceAll(path, "\\", "/"))
	if p.negate {
		return !matched
	}
	return matched
}

// Compiled reports whether the pattern compiled cleanly. Used by the
// check command to flag dead scope patterns.
func (p *Pattern) Compiled() bool {
	return p.re != nil
}

func translateGlob(glob string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(glob); {
		switch glob[i] {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					// Each consumed segment includes its trailing
					// separator, so zero segments is a valid match.
					b.WriteString("(?:[^/]+/)*")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("unterminated character class in %q", glob)
			}
			b.WriteString(glob[i : i+end+2])
			i += end + 2
		default:
			b.WriteString(regexp.QuoteMeta(string(glob[i])))
			i++
		}
	}
	return b.String(), nil
}
