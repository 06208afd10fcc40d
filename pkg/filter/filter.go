// Package filter parses flow filter expressions into predicates.
//
// The language:
//
//	.            match all flows
//	~m METHOD    request method (case-insensitive)
//	~u REGEX     request URL matches regex
//	~d REGEX     request host matches regex
//	~c CODE      response status code
//	~marked      flow is marked
//	~tls         flow was intercepted over TLS
//	WORD         request URL contains WORD
//
// Clauses combine with ! (not), & or juxtaposition (and), | (or), and
// parentheses. Juxtaposed clauses AND together, so "~m GET example" matches
// GET requests whose URL contains "example".
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jnovack/capture-view/pkg/flow"
)

// Predicate decides whether a flow matches.
type Predicate = func(*flow.Flow) bool

// Parse compiles a filter expression. An empty expression matches all
// flows.
func Parse(text string) (Predicate, error) {
	toks := tokenize(text)
	if len(toks) == 0 {
		return func(*flow.Flow) bool { return true }, nil
	}
	p := &parser{tokens: toks}
	pred, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q", p.tokens[p.pos])
	}
	return pred, nil
}

// tokenize splits on whitespace, treating ( ) ! & | as single-character
// tokens so they need no surrounding spaces.
func tokenize(text string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n':
			flush()
		case '(', ')', '!', '&', '|':
			flush()
			toks = append(toks, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *parser) next() (string, error) {
	if p.pos >= len(p.tokens) {
		return "", fmt.Errorf("unexpected end of expression")
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) orExpr() (Predicate, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.peek() == "|" {
		p.pos++
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(f *flow.Flow) bool { return l(f) || r(f) }
	}
	return left, nil
}

// andExpr parses explicit "&" and implicit juxtaposition conjunctions.
func (p *parser) andExpr() (Predicate, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch t := p.peek(); {
		case t == "&":
			p.pos++
		case t == "" || t == "|" || t == ")":
			return left, nil
		}
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(f *flow.Flow) bool { return l(f) && r(f) }
	}
}

func (p *parser) notExpr() (Predicate, error) {
	if p.peek() == "!" {
		p.pos++
		inner, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return func(f *flow.Flow) bool { return !inner(f) }, nil
	}
	return p.atom()
}

func (p *parser) atom() (Predicate, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case t == "(":
		inner, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		if tok, err := p.next(); err != nil || tok != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case t == ".":
		return func(*flow.Flow) bool { return true }, nil
	case t == "~marked":
		return func(f *flow.Flow) bool { return f.Marked }, nil
	case t == "~tls":
		return func(f *flow.Flow) bool { return f.TLS }, nil
	case t == "~m":
		arg, err := p.next()
		if err != nil {
			return nil, fmt.Errorf("~m needs a method")
		}
		return func(f *flow.Flow) bool {
			return f.Request != nil && strings.EqualFold(f.Request.Method, arg)
		}, nil
	case t == "~u":
		return p.regexAtom("~u", func(f *flow.Flow) string {
			if f.Request == nil {
				return ""
			}
			return f.Request.URL
		})
	case t == "~d":
		return p.regexAtom("~d", func(f *flow.Flow) string {
			if f.Request == nil {
				return ""
			}
			return f.Request.Host
		})
	case t == "~c":
		arg, err := p.next()
		if err != nil {
			return nil, fmt.Errorf("~c needs a status code")
		}
		code, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("~c %q: not a status code", arg)
		}
		return func(f *flow.Flow) bool {
			return f.Response != nil && f.Response.Status == code
		}, nil
	case strings.HasPrefix(t, "~"):
		return nil, fmt.Errorf("unknown filter operator %q", t)
	default:
		// Bare word: URL substring.
		return func(f *flow.Flow) bool {
			return f.Request != nil && strings.Contains(f.Request.URL, t)
		}, nil
	}
}

func (p *parser) regexAtom(op string, field func(*flow.Flow) string) (Predicate, error) {
	arg, err := p.next()
	if err != nil {
		return nil, fmt.Errorf("%s needs a pattern", op)
	}
	re, err := regexp.Compile(arg)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v", op, arg, err)
	}
	return func(f *flow.Flow) bool { return re.MatchString(field(f)) }, nil
}
