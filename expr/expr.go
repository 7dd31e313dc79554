// Package expr implements the tiny calc() expression language used for
// fragment timing: literals with s/ms unit suffixes, url(#id.path)
// fragment-data references, the four binary arithmetic operators, unary
// minus, and parentheses. All results are in milliseconds.
package expr

import (
	"fmt"
	"strconv"
	"strings"

	"stsc/compileerr"
)

// FieldTime holds the resolved timing of one fragment, the only record
// shape a dotted property path can navigate into (time.start, time.end,
// time.duration).
type FieldTime struct {
	StartMs    int64
	EndMs      int64
	DurationMs int64
}

// Context maps fragment id to its resolved timing, consulted while
// evaluating url(#id.a.b.c) references.
type Context struct {
	Fragments map[string]FieldTime
}

// Compiled is a calc() expression with its references already lifted out
// as flat variable names, ready for repeated evaluation against different
// contexts.
type Compiled struct {
	source string   // original calc(...) text, for error messages
	expr   string   // rewritten arithmetic expression, ready for the parser
	refs   []ref    // in left-to-right order, one per url(#...) occurrence
}

type ref struct {
	varName   string
	fragID    string
	path      []string
}

// IsCalc reports whether a raw attribute value is a calc(...) expression
// rather than a literal (e.g. "100%" or "1500").
func IsCalc(raw string) bool {
	s := strings.TrimSpace(raw)
	return strings.HasPrefix(s, "calc(") && strings.HasSuffix(s, ")")
}

// Parse compiles a calc(...) expression: it strips the calc(...) wrapper,
// rewrites each url(#id.a.b.c) into a flat identifier, converts unit
// suffixes to millisecond literals, and validates the remaining arithmetic
// parses.
func Parse(text string) (*Compiled, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "calc(") || !strings.HasSuffix(s, ")") {
		return nil, &compileerr.ExpressionParseError{Text: text, Message: "expected calc(...) wrapper"}
	}
	inner := s[len("calc(") : len(s)-1]

	c := &Compiled{source: text}
	rewritten, err := c.rewriteRefs(inner)
	if err != nil {
		return nil, err
	}
	rewritten, err = rewriteUnits(rewritten)
	if err != nil {
		return nil, &compileerr.ExpressionParseError{Text: text, Message: err.Error()}
	}
	c.expr = rewritten

	// Validate it parses once up front so bad expressions fail at parse
	// time rather than silently at every evaluation. Division by zero is
	// left to Evaluate, since it depends on the bound values.
	check := newParser(c.expr, zeroBindings(c.refs))
	check.syntaxOnly = true
	if _, err := check.parseExpr(); err != nil {
		return nil, &compileerr.ExpressionParseError{Text: text, Message: err.Error()}
	}
	return c, nil
}

func zeroBindings(refs []ref) map[string]float64 {
	m := make(map[string]float64, len(refs))
	for _, r := range refs {
		m[r.varName] = 0
	}
	return m
}

// rewriteRefs replaces each url(#frag-id.a.b.c) occurrence with a flat
// variable name frag-id_a_b_c (hyphens in fragment ids are mapped to
// underscores so the result is a valid identifier), recording the
// fragment id and dotted path for later evaluation.
func (c *Compiled) rewriteRefs(s string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		idx := strings.Index(s[i:], "url(#")
		if idx < 0 {
			out.WriteString(s[i:])
			break
		}
		out.WriteString(s[i : i+idx])
		start := i + idx + len("url(#")
		end := strings.IndexByte(s[start:], ')')
		if end < 0 {
			return "", &compileerr.ExpressionParseError{Text: c.source, Message: "unterminated url(#...) reference"}
		}
		refText := s[start : start+end]
		dot := strings.IndexByte(refText, '.')
		if dot < 0 {
			return "", &compileerr.ExpressionParseError{Text: c.source, Message: fmt.Sprintf("malformed reference %q: missing property path", refText)}
		}
		fragID := refText[:dot]
		path := strings.Split(refText[dot+1:], ".")
		varName := sanitizeIdent(fragID)
		for _, p := range path {
			varName += "_" + sanitizeIdent(p)
		}
		c.refs = append(c.refs, ref{varName: varName, fragID: fragID, path: path})
		out.WriteString(varName)
		i = start + end + 1
	}
	return out.String(), nil
}

func sanitizeIdent(s string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(s)
}

// rewriteUnits converts "Ns" suffixed numeric literals to "N*1000" and
// "Nms" suffixed literals to plain "N", canonicalizing every literal to
// milliseconds before arithmetic parsing runs.
func rewriteUnits(s string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		ch := s[i]
		if isDigitStart(s, i) {
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.') {
				j++
			}
			numText := s[i:j]
			if strings.HasPrefix(s[j:], "ms") {
				out.WriteString(numText)
				j += 2
			} else if j < len(s) && s[j] == 's' {
				out.WriteString("(")
				out.WriteString(numText)
				out.WriteString("*1000)")
				j++
			} else {
				out.WriteString(numText)
			}
			i = j
			continue
		}
		out.WriteByte(ch)
		i++
	}
	return out.String(), nil
}

func isDigitStart(s string, i int) bool {
	return isDigit(s[i])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Evaluate resolves every url(#...) reference in the compiled expression
// against ctx and evaluates the resulting arithmetic. The result is in
// milliseconds.
func Evaluate(c *Compiled, ctx *Context) (int64, error) {
	bindings := make(map[string]float64, len(c.refs))
	for _, r := range c.refs {
		data, ok := ctx.Fragments[r.fragID]
		if !ok {
			return 0, &compileerr.ExpressionEvalError{Text: c.source, Message: fmt.Sprintf("unknown fragment id %q", r.fragID)}
		}
		val, err := navigate(data, r.path)
		if err != nil {
			return 0, &compileerr.ExpressionEvalError{Text: c.source, Message: err.Error()}
		}
		bindings[r.varName] = val
	}

	p := newParser(c.expr, bindings)
	result, err := p.parseExpr()
	if err != nil {
		return 0, &compileerr.ExpressionEvalError{Text: c.source, Message: err.Error()}
	}
	return int64(result), nil
}

func navigate(data FieldTime, path []string) (float64, error) {
	if len(path) != 2 || path[0] != "time" {
		return 0, fmt.Errorf("unknown property path %q", strings.Join(path, "."))
	}
	switch path[1] {
	case "start":
		return float64(data.StartMs), nil
	case "end":
		return float64(data.EndMs), nil
	case "duration":
		return float64(data.DurationMs), nil
	default:
		return 0, fmt.Errorf("unknown property path %q", strings.Join(path, "."))
	}
}

// ParseLiteralOrExpr interprets a style-property value that may be a plain
// millisecond integer, a percentage (only "100%" is meaningful, meaning
// "the rest of the source"), or a calc(...) expression. It returns
// (literalMs, isPercent, compiled, error); exactly one of the first three
// is meaningful depending on the returned kind.
func ParseLiteralOrExpr(raw string) (literalMs int64, isPercent bool, compiled *Compiled, err error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false, nil, fmt.Errorf("empty value")
	}
	if strings.HasSuffix(s, "%") {
		return 0, true, nil, nil
	}
	if IsCalc(s) {
		c, err := Parse(s)
		return 0, false, c, err
	}
	if strings.HasSuffix(s, "ms") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "ms"), 64)
		if err != nil {
			return 0, false, nil, fmt.Errorf("invalid ms literal %q: %v", s, err)
		}
		return int64(n), false, nil, nil
	}
	if strings.HasSuffix(s, "s") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil {
			return 0, false, nil, fmt.Errorf("invalid s literal %q: %v", s, err)
		}
		return int64(n * 1000), false, nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, nil, fmt.Errorf("invalid literal %q: %v", s, err)
	}
	return int64(n), false, nil, nil
}
