package markup

import (
	"strconv"
	"strings"
)

// Style is a resolved property dictionary for one element. Only the
// hyphen-prefixed compiler-meaningful properties and the one standard
// property the compiler also interprets (filter) are kept; everything
// else is dropped during cascade since it has no effect on the compile.
type Style map[string]string

// Get returns a property value and whether it was set.
func (s Style) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// GetOr returns a property value or a default.
func (s Style) GetOr(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

// meaningfulProps is the allow-list of properties the cascade keeps;
// everything else in the stylesheet is noise to the compiler per
// spec.md §4.1 ("only non-standard hyphen-prefixed properties ... are
// meaningful; standard properties are ignored").
var meaningfulProps = map[string]bool{
	"-object-fit":            true,
	"-offset-start":          true,
	"-offset-end":            true,
	"-duration":              true,
	"-trim-start":            true,
	"-overlay-left":          true,
	"-overlay-start-z-index": true,
	"-overlay-end-z-index":   true,
	"-transition-start":      true,
	"-transition-end":        true,
	"-chromakey":             true,
	"filter":                 true,
}

// rule is one parsed CSS rule: a selector plus its declarations, in
// source order. Specificity is resolved the simplified way spec.md
// describes: class/id/tag selectors with last-declaration-wins cascade,
// no combinators or pseudo-selectors.
type rule struct {
	selectorKind byte // 'c' class, 'i' id, 't' tag
	selectorName string
	decls        []Attr
}

// Stylesheet is an ordered list of parsed rules.
type Stylesheet struct {
	rules []rule
}

// ParseStylesheet parses the free-form CSS text from the document's
// <style> blocks into an ordered rule list. It supports exactly the
// subset spec.md needs: single class (.name), id (#name), or bare tag
// selectors, each with a "{ prop: value; ... }" declaration block.
func ParseStylesheet(css string) (*Stylesheet, error) {
	sheet := &Stylesheet{}
	i := 0
	for i < len(css) {
		openBrace := strings.IndexByte(css[i:], '{')
		if openBrace < 0 {
			break
		}
		selectorText := strings.TrimSpace(css[i : i+openBrace])
		closeBrace := strings.IndexByte(css[i+openBrace:], '}')
		if closeBrace < 0 {
			break
		}
		body := css[i+openBrace+1 : i+openBrace+closeBrace]
		i = i + openBrace + closeBrace + 1

		if selectorText == "" {
			continue
		}
		for _, sel := range strings.Split(selectorText, ",") {
			sel = strings.TrimSpace(sel)
			if sel == "" {
				continue
			}
			r := rule{decls: parseDecls(body)}
			switch sel[0] {
			case '.':
				r.selectorKind = 'c'
				r.selectorName = sel[1:]
			case '#':
				r.selectorKind = 'i'
				r.selectorName = sel[1:]
			default:
				r.selectorKind = 't'
				r.selectorName = sel
			}
			sheet.rules = append(sheet.rules, r)
		}
	}
	return sheet, nil
}

func parseDecls(body string) []Attr {
	var out []Attr
	for _, stmt := range strings.Split(body, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		colon := strings.IndexByte(stmt, ':')
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(stmt[:colon])
		val := strings.TrimSpace(stmt[colon+1:])
		out = append(out, Attr{Key: key, Val: val})
	}
	return out
}

// ResolveStyles computes the resolved Style for every node in the
// document's tree, applying tag selectors, then class selectors, then id
// selectors, then inline style, with later declarations of equal
// specificity overriding earlier ones (last-declaration-wins cascade).
func ResolveStyles(doc *Document, sheet *Stylesheet) {
	var walk func(*Node)
	walk = func(n *Node) {
		doc.Styles[n] = resolveOne(n, sheet)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(doc.Root)
}

func resolveOne(n *Node, sheet *Stylesheet) Style {
	result := Style{}
	apply := func(decls []Attr) {
		for _, d := range decls {
			if meaningfulProps[d.Key] {
				result[d.Key] = d.Val
			}
		}
	}

	for _, r := range sheet.rules {
		if r.selectorKind == 't' && r.selectorName == n.Tag {
			apply(r.decls)
		}
	}
	classes := n.Class()
	for _, r := range sheet.rules {
		if r.selectorKind != 'c' {
			continue
		}
		for _, c := range classes {
			if c == r.selectorName {
				apply(r.decls)
			}
		}
	}
	if id, ok := n.Attr("id"); ok {
		for _, r := range sheet.rules {
			if r.selectorKind == 'i' && r.selectorName == id {
				apply(r.decls)
			}
		}
	}
	if inline, ok := n.Attr("style"); ok {
		apply(parseDecls(inline))
	}
	return result
}

// ParsePx parses a "<n>px" (or bare numeric) value, used for filter:
// blur(<px>) per spec.md §6.
func ParsePx(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseBlurFilter extracts the pixel argument from a "blur(<px>)" filter
// value, returning ok=false if the value isn't a blur() function.
func ParseBlurFilter(filterVal string) (float64, bool) {
	s := strings.TrimSpace(filterVal)
	if !strings.HasPrefix(s, "blur(") || !strings.HasSuffix(s, ")") {
		return 0, false
	}
	return ParsePx(s[len("blur(") : len(s)-1])
}
