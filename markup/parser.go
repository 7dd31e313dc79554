package markup

import (
	"strings"

	"golang.org/x/net/html"

	"stsc/compileerr"
)

// voidElements never have a matching end tag in this dialect; their
// Tokenizer SelfClosingTagToken / StartTagToken is treated as a leaf.
var voidElements = map[string]bool{
	"br": true, "img": true, "hr": true, "meta": true, "link": true, "input": true,
}

// Parse tokenizes a project document into a Node tree, preserving source
// order of siblings and attributes. It deliberately bypasses
// golang.org/x/net/html's full HTML5 tree-construction algorithm (which
// would foster-parent or relocate elements it doesn't recognize) in favor
// of a plain stack-based builder over the low-level Tokenizer, since the
// document format is only a superset of HTML containing custom element
// names the standard algorithm was never designed around.
func Parse(src []byte) (*Node, error) {
	z := html.NewTokenizer(strings.NewReader(string(src)))
	root := &Node{Tag: "#root"}
	stack := []*Node{root}
	offset := 0

	line, col := 1, 1
	advance := func(n int) {
		for i := 0; i < n; i++ {
			if offset+i < len(src) && src[offset+i] == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
		offset += n
	}
	// appendRaw records raw source text in the InnerHTML of every element
	// still open, so each one captures its full child markup verbatim.
	appendRaw := func(raw []byte) {
		for _, n := range stack {
			n.InnerHTML += string(raw)
		}
	}

	for {
		tt := z.Next()
		raw := z.Raw()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && err.Error() != "EOF" {
				return nil, &compileerr.ParseError{Line: line, Col: col, Message: err.Error()}
			}
			if len(stack) != 1 {
				unclosed := stack[len(stack)-1]
				return nil, &compileerr.ParseError{Line: line, Col: col, Message: "unclosed element <" + unclosed.Tag + ">"}
			}
			return root, nil

		case html.TextToken:
			top := stack[len(stack)-1]
			top.Text += string(z.Text())
			appendRaw(raw)
			advance(len(raw))

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			node := &Node{Tag: string(name), Line: line, Col: col}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				node.Attrs = append(node.Attrs, Attr{Key: string(key), Val: string(val)})
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, node)
			appendRaw(raw)
			advance(len(raw))
			if tt == html.StartTagToken && !voidElements[node.Tag] {
				stack = append(stack, node)
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			advance(len(raw))
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			// Pop until we find the matching open element, tolerating
			// stray/mismatched close tags the way a permissive HTML
			// dialect must.
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Tag == tag {
					stack = stack[:i]
					break
				}
			}
			appendRaw(raw)

		case html.CommentToken, html.DoctypeToken:
			appendRaw(raw)
			advance(len(raw))
		}
	}
}

// ParseDocument parses src and resolves every element's style, returning
// the ready-to-use Document.
func ParseDocument(src []byte) (*Document, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	sheet, err := ParseStylesheet(collectStyleText(root))
	if err != nil {
		return nil, err
	}
	doc := &Document{Root: root, Styles: map[*Node]Style{}}
	ResolveStyles(doc, sheet)
	return doc, nil
}

// collectStyleText concatenates every <style> element's text content in
// document order, matching the "at most one style block" contract loosely
// (multiple are simply concatenated, last-declaration-wins handles the
// rest during cascade).
func collectStyleText(root *Node) string {
	var b strings.Builder
	for _, s := range root.Find("style") {
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}
