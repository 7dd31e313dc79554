package markup

import "testing"

func TestParseBasicTree(t *testing.T) {
	src := []byte(`<project><assets><asset data-name="clip" data-path="a.mp4"></asset></assets></project>`)
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	projects := root.Find("project")
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	assets := root.Find("asset")
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	name, ok := assets[0].Attr("data-name")
	if !ok || name != "clip" {
		t.Fatalf("expected data-name=clip, got %q ok=%v", name, ok)
	}
}

func TestParseAttributeOrderPreserved(t *testing.T) {
	src := []byte(`<fragment data-asset="a" data-id="f1" class="big"></fragment>`)
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	frag := root.Find("fragment")[0]
	want := []string{"data-asset", "data-id", "class"}
	if len(frag.Attrs) != len(want) {
		t.Fatalf("expected %d attrs, got %d", len(want), len(frag.Attrs))
	}
	for i, k := range want {
		if frag.Attrs[i].Key != k {
			t.Errorf("attr %d: expected %q, got %q", i, k, frag.Attrs[i].Key)
		}
	}
}

func TestUnclosedElementReportsParseError(t *testing.T) {
	src := []byte(`<project><assets>`)
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected parse error for unclosed elements")
	}
}

func TestContainerInnerHTMLCapturesChildrenVerbatim(t *testing.T) {
	src := []byte(`<container data-id="title"><h1 class="big">Hello</h1></container>`)
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := root.Find("container")[0]
	if want := `<h1 class="big">Hello</h1>`; c.InnerHTML != want {
		t.Fatalf("expected InnerHTML %q, got %q", want, c.InnerHTML)
	}
}

func TestStyleCascadeLastDeclarationWins(t *testing.T) {
	css := `
.big { -duration: 1000; }
.big { -duration: 2000; }
#hero { -object-fit: cover; }
`
	sheet, err := ParseStylesheet(css)
	if err != nil {
		t.Fatalf("ParseStylesheet: %v", err)
	}
	src := []byte(`<fragment id="hero" class="big" style="-overlay-left: -500;"></fragment>`)
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	doc := &Document{Root: root, Styles: map[*Node]Style{}}
	ResolveStyles(doc, sheet)

	frag := root.Find("fragment")[0]
	style := doc.StyleOf(frag)
	if style.GetOr("-duration", "") != "2000" {
		t.Errorf("expected last class declaration (2000) to win, got %q", style.GetOr("-duration", ""))
	}
	if style.GetOr("-object-fit", "") != "cover" {
		t.Errorf("expected id selector to apply, got %q", style.GetOr("-object-fit", ""))
	}
	if style.GetOr("-overlay-left", "") != "-500" {
		t.Errorf("expected inline style to apply, got %q", style.GetOr("-overlay-left", ""))
	}
}

func TestParseBlurFilter(t *testing.T) {
	px, ok := ParseBlurFilter("blur(12px)")
	if !ok || px != 12 {
		t.Errorf("expected 12px, got %v ok=%v", px, ok)
	}
	_, ok = ParseBlurFilter("none")
	if ok {
		t.Error("expected ok=false for non-blur filter value")
	}
}
