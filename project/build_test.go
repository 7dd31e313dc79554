package project

import (
	"context"
	"testing"

	"stsc/markup"
	"stsc/probe"
)

type stubProber struct {
	metadata probe.Metadata
}

func (s stubProber) Probe(ctx context.Context, path string) (probe.Metadata, error) {
	return s.metadata, nil
}

func parseProjectDoc(t *testing.T, src string) *markup.Document {
	t.Helper()
	doc, err := markup.ParseDocument([]byte(src))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	return doc
}

func TestBuildAssignsDenseInputIndicesInFirstUseOrder(t *testing.T) {
	src := `<project>
  <assets>
    <asset data-name="a" data-path="a.mp4"></asset>
    <asset data-name="b" data-path="b.mp4"></asset>
  </assets>
  <outputs>
    <output data-name="main" data-fps="30" data-resolution="1920x1080"></output>
  </outputs>
  <sequence data-name="s1">
    <fragment data-asset="b" style="-duration: 1000ms"></fragment>
    <fragment data-asset="a" style="-duration: 1000ms"></fragment>
    <fragment data-asset="b" style="-duration: 1000ms"></fragment>
  </sequence>
</project>`
	doc := parseProjectDoc(t, src)

	proj, err := Build(context.Background(), doc, stubProber{metadata: probe.Metadata{DurationMs: 5000, HasVideo: true}}, "/tmp/proj")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(proj.Sequences) != 1 || len(proj.Sequences[0].Fragments) != 3 {
		t.Fatalf("unexpected sequence shape: %+v", proj.Sequences)
	}
	frags := proj.Sequences[0].Fragments
	if frags[0].InputIndex != 0 {
		t.Errorf("first use of %q should get index 0, got %d", "b", frags[0].InputIndex)
	}
	if frags[1].InputIndex != 1 {
		t.Errorf("first use of %q should get index 1, got %d", "a", frags[1].InputIndex)
	}
	if frags[2].InputIndex != 0 {
		t.Errorf("second use of %q should reuse index 0, got %d", "b", frags[2].InputIndex)
	}
}

func TestBuildRejectsFragmentWithMultipleReferents(t *testing.T) {
	src := `<project>
  <assets><asset data-name="a" data-path="a.mp4"></asset></assets>
  <outputs><output data-name="main" data-fps="30" data-resolution="1920x1080"></output></outputs>
  <sequence data-name="s1">
    <fragment data-asset="a" data-container="c1" style="-duration: 1000ms"></fragment>
  </sequence>
</project>`
	doc := parseProjectDoc(t, src)

	_, err := Build(context.Background(), doc, stubProber{metadata: probe.Metadata{DurationMs: 5000}}, "/tmp/proj")
	if err == nil {
		t.Fatal("expected an error for a fragment with two referents")
	}
}

func TestBuildRejectsUnknownReference(t *testing.T) {
	src := `<project>
  <outputs><output data-name="main" data-fps="30" data-resolution="1920x1080"></output></outputs>
  <sequence data-name="s1">
    <fragment data-asset="missing" style="-duration: 1000ms"></fragment>
  </sequence>
</project>`
	doc := parseProjectDoc(t, src)

	_, err := Build(context.Background(), doc, stubProber{}, "/tmp/proj")
	if err == nil {
		t.Fatal("expected UnknownReference error")
	}
}

func TestBuildDerivesDurationFromOffsetEnd(t *testing.T) {
	src := `<project>
  <assets><asset data-name="a" data-path="a.mp4"></asset></assets>
  <outputs><output data-name="main" data-fps="30" data-resolution="1920x1080"></output></outputs>
  <sequence data-name="s1">
    <fragment data-asset="a" style="-offset-start: 500ms; -offset-end: 2000ms"></fragment>
  </sequence>
</project>`
	doc := parseProjectDoc(t, src)

	proj, err := Build(context.Background(), doc, stubProber{metadata: probe.Metadata{DurationMs: 5000}}, "/tmp/proj")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	frag := proj.Sequences[0].Fragments[0]
	if !frag.Duration.HasLiteral || frag.Duration.LiteralMs != 1500 {
		t.Fatalf("expected derived duration 1500ms, got %+v", frag.Duration)
	}
}

func TestBuildDefaultsDurationToPercent(t *testing.T) {
	src := `<project>
  <assets><asset data-name="a" data-path="a.mp4"></asset></assets>
  <outputs><output data-name="main" data-fps="30" data-resolution="1920x1080"></output></outputs>
  <sequence data-name="s1">
    <fragment data-asset="a"></fragment>
  </sequence>
</project>`
	doc := parseProjectDoc(t, src)

	proj, err := Build(context.Background(), doc, stubProber{metadata: probe.Metadata{DurationMs: 5000}}, "/tmp/proj")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	frag := proj.Sequences[0].Fragments[0]
	if !frag.Duration.Percent {
		t.Fatalf("expected a percent duration by default, got %+v", frag.Duration)
	}
}
