package timeline

import (
	"strings"
	"testing"

	"stsc/expr"
	"stsc/project"
	"stsc/stream"
)

type stubRasterized struct {
	paths map[string]string
}

func (s stubRasterized) PNGPath(kind project.ReferentKind, id string) (string, bool) {
	p, ok := s.paths[string(kind)+":"+id]
	return p, ok
}

func newProject() *project.Project {
	return &project.Project{
		Assets:     map[string]*project.Asset{},
		Outputs:    map[string]*project.Output{},
		Containers: map[string]*project.Container{},
		Apps:       map[string]*project.App{},
	}
}

// TestCompileSingleClipCover exercises S1: a single full-duration clip with
// cover fit, asserting the filter graph performs fps, scale-to-fill, crop,
// and terminates at the reserved outv/outa labels. The exact fresh-label
// numbering and single-filter-per-node granularity intentionally diverge
// from spec.md's illustrative comma-chained rendering, per the append-only
// DAG redesign (spec.md §9).
func TestCompileSingleClipCover(t *testing.T) {
	proj := newProject()
	proj.Assets["clip"] = &project.Asset{Name: "clip", Path: "a.mp4", Kind: project.KindVideo, DurationMs: 5000, Width: 1920, Height: 1080, HasVideo: true, HasAudio: true}
	proj.Outputs["main"] = &project.Output{Name: "main", Fps: 30, Width: 1920, Height: 1080}
	proj.Sequences = []*project.Sequence{
		{Fragments: []*project.FragmentSpec{
			{ID: "f0", Kind: project.ReferentAsset, Referent: "clip", Enabled: true,
				Duration: project.Timing{HasLiteral: true, LiteralMs: 5000}, ObjectFit: project.FitCover, InputIndex: 0},
		}},
	}

	dag := stream.New()
	images, err := Compile(dag, proj, proj.Outputs["main"], stubRasterized{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected no image inputs, got %v", images)
	}
	graph := dag.Render()
	for _, want := range []string{"fps=30", "scale=1920:1080:force_original_aspect_ratio=increase", "crop=1920:1080", "[outv]", "[outa]"} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q: %s", want, graph)
		}
	}
}

// TestCompileConcatTwoClips exercises S2: two zero-overlap fragments join
// via a single concat filter.
func TestCompileConcatTwoClips(t *testing.T) {
	proj := newProject()
	proj.Assets["a"] = &project.Asset{Name: "a", Path: "a.mp4", Kind: project.KindVideo, DurationMs: 3000, HasVideo: true, HasAudio: true}
	proj.Assets["b"] = &project.Asset{Name: "b", Path: "b.mp4", Kind: project.KindVideo, DurationMs: 4000, HasVideo: true, HasAudio: true}
	proj.Outputs["main"] = &project.Output{Name: "main", Fps: 30, Width: 1280, Height: 720}
	proj.Sequences = []*project.Sequence{
		{Fragments: []*project.FragmentSpec{
			{ID: "f0", Kind: project.ReferentAsset, Referent: "a", Enabled: true, Duration: project.Timing{HasLiteral: true, LiteralMs: 3000}, InputIndex: 0},
			{ID: "f1", Kind: project.ReferentAsset, Referent: "b", Enabled: true, Duration: project.Timing{HasLiteral: true, LiteralMs: 4000}, InputIndex: 1},
		}},
	}

	dag := stream.New()
	if _, err := Compile(dag, proj, proj.Outputs["main"], stubRasterized{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	graph := dag.Render()
	if !strings.Contains(graph, "concat=n=2:v=1:a=1") {
		t.Errorf("expected a single n=2 concat, got %s", graph)
	}
}

// TestCompileCrossFade exercises S3: a negative overlap-left joins via
// xfade/acrossfade with duration=1s, offset=2s.
func TestCompileCrossFade(t *testing.T) {
	proj := newProject()
	proj.Assets["a"] = &project.Asset{Name: "a", Path: "a.mp4", Kind: project.KindVideo, DurationMs: 3000, HasVideo: true, HasAudio: true}
	proj.Assets["b"] = &project.Asset{Name: "b", Path: "b.mp4", Kind: project.KindVideo, DurationMs: 3000, HasVideo: true, HasAudio: true}
	proj.Outputs["main"] = &project.Output{Name: "main", Fps: 30, Width: 1280, Height: 720}
	proj.Sequences = []*project.Sequence{
		{Fragments: []*project.FragmentSpec{
			{ID: "f0", Kind: project.ReferentAsset, Referent: "a", Enabled: true, Duration: project.Timing{HasLiteral: true, LiteralMs: 3000}, InputIndex: 0},
			{ID: "f1", Kind: project.ReferentAsset, Referent: "b", Enabled: true, Duration: project.Timing{HasLiteral: true, LiteralMs: 3000}, OverlapLeftMs: -1000, InputIndex: 1},
		}},
	}

	dag := stream.New()
	if _, err := Compile(dag, proj, proj.Outputs["main"], stubRasterized{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	graph := dag.Render()
	if !strings.Contains(graph, "xfade=duration=1:offset=2:transition=fade") {
		t.Errorf("expected xfade at offset=2 duration=1, got %s", graph)
	}
	if !strings.Contains(graph, "acrossfade=d=1") {
		t.Errorf("expected acrossfade d=1, got %s", graph)
	}
}

// TestCompileContainerOverlay exercises S5: a z-index>0 container fragment
// composites onto the base video with a between(t,start,end) enable window,
// using stubRasterized to stand in for the browser rasterizer.
func TestCompileContainerOverlay(t *testing.T) {
	proj := newProject()
	proj.Assets["clip"] = &project.Asset{Name: "clip", Path: "a.mp4", Kind: project.KindVideo, DurationMs: 5000, HasVideo: true, HasAudio: true}
	proj.Containers["badge"] = &project.Container{ID: "badge", InnerHTML: "<div>hi</div>"}
	proj.Outputs["main"] = &project.Output{Name: "main", Fps: 30, Width: 1280, Height: 720}
	proj.Sequences = []*project.Sequence{
		{Fragments: []*project.FragmentSpec{
			{ID: "f0", Kind: project.ReferentAsset, Referent: "clip", Enabled: true,
				Duration: project.Timing{HasLiteral: true, LiteralMs: 5000}, InputIndex: 0},
			{ID: "f1", Kind: project.ReferentContainer, Referent: "badge", Enabled: true,
				Start:    project.Timing{HasLiteral: true, LiteralMs: 1000},
				Duration: project.Timing{HasLiteral: true, LiteralMs: 2000}, ZIndex: 1, InputIndex: 1},
		}},
	}

	rasterized := stubRasterized{paths: map[string]string{"container:badge": "/tmp/badge.png"}}
	dag := stream.New()
	images, err := Compile(dag, proj, proj.Outputs["main"], rasterized)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(images) != 1 || images[0].Path != "/tmp/badge.png" {
		t.Fatalf("expected one image input for the rasterized container, got %v", images)
	}
	graph := dag.Render()
	if !strings.Contains(graph, "overlay=") {
		t.Errorf("expected an overlay filter, got %s", graph)
	}
	if !strings.Contains(graph, "enable='between(t,") {
		t.Errorf("expected a between(t,...) enable window, got %s", graph)
	}
}

// TestResolveForwardReference exercises S4: intro.duration references
// ending.time.start, resolved once ending's literal start is known.
func TestResolveForwardReference(t *testing.T) {
	compiled, err := expr.Parse("calc(url(#ending.time.start))")
	if err != nil {
		t.Fatalf("compiling expression: %v", err)
	}

	assets := map[string]*project.Asset{}
	seq := &project.Sequence{Fragments: []*project.FragmentSpec{
		{ID: "intro", Kind: project.ReferentAsset, Referent: "x", Enabled: true, Duration: project.Timing{Expr: compiled}, InputIndex: 0},
		{ID: "ending", Kind: project.ReferentAsset, Referent: "x", Enabled: true,
			Start:    project.Timing{HasLiteral: true, LiteralMs: 8000},
			Duration: project.Timing{HasLiteral: true, LiteralMs: 2000}, InputIndex: 0},
	}}
	assets["x"] = &project.Asset{Name: "x", DurationMs: 20000, HasVideo: true}

	proj := newProject()
	ctx := proj.NewExpressionContext()
	resolved, err := resolveSequence(seq, assets, ctx)
	if err != nil {
		t.Fatalf("resolveSequence: %v", err)
	}
	if resolved[0].DurationMs != 8000 {
		t.Errorf("expected intro duration 8000, got %d", resolved[0].DurationMs)
	}
	if resolved[1].StartMs != 8000 || resolved[1].EndMs != 10000 {
		t.Errorf("unexpected ending resolution: %+v", resolved[1])
	}
}

