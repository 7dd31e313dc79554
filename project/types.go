// Package project holds the typed Project aggregate (C4's output) and the
// builder that assembles it from a parsed markup.Document and probe
// results.
package project

import "stsc/expr"

// AssetKind classifies a referenced media file.
type AssetKind string

const (
	KindVideo AssetKind = "video"
	KindImage AssetKind = "image"
	KindAudio AssetKind = "audio"
)

// Asset is an external media file referenced by a stable name within a
// Project. It is immutable once probed.
type Asset struct {
	Name       string
	Path       string
	Kind       AssetKind
	DurationMs int64
	Width      int
	Height     int
	Rotation   int // one of 0, 90, 180, 270
	HasVideo   bool
	HasAudio   bool
}

// Output is a named render target.
type Output struct {
	Name       string
	Path       string
	Fps        int
	Width      int
	Height     int
	FfmpegArgs string // preset name, or "" for the default preset
}

// ContainSubMode selects how a "contain" object-fit fills the remaining
// frame outside the fitted content.
type ContainSubMode string

const (
	SubModeNone      ContainSubMode = ""
	SubModeLetterbox ContainSubMode = "letterbox"
	SubModeAmbient   ContainSubMode = "ambient"
	SubModePillarbox ContainSubMode = "pillarbox"
)

// AmbientParams carries the ambient sub-mode's blurred-backdrop tuning.
type AmbientParams struct {
	Blur       float64
	Brightness float64
	Saturation float64
}

// PillarboxParams carries the pillarbox sub-mode's fill color.
type PillarboxParams struct {
	Color string
}

// ObjectFit selects how a fragment's source is fit into the output frame.
type ObjectFit string

const (
	FitCover   ObjectFit = "cover"
	FitContain ObjectFit = "contain"
)

// Chromakey describes an optional colorkey filter applied to a fragment.
type Chromakey struct {
	Enabled    bool
	Color      string
	Similarity float64
	Blend      float64
}

// Transition names a transition-in/out effect and its duration.
type Transition struct {
	Name       string
	DurationMs int64
}

// Timing is a tagged value: either an already-known literal millisecond
// value or an unevaluated compiled expression, matching the "Literal |
// Expr" variant spec.md's design notes call for in place of mutable
// fields filled in during multi-pass resolution. Percent is set when the
// raw value was "100%", meaning "rest of the source asset's duration".
type Timing struct {
	HasLiteral bool
	LiteralMs  int64
	Percent    bool
	Expr       *expr.Compiled
}

// ReferentKind distinguishes what a Fragment points at.
type ReferentKind string

const (
	ReferentAsset     ReferentKind = "asset"
	ReferentContainer ReferentKind = "container"
	ReferentApp       ReferentKind = "app"
)

// FragmentSpec is a Fragment as parsed, before expression resolution.
// Immutable; the Timeline Compiler derives a FragmentResolved from it.
type FragmentSpec struct {
	ID   string
	Kind ReferentKind
	// Referent is the asset name, container id, or app id, depending on Kind.
	Referent string

	Enabled bool

	TrimStartMs int64
	Duration    Timing
	Start       Timing // zero value means "absent": chain from previous fragment's end

	ObjectFit ObjectFit
	Ambient   AmbientParams
	Pillarbox PillarboxParams

	OverlapLeftMs int64

	TransitionIn  Transition
	TransitionOut Transition

	ZIndex int

	Chromakey Chromakey
	BlurSigma float64

	// InputIndex is the stable index assigned on first use of Referent in
	// sequence order (spec.md invariant 5). -1 until assigned.
	InputIndex int
}

// FragmentResolved is a FragmentSpec plus its canonical resolved timing,
// produced by the Timeline Compiler's two-pass resolution.
type FragmentResolved struct {
	Spec       *FragmentSpec
	StartMs    int64
	DurationMs int64
	EndMs      int64
}

// Sequence is an ordered list of fragments sharing one timeline.
type Sequence struct {
	ID        string
	Fragments []*FragmentSpec
}

// Container is an HTML subtree rasterized to a transparent PNG.
type Container struct {
	ID      string
	InnerHTML string
	CSS     string // the project's <style> contents
	PNGPath string // not set by the render pipeline, which tracks PNG paths separately
}

// App points at an external built SPA rasterized after a readiness signal.
type App struct {
	ID         string
	SourceDir  string
	Params     map[string]string
	Title      string
	Date       string
	Tags       []string
	PNGPath    string // not set by the render pipeline, which tracks PNG paths separately
}

// UploadConfig is carried on Project but never acted on by the compiler
// (upload/auth flows are an external collaborator per spec.md §1); it is
// parsed and round-tripped so the contract has a concrete shape.
type UploadConfig struct {
	Platform   string
	AuthPath   string // .auth/<name>.json, never opened by the compiler
	OutputName string
}

// Project is the root aggregate describing one renderable video.
type Project struct {
	Dir  string // project directory, for resolving relative paths
	CSS  string

	Assets     map[string]*Asset
	Outputs    map[string]*Output
	Sequences  []*Sequence
	Containers map[string]*Container
	Apps       map[string]*App

	FfmpegPresets map[string]string
	Uploads       map[string]*UploadConfig

	// The expression context is not stored here: the Timeline Compiler
	// asks NewExpressionContext for a fresh one per output's compile, so
	// no state is carried across outputs (spec.md §5).
}

// NewExpressionContext returns an empty per-compile expression context.
func (p *Project) NewExpressionContext() *expr.Context {
	return &expr.Context{Fragments: map[string]expr.FieldTime{}}
}
