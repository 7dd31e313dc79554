// Package compileerr defines the typed error catalogue raised across the
// compile pipeline (markup parsing through encoding). Every kind carries
// enough context to reproduce the failure without re-running the compile.
package compileerr

import "fmt"

// Stage identifies which state of the per-output render state machine
// produced an error, so the CLI's debug mode can report where things broke.
type Stage string

const (
	StageParse      Stage = "parse"
	StageProbe      Stage = "probe"
	StageResolve    Stage = "resolve_expressions"
	StageRasterize  Stage = "rasterize"
	StageBuildGraph Stage = "build_graph"
	StageEncode     Stage = "encode"
	StageReapCache  Stage = "reap_cache"
)

// ParseError reports a malformed markup document. Line and Col are 1-based
// and zero when the underlying tokenizer didn't report a position, in which
// case Snippet holds a short excerpt around the failure instead.
type ParseError struct {
	Line    int
	Col     int
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("parse error near %q: %s", e.Snippet, e.Message)
}

// UnknownReference reports a fragment pointing at an asset, container, or
// app that does not exist in the project.
type UnknownReference struct {
	FragmentID string
	TargetName string
	TargetKind string // "asset", "container", or "app"
}

func (e *UnknownReference) Error() string {
	return fmt.Sprintf("fragment %q references unknown %s %q", e.FragmentID, e.TargetKind, e.TargetName)
}

// AssetMissing reports that an asset's resolved path does not exist on disk.
type AssetMissing struct {
	Path string
}

func (e *AssetMissing) Error() string {
	return fmt.Sprintf("asset missing: %s", e.Path)
}

// AssetProbeFailed reports that the external probe tool could not be run or
// returned output the compiler could not interpret.
type AssetProbeFailed struct {
	Path    string
	Message string
}

func (e *AssetProbeFailed) Error() string {
	return fmt.Sprintf("probe failed for %s: %s", e.Path, e.Message)
}

// ExpressionParseError reports a calc() expression that failed to parse.
type ExpressionParseError struct {
	Text    string
	Message string
}

func (e *ExpressionParseError) Error() string {
	return fmt.Sprintf("expression parse error in %q: %s", e.Text, e.Message)
}

// UnresolvableExpression reports that a fixed point could not be reached
// during the two-pass resolution of forward-referencing expressions.
type UnresolvableExpression struct {
	FragmentIDs []string
}

func (e *UnresolvableExpression) Error() string {
	return fmt.Sprintf("unresolvable expressions remain for fragments: %v", e.FragmentIDs)
}

// ExpressionEvalError reports a failure evaluating an already-parsed
// expression: an unknown fragment id, unknown property path, or division
// by zero.
type ExpressionEvalError struct {
	Text    string
	Message string
}

func (e *ExpressionEvalError) Error() string {
	return fmt.Sprintf("expression eval error in %q: %s", e.Text, e.Message)
}

// DurationOverflow reports a fragment whose trim-start + duration exceeds
// the source asset's available duration.
type DurationOverflow struct {
	FragmentID string
	RequestedMs int64
	AvailableMs int64
}

func (e *DurationOverflow) Error() string {
	return fmt.Sprintf("fragment %q requests %dms but only %dms is available", e.FragmentID, e.RequestedMs, e.AvailableMs)
}

// InvalidFilterInputs reports a filter-graph construction error, such as
// xfade given an audio label or concat given zero inputs.
type InvalidFilterInputs struct {
	FilterName string
	Details    string
}

func (e *InvalidFilterInputs) Error() string {
	return fmt.Sprintf("invalid inputs for %s: %s", e.FilterName, e.Details)
}

// AppRenderTimeout reports that an App's readiness flag never became true
// within the rasterizer's hard timeout.
type AppRenderTimeout struct {
	AppID string
}

func (e *AppRenderTimeout) Error() string {
	return fmt.Sprintf("app %q did not signal render completion in time", e.AppID)
}

// ContainerRenderFailed reports a browser-side failure rasterizing a
// container (navigation error, script injection error, screenshot error).
type ContainerRenderFailed struct {
	ContainerID string
	Message     string
}

func (e *ContainerRenderFailed) Error() string {
	return fmt.Sprintf("container %q render failed: %s", e.ContainerID, e.Message)
}

// EncoderNotFound reports that the configured encoder binary could not be
// located on PATH.
type EncoderNotFound struct {
	Binary string
}

func (e *EncoderNotFound) Error() string {
	return fmt.Sprintf("encoder binary %q not found", e.Binary)
}

// EncoderFailed reports a non-zero exit from the encoder subprocess.
type EncoderFailed struct {
	ExitCode int
	Tail     string
}

func (e *EncoderFailed) Error() string {
	return fmt.Sprintf("encoder exited %d: %s", e.ExitCode, e.Tail)
}

// Cancelled reports that the render was aborted by external cancellation.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "cancelled" }

// CompileError wraps an underlying error kind with the state-machine stage
// it occurred in. The CLI's normal mode prints Error() (the stage followed
// by Underlying's message), with no further hint; debug mode prints the
// full chain via Unwrap.
type CompileError struct {
	Stage      Stage
	Underlying error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Underlying)
}

func (e *CompileError) Unwrap() error { return e.Underlying }

// Wrap produces a CompileError for the given stage, or nil if err is nil.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &CompileError{Stage: stage, Underlying: err}
}
