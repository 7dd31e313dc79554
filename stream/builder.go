package stream

import (
	"fmt"

	"stsc/compileerr"
)

// Stream is a lightweight value wrapping "the current loose end" of a
// partial filter graph: a DAG handle plus the label the next filter
// should read from. Every chained operation mints a new output label on
// the shared DAG and returns a new, otherwise-immutable Stream; the DAG
// itself is the only mutable thing involved.
type Stream struct {
	dag   *DAG
	label Label
}

// Of wraps an existing label (typically a raw input reference) as the
// start of a chain.
func Of(dag *DAG, label Label) Stream { return Stream{dag: dag, label: label} }

// Label returns the stream's current loose-end label.
func (s Stream) Label() Label { return s.label }

func (s Stream) chain1(name string, params ...Param) Stream {
	out := s.dag.freshLabel(s.label.IsAudio)
	s.dag.append(Filter{Inputs: []Label{s.label}, Name: name, Params: params, Outputs: []Label{out}})
	return Stream{dag: s.dag, label: out}
}

// Scale appends a scale filter forcing the exact (w, h) output size.
func (s Stream) Scale(w, h int) Stream {
	return s.chain1("scale", Param{"", fmt.Sprintf("%d:%d", w, h)})
}

// ScaleToFill appends a scale filter that fills (w, h) while preserving
// aspect ratio, the first half of the "cover" fit (paired with a Crop to
// the exact target size).
func (s Stream) ScaleToFill(w, h int) Stream {
	return s.chain1("scale", Param{"", fmt.Sprintf("%d:%d", w, h)}, Param{"force_original_aspect_ratio", "increase"})
}

// ScaleToFit appends a scale filter that fits within (w, h) while
// preserving aspect ratio, used by the "contain" object-fit modes.
func (s Stream) ScaleToFit(w, h int) Stream {
	return s.chain1("scale", Param{"", fmt.Sprintf("%d:%d", w, h)}, Param{"force_original_aspect_ratio", "decrease"})
}

// Fps appends an fps filter retiming the stream to n frames per second.
func (s Stream) Fps(n int) Stream {
	return s.chain1("fps", Param{"", itoa(n)})
}

// Transpose appends a transpose filter; dir is ffmpeg's 0..3 transpose
// direction code. dir 0 (no rotation) is a no-op and is skipped.
func (s Stream) Transpose(dir int) Stream {
	if dir == 0 {
		return s
	}
	return s.chain1("transpose", Param{"", itoa(dir)})
}

// Trim appends trim + setpts=PTS-STARTPTS, resetting the stream's
// presentation timestamps to zero after trimming to [startMs, startMs+durationMs).
func (s Stream) Trim(startMs, durationMs int64) Stream {
	trimName := "trim"
	ptsName := "setpts"
	startParam := "start"
	if s.label.IsAudio {
		trimName = "atrim"
		ptsName = "asetpts"
		startParam = "start"
	}
	trimmed := s.chain1(trimName,
		Param{startParam, msToSeconds(startMs)},
		Param{"duration", msToSeconds(durationMs)},
	)
	return trimmed.chain1(ptsName, Param{"", "PTS-STARTPTS"})
}

// Gblur appends a gblur filter with the given sigma.
func (s Stream) Gblur(sigma float64) Stream {
	return s.chain1("gblur", Param{"sigma", formatFloat(sigma)})
}

// Eq appends an eq filter adjusting contrast/brightness.
func (s Stream) Eq(contrast, brightness float64) Stream {
	return s.chain1("eq", Param{"contrast", formatFloat(contrast)}, Param{"brightness", formatFloat(brightness)})
}

// EqFull appends an eq filter adjusting contrast, brightness, and
// saturation, used by the ambient contain sub-mode's blurred backdrop.
func (s Stream) EqFull(contrast, brightness, saturation float64) Stream {
	return s.chain1("eq",
		Param{"contrast", formatFloat(contrast)},
		Param{"brightness", formatFloat(brightness)},
		Param{"saturation", formatFloat(saturation)},
	)
}

// Crop appends a crop filter to the exact (w, h) size, centered.
func (s Stream) Crop(w, h int) Stream {
	return s.chain1("crop", Param{"", fmt.Sprintf("%d:%d", w, h)})
}

// Pad appends a pad filter centering the current frame within a (w, h)
// canvas filled with color, used by the pillarbox contain sub-mode.
func (s Stream) Pad(w, h int, color string) Stream {
	return s.chain1("pad", Param{"", fmt.Sprintf("%d:%d:(ow-iw)/2:(oh-ih)/2:%s", w, h, color)})
}

// Format appends a format filter forcing the given pixel format.
func (s Stream) Format(pixFmt string) Stream {
	return s.chain1("format", Param{"", pixFmt})
}

// FadeDirection selects whether Fade appends a fade-in or fade-out.
type FadeDirection string

const (
	FadeIn  FadeDirection = "in"
	FadeOut FadeDirection = "out"
)

// Fade appends a fade filter starting at startMs lasting durationMs.
func (s Stream) Fade(dir FadeDirection, startMs, durationMs int64) Stream {
	return s.chain1("fade",
		Param{"t", string(dir)},
		Param{"st", msToSeconds(startMs)},
		Param{"d", msToSeconds(durationMs)},
	)
}

// Colorkey appends a colorkey filter keying out the given color.
func (s Stream) Colorkey(color string, similarity, blend float64) Stream {
	return s.chain1("colorkey",
		Param{"color", color},
		Param{"similarity", formatFloat(similarity)},
		Param{"blend", formatFloat(blend)},
	)
}

// Setpts appends a raw setpts expression, for callers that need a PTS
// transform not covered by Trim (e.g. shifting onto a timeline offset).
func (s Stream) Setpts(expr string) Stream {
	name := "setpts"
	if s.label.IsAudio {
		name = "asetpts"
	}
	return s.chain1(name, Param{"", expr})
}

// DrawtextOptions are the subset of drawtext's parameters the compiler
// needs; Key/Value pairs are passed through verbatim and rendered in the
// order given.
type DrawtextOptions []Param

// Drawtext appends a drawtext filter with the given options.
func (s Stream) Drawtext(opts DrawtextOptions) Stream {
	return s.chain1("drawtext", opts...)
}

// Split fans this stream out into n identical copies.
func (s Stream) Split(n int) []Stream {
	name := "split"
	if s.label.IsAudio {
		name = "asplit"
	}
	outs := make([]Label, n)
	for i := range outs {
		outs[i] = s.dag.freshLabel(s.label.IsAudio)
	}
	s.dag.append(Filter{
		Inputs:  []Label{s.label},
		Name:    name,
		Params:  []Param{{"", itoa(n)}},
		Outputs: outs,
	})
	streams := make([]Stream, n)
	for i, o := range outs {
		streams[i] = Stream{dag: s.dag, label: o}
	}
	return streams
}

// Overlay composites other on top of s at (x, y), active only while
// enableExpr evaluates true (ffmpeg `between(t,start,end)` style).
func (s Stream) Overlay(other Stream, x, y int, enableExpr string) Stream {
	out := s.dag.freshLabel(false)
	params := []Param{
		{"x", itoa(x)},
		{"y", itoa(y)},
	}
	if enableExpr != "" {
		params = append(params, Param{"enable", "'" + enableExpr + "'"})
	}
	s.dag.append(Filter{
		Inputs:  []Label{s.label, other.label},
		Name:    "overlay",
		Params:  params,
		Outputs: []Label{out},
	})
	return Stream{dag: s.dag, label: out}
}

// ConcatStream joins s and other end-to-end via ffmpeg's concat filter,
// one video stream each (audio concatenation is handled by the higher
// level Concat helper, which can batch many segments into one filter).
func (s Stream) ConcatStream(other Stream) Stream {
	merged, err := Concat([][]Stream{{s}, {other}})
	if err != nil {
		// Both inputs are always well-formed single streams here; a
		// factorization failure would be a programming error.
		panic(err)
	}
	return merged.Video[0]
}

// XFadeTransition names an ffmpeg xfade transition. Fade is the default
// when the caller doesn't care.
type XFadeTransition string

const DefaultTransition XFadeTransition = "fade"

// XFade cross-fades s into other over durationMs starting at offsetMs on
// the combined timeline. Both inputs must be video streams.
func (s Stream) XFade(other Stream, durationMs, offsetMs int64, transition XFadeTransition) (Stream, error) {
	if s.label.IsAudio {
		return Stream{}, invalidXFadeInput(s.label)
	}
	if other.label.IsAudio {
		return Stream{}, invalidXFadeInput(other.label)
	}
	if transition == "" {
		transition = DefaultTransition
	}
	out := s.dag.freshLabel(false)
	s.dag.append(Filter{
		Inputs: []Label{s.label, other.label},
		Name:   "xfade",
		Params: []Param{
			{"duration", msToSeconds(durationMs)},
			{"offset", msToSeconds(offsetMs)},
			{"transition", string(transition)},
		},
		Outputs: []Label{out},
	})
	return Stream{dag: s.dag, label: out}, nil
}

// AcrossFade cross-fades two audio streams over durationMs via ffmpeg's
// acrossfade filter, the audio counterpart the compiler pairs with every
// video XFade (see spec.md Open Question 1).
func (s Stream) AcrossFade(other Stream, durationMs int64) (Stream, error) {
	if !s.label.IsAudio {
		return Stream{}, &compileerr.InvalidFilterInputs{FilterName: "acrossfade", Details: fmt.Sprintf("input %q is not an audio label", s.label.Tag)}
	}
	if !other.label.IsAudio {
		return Stream{}, &compileerr.InvalidFilterInputs{FilterName: "acrossfade", Details: fmt.Sprintf("input %q is not an audio label", other.label.Tag)}
	}
	out := s.dag.freshLabel(true)
	s.dag.append(Filter{
		Inputs:  []Label{s.label, other.label},
		Name:    "acrossfade",
		Params:  []Param{{"d", msToSeconds(durationMs)}},
		Outputs: []Label{out},
	})
	return Stream{dag: s.dag, label: out}, nil
}

// EndTo terminates the chain at a fixed reserved output name (outv/outa),
// appending a pass-through null/anull filter so the graph always ends
// with an explicit, stable terminal label.
func (s Stream) EndTo(terminal string) {
	name := "null"
	if s.label.IsAudio {
		name = "anull"
	}
	s.dag.append(Filter{
		Inputs:  []Label{s.label},
		Name:    name,
		Outputs: []Label{{Tag: terminal, IsAudio: s.label.IsAudio}},
	})
}

// OverlayExpr composites other on top of s using ffmpeg runtime expressions
// for x/y (e.g. "(W-w)/2" to center), the form the ambient contain sub-mode
// needs since the foreground's fitted size isn't known until filter
// runtime.
func (s Stream) OverlayExpr(other Stream, xExpr, yExpr, enableExpr string) Stream {
	out := s.dag.freshLabel(false)
	params := []Param{
		{"x", xExpr},
		{"y", yExpr},
	}
	if enableExpr != "" {
		params = append(params, Param{"enable", "'" + enableExpr + "'"})
	}
	s.dag.append(Filter{
		Inputs:  []Label{s.label, other.label},
		Name:    "overlay",
		Params:  params,
		Outputs: []Label{out},
	})
	return Stream{dag: s.dag, label: out}
}

func invalidXFadeInput(l Label) error {
	return &compileerr.InvalidFilterInputs{FilterName: "xfade", Details: fmt.Sprintf("input %q is an audio label", l.Tag)}
}
