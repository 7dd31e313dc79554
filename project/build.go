package project

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"stsc/compileerr"
	"stsc/expr"
	"stsc/markup"
	"stsc/probe"
)

// audioExtensions mirrors probe.IsImagePath's extension sniff for the
// remaining asset kind the tag alone doesn't disambiguate.
var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true, ".ogg": true,
}

// Build walks a parsed project document, probes every referenced asset,
// assigns stable input indices, and produces a fully validated Project.
// dir is the project directory asset/container/app paths resolve against.
func Build(ctx context.Context, doc *markup.Document, prober probe.Prober, dir string) (*Project, error) {
	b := &builder{
		doc:    doc,
		prober: prober,
		dir:    dir,
		proj: &Project{
			Dir:           dir,
			Assets:        map[string]*Asset{},
			Outputs:       map[string]*Output{},
			Containers:    map[string]*Container{},
			Apps:          map[string]*App{},
			FfmpegPresets: map[string]string{},
			Uploads:       map[string]*UploadConfig{},
		},
		fragmentIDs: map[string]bool{},
		inputIndex:  map[string]int{},
	}
	b.proj.CSS = collectCSS(doc.Root)
	if err := b.buildAssets(ctx); err != nil {
		return nil, err
	}
	if err := b.buildOutputs(); err != nil {
		return nil, err
	}
	b.buildPresets()
	b.buildUploads()
	if err := b.buildContainers(); err != nil {
		return nil, err
	}
	if err := b.buildApps(); err != nil {
		return nil, err
	}
	if err := b.buildSequences(); err != nil {
		return nil, err
	}
	b.assignInputIndices()
	return b.proj, nil
}

type builder struct {
	doc    *markup.Document
	prober probe.Prober
	dir    string
	proj   *Project

	fragmentIDs map[string]bool
	nextAnonID  int

	inputIndex map[string]int // "kind:referent" -> index
	nextInput  int
}

// collectCSS concatenates every <style> element's text content in document
// order, the same "at most one style block, concatenate if more" contract
// the markup parser's own stylesheet loader uses.
func collectCSS(root *markup.Node) string {
	var b strings.Builder
	for _, s := range root.Find("style") {
		b.WriteString(s.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func (b *builder) resolvePath(raw string) string {
	if filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(b.dir, raw)
}

func (b *builder) buildAssets(ctx context.Context) error {
	for _, n := range b.doc.Root.Find("asset") {
		name, ok := n.Attr("data-name")
		if !ok || name == "" {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: "asset missing data-name"}
		}
		if _, dup := b.proj.Assets[name]; dup {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("duplicate asset name %q", name)}
		}
		rawPath, ok := n.Attr("data-path")
		if !ok || rawPath == "" {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("asset %q missing data-path", name)}
		}
		path := b.resolvePath(rawPath)

		kind := inferAssetKind(n.AttrOr("data-type", ""), path)

		meta, err := b.prober.Probe(ctx, path)
		if err != nil {
			return err
		}

		b.proj.Assets[name] = &Asset{
			Name:       name,
			Path:       path,
			Kind:       kind,
			DurationMs: meta.DurationMs,
			Width:      meta.Width,
			Height:     meta.Height,
			Rotation:   meta.Rotation,
			HasVideo:   meta.HasVideo,
			HasAudio:   meta.HasAudio,
		}
	}
	return nil
}

func inferAssetKind(override, path string) AssetKind {
	switch override {
	case "video":
		return KindVideo
	case "image":
		return KindImage
	case "audio":
		return KindAudio
	}
	ext := strings.ToLower(filepath.Ext(path))
	if probe.IsImagePath(path) {
		return KindImage
	}
	if audioExtensions[ext] {
		return KindAudio
	}
	return KindVideo
}

func (b *builder) buildOutputs() error {
	for _, n := range b.doc.Root.Find("output") {
		name, ok := n.Attr("data-name")
		if !ok || name == "" {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: "output missing data-name"}
		}
		if _, dup := b.proj.Outputs[name]; dup {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("duplicate output name %q", name)}
		}
		path := n.AttrOr("data-path", "")
		fps, _ := strconv.Atoi(n.AttrOr("data-fps", "0"))
		width, height, err := parseResolution(n.AttrOr("data-resolution", ""))
		if err != nil {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("output %q: %v", name, err)}
		}
		if fps <= 0 || width <= 0 || height <= 0 {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("output %q requires positive fps and resolution", name)}
		}
		b.proj.Outputs[name] = &Output{
			Name:       name,
			Path:       b.resolvePath(path),
			Fps:        fps,
			Width:      width,
			Height:     height,
			FfmpegArgs: n.AttrOr("data-ffmpeg", ""),
		}
	}
	return nil
}

func parseResolution(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q, want WxH", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q", parts[0])
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q", parts[1])
	}
	return w, h, nil
}

// buildPresets reads the <ffmpeg> block's children as data-name/data-args
// pairs regardless of their own tag name, since spec.md leaves the
// preset element name unstandardized.
func (b *builder) buildPresets() {
	for _, block := range b.doc.Root.Find("ffmpeg") {
		for _, n := range block.Children {
			name, ok := n.Attr("data-name")
			if !ok || name == "" {
				continue
			}
			b.proj.FfmpegPresets[name] = n.AttrOr("data-args", "")
		}
	}
}

// buildUploads reads the <upload> block, ignored by the compiler proper
// but round-tripped so the contract has a concrete shape (spec.md §1, §3).
func (b *builder) buildUploads() {
	for _, block := range b.doc.Root.Find("upload") {
		for _, n := range block.Children {
			name := n.AttrOr("data-name", n.AttrOr("data-output", ""))
			if name == "" {
				continue
			}
			b.proj.Uploads[name] = &UploadConfig{
				Platform:   n.AttrOr("data-platform", ""),
				AuthPath:   n.AttrOr("data-auth", ""),
				OutputName: n.AttrOr("data-output", ""),
			}
		}
	}
}

func (b *builder) buildContainers() error {
	for _, n := range b.doc.Root.Find("container") {
		id := n.AttrOr("data-name", n.AttrOr("id", ""))
		if id == "" {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: "container missing data-name/id"}
		}
		if _, dup := b.proj.Containers[id]; dup {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("duplicate container id %q", id)}
		}
		b.proj.Containers[id] = &Container{
			ID:        id,
			InnerHTML: n.InnerHTML,
			CSS:       b.proj.CSS,
		}
	}
	return nil
}

func (b *builder) buildApps() error {
	for _, n := range b.doc.Root.Find("app") {
		id := n.AttrOr("data-name", n.AttrOr("id", ""))
		if id == "" {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: "app missing data-name/id"}
		}
		if _, dup := b.proj.Apps[id]; dup {
			return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("duplicate app id %q", id)}
		}
		params := map[string]string{}
		if raw := n.AttrOr("data-params", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params); err != nil {
				return &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("app %q: invalid data-params JSON: %v", id, err)}
			}
		}
		title := n.AttrOr("data-title", "")
		date := n.AttrOr("data-date", "")
		var tags []string
		if raw := n.AttrOr("data-tags", ""); raw != "" {
			tags = strings.Split(raw, ",")
		}
		// Title/date/tags are auto-injected as query parameters unless the
		// project already supplied them explicitly (spec.md §3).
		injectIfAbsent(params, "title", title)
		injectIfAbsent(params, "date", date)
		if len(tags) > 0 {
			injectIfAbsent(params, "tags", strings.Join(tags, ","))
		}

		b.proj.Apps[id] = &App{
			ID:        id,
			SourceDir: b.resolvePath(n.AttrOr("data-source", "")),
			Params:    params,
			Title:     title,
			Date:      date,
			Tags:      tags,
		}
	}
	return nil
}

func injectIfAbsent(params map[string]string, key, val string) {
	if val == "" {
		return
	}
	if _, ok := params[key]; !ok {
		params[key] = val
	}
}

func (b *builder) buildSequences() error {
	for _, seqNode := range b.doc.Root.Find("sequence") {
		seq := &Sequence{ID: seqNode.AttrOr("data-name", seqNode.AttrOr("id", ""))}
		for _, fragNode := range seqNode.FindDirect("fragment") {
			frag, err := b.buildFragment(fragNode)
			if err != nil {
				return err
			}
			seq.Fragments = append(seq.Fragments, frag)
		}
		b.proj.Sequences = append(b.proj.Sequences, seq)
	}
	return nil
}

func (b *builder) buildFragment(n *markup.Node) (*FragmentSpec, error) {
	id := n.AttrOr("id", "")
	if id == "" {
		id = fmt.Sprintf("f-%s", uuid.NewString()[:8])
	}
	if b.fragmentIDs[id] {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("duplicate fragment id %q", id)}
	}
	b.fragmentIDs[id] = true

	kind, referent, err := fragmentReferent(n)
	if err != nil {
		return nil, err
	}
	if err := b.validateReferent(n, id, kind, referent); err != nil {
		return nil, err
	}

	enabled := n.AttrOr("data-enabled", "true") != "false"
	style := b.doc.StyleOf(n)

	trimStartMs, err := parseMsLiteral(style.GetOr("-trim-start", "0"))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -trim-start: %v", id, err)}
	}

	duration, err := parseTiming(style.GetOr("-duration", ""))
	if err != nil {
		return nil, &compileerr.ExpressionParseError{Text: style.GetOr("-duration", ""), Message: err.Error()}
	}
	if duration == (Timing{}) {
		if end, ok := style.Get("-offset-end"); ok {
			duration, err = deriveDurationFromEnd(style.GetOr("-offset-start", ""), end)
			if err != nil {
				return nil, &compileerr.ExpressionParseError{Text: end, Message: err.Error()}
			}
		} else {
			// No explicit duration: default to "the rest of the source",
			// meaningful for asset fragments and harmless otherwise since
			// container/app fragments always carry an explicit duration
			// in practice.
			duration = Timing{Percent: true}
		}
	}

	start, err := parseTiming(style.GetOr("-offset-start", ""))
	if err != nil {
		return nil, &compileerr.ExpressionParseError{Text: style.GetOr("-offset-start", ""), Message: err.Error()}
	}

	overlapLeftMs, err := parseSignedMsLiteral(style.GetOr("-overlay-left", "0"))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -overlay-left: %v", id, err)}
	}

	objectFit, ambient, pillarbox, err := parseObjectFit(style.GetOr("-object-fit", "cover"))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -object-fit: %v", id, err)}
	}

	transitionIn, err := parseTransition(style.GetOr("-transition-start", ""))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -transition-start: %v", id, err)}
	}
	transitionOut, err := parseTransition(style.GetOr("-transition-end", ""))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -transition-end: %v", id, err)}
	}

	zIndex, _ := strconv.Atoi(style.GetOr("-overlay-start-z-index", "0"))

	chromakey, err := parseChromakey(style.GetOr("-chromakey", ""))
	if err != nil {
		return nil, &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: fmt.Sprintf("fragment %q -chromakey: %v", id, err)}
	}

	var blurSigma float64
	if v, ok := markup.ParseBlurFilter(style.GetOr("filter", "")); ok {
		blurSigma = v
	}

	return &FragmentSpec{
		ID:            id,
		Kind:          kind,
		Referent:      referent,
		Enabled:       enabled,
		TrimStartMs:   trimStartMs,
		Duration:      duration,
		Start:         start,
		ObjectFit:     objectFit,
		Ambient:       ambient,
		Pillarbox:     pillarbox,
		OverlapLeftMs: overlapLeftMs,
		TransitionIn:  transitionIn,
		TransitionOut: transitionOut,
		ZIndex:        zIndex,
		Chromakey:     chromakey,
		BlurSigma:     blurSigma,
		InputIndex:    -1,
	}, nil
}

func fragmentReferent(n *markup.Node) (ReferentKind, string, error) {
	asset, hasAsset := n.Attr("data-asset")
	container, hasContainer := n.Attr("data-container")
	app, hasApp := n.Attr("data-app")
	count := 0
	for _, ok := range []bool{hasAsset, hasContainer, hasApp} {
		if ok {
			count++
		}
	}
	if count != 1 {
		return "", "", &compileerr.ParseError{Line: n.Line, Col: n.Col, Message: "fragment must reference exactly one of data-asset, data-container, data-app"}
	}
	switch {
	case hasAsset:
		return ReferentAsset, asset, nil
	case hasContainer:
		return ReferentContainer, container, nil
	default:
		return ReferentApp, app, nil
	}
}

func (b *builder) validateReferent(n *markup.Node, fragID string, kind ReferentKind, referent string) error {
	switch kind {
	case ReferentAsset:
		if _, ok := b.proj.Assets[referent]; !ok {
			return &compileerr.UnknownReference{FragmentID: fragID, TargetName: referent, TargetKind: "asset"}
		}
	case ReferentContainer:
		if _, ok := b.proj.Containers[referent]; !ok {
			return &compileerr.UnknownReference{FragmentID: fragID, TargetName: referent, TargetKind: "container"}
		}
	case ReferentApp:
		if _, ok := b.proj.Apps[referent]; !ok {
			return &compileerr.UnknownReference{FragmentID: fragID, TargetName: referent, TargetKind: "app"}
		}
	}
	return nil
}

// assignInputIndices walks every sequence's fragments in document order and
// assigns each distinct (kind, referent) pair the next dense integer on
// first use, satisfying invariant 5.
func (b *builder) assignInputIndices() {
	for _, seq := range b.proj.Sequences {
		for _, f := range seq.Fragments {
			key := string(f.Kind) + ":" + f.Referent
			idx, ok := b.inputIndex[key]
			if !ok {
				idx = b.nextInput
				b.inputIndex[key] = idx
				b.nextInput++
			}
			f.InputIndex = idx
		}
	}
}

func parseMsLiteral(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	ms, _, compiled, err := expr.ParseLiteralOrExpr(s)
	if err != nil {
		return 0, err
	}
	if compiled != nil {
		return 0, fmt.Errorf("expected a literal value, got an expression %q", s)
	}
	return ms, nil
}

func parseSignedMsLiteral(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	ms, err := parseMsLiteral(s)
	if err != nil {
		return 0, err
	}
	if neg {
		ms = -ms
	}
	return ms, nil
}

// parseTiming interprets a style value as a Timing, returning the zero
// value for an absent/empty string (meaning "absent" per the Start field's
// documented convention, and "default to 100%" for Duration, handled by
// the caller).
func parseTiming(s string) (Timing, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timing{}, nil
	}
	literalMs, isPercent, compiled, err := expr.ParseLiteralOrExpr(s)
	if err != nil {
		return Timing{}, err
	}
	if isPercent {
		return Timing{Percent: true}, nil
	}
	if compiled != nil {
		return Timing{Expr: compiled}, nil
	}
	return Timing{HasLiteral: true, LiteralMs: literalMs}, nil
}

// deriveDurationFromEnd computes a literal duration from -offset-start and
// -offset-end when both are plain literals; expression-valued offsets must
// use -duration directly since subtracting two unevaluated expressions
// isn't representable as a single Timing.
func deriveDurationFromEnd(startRaw, endRaw string) (Timing, error) {
	startMs, err := parseMsLiteral(startRaw)
	if err != nil {
		return Timing{}, fmt.Errorf("-offset-end requires a literal -offset-start: %v", err)
	}
	endMs, err := parseMsLiteral(endRaw)
	if err != nil {
		return Timing{}, err
	}
	return Timing{HasLiteral: true, LiteralMs: endMs - startMs}, nil
}

func parseObjectFit(raw string) (ObjectFit, AmbientParams, PillarboxParams, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return FitCover, AmbientParams{}, PillarboxParams{}, nil
	}
	switch fields[0] {
	case "cover":
		return FitCover, AmbientParams{}, PillarboxParams{}, nil
	case "contain":
		if len(fields) == 1 {
			return FitContain, AmbientParams{}, PillarboxParams{}, nil
		}
		switch fields[1] {
		case "ambient":
			if len(fields) < 5 {
				return "", AmbientParams{}, PillarboxParams{}, fmt.Errorf("ambient requires <blur> <brightness> <saturation>")
			}
			blur, _ := strconv.ParseFloat(fields[2], 64)
			brightness, _ := strconv.ParseFloat(fields[3], 64)
			saturation, _ := strconv.ParseFloat(fields[4], 64)
			return FitContain, AmbientParams{Blur: blur, Brightness: brightness, Saturation: saturation}, PillarboxParams{}, nil
		case "pillarbox":
			if len(fields) < 3 {
				return "", AmbientParams{}, PillarboxParams{}, fmt.Errorf("pillarbox requires <color>")
			}
			return FitContain, AmbientParams{}, PillarboxParams{Color: fields[2]}, nil
		default:
			return "", AmbientParams{}, PillarboxParams{}, fmt.Errorf("unknown contain sub-mode %q", fields[1])
		}
	default:
		return "", AmbientParams{}, PillarboxParams{}, fmt.Errorf("unknown object-fit %q", fields[0])
	}
}

func parseTransition(raw string) (Transition, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Transition{}, nil
	}
	name := fields[0]
	var durMs int64
	if len(fields) > 1 {
		var err error
		durMs, err = parseMsLiteral(fields[1])
		if err != nil {
			return Transition{}, err
		}
	}
	return Transition{Name: name, DurationMs: durMs}, nil
}

func parseChromakey(raw string) (Chromakey, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Chromakey{}, nil
	}
	if len(fields) < 3 {
		return Chromakey{}, fmt.Errorf("chromakey requires <color> <similarity> <blend>")
	}
	similarity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Chromakey{}, fmt.Errorf("invalid similarity %q", fields[1])
	}
	blend, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Chromakey{}, fmt.Errorf("invalid blend %q", fields[2])
	}
	return Chromakey{Enabled: true, Color: fields[0], Similarity: similarity, Blend: blend}, nil
}
