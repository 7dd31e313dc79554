package timeline

import (
	"sort"

	"stsc/compileerr"
	"stsc/project"
	"stsc/stream"
)

// ImageInput describes one still-image input (a synthetic-duration image
// asset or a rasterized container/app PNG) that the Command Assembler
// must open with `-loop 1 -t <duration>` rather than a plain `-i`.
type ImageInput struct {
	InputIndex int
	Path       string
	DurationMs int64
}

// Rasterized supplies the PNG path for a given container or app id, filled
// in by the Overlay Rasterizer stage before BuildGraph runs.
type Rasterized interface {
	PNGPath(kind project.ReferentKind, id string) (string, bool)
}

// Compile builds one output's complete filter graph into dag, terminating
// at the reserved [outv]/[outa] labels, and returns the still-image inputs
// the Command Assembler needs to loop. It implements the Timeline
// Compiler's full pipeline (spec.md §4.7): per-sequence fragment
// resolution, per-fragment stream construction, joining, overlay
// compositing, and cross-sequence composition.
func Compile(dag *stream.DAG, proj *project.Project, output *project.Output, rasterized Rasterized) ([]ImageInput, error) {
	sharedCtx := proj.NewExpressionContext()
	imageByIndex := map[int]*ImageInput{}

	type seqResult struct {
		video    stream.Stream
		audio    stream.Stream
		hasAudio bool
	}
	var results []seqResult

	for _, seq := range proj.Sequences {
		resolved, err := resolveSequence(seq, proj.Assets, sharedCtx)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			continue
		}

		var base, overlays []*project.FragmentResolved
		for _, fr := range resolved {
			if fr.Spec.ZIndex > 0 {
				overlays = append(overlays, fr)
			} else {
				base = append(base, fr)
			}
		}
		sort.SliceStable(overlays, func(i, j int) bool { return overlays[i].Spec.ZIndex < overlays[j].Spec.ZIndex })

		builtBase := make([]fragmentStream, len(base))
		for i, fr := range base {
			fs, err := buildOne(dag, fr, proj, output, rasterized, imageByIndex)
			if err != nil {
				return nil, err
			}
			builtBase[i] = fs
		}
		video, audio, hasAudio, err := joinBase(builtBase, base)
		if err != nil {
			return nil, err
		}
		if len(base) == 0 {
			if len(overlays) == 0 {
				continue
			}
			return nil, invalidEmptySequence()
		}

		builtOverlays := make([]fragmentStream, len(overlays))
		for i, fr := range overlays {
			fs, err := buildOne(dag, fr, proj, output, rasterized, imageByIndex)
			if err != nil {
				return nil, err
			}
			builtOverlays[i] = fs
		}
		video = applyOverlays(video, overlays, builtOverlays)

		results = append(results, seqResult{video: video, audio: audio, hasAudio: hasAudio})
	}

	if len(results) == 0 {
		return nil, invalidEmptySequence()
	}

	finalVideo := results[0].video
	finalAudio := results[0].audio
	finalHasAudio := results[0].hasAudio
	for _, r := range results[1:] {
		finalVideo = finalVideo.Overlay(r.video, 0, 0, "")
		switch {
		case finalHasAudio && r.hasAudio:
			mixed, err := stream.Amix([]stream.Stream{finalAudio, r.audio})
			if err != nil {
				return nil, err
			}
			finalAudio = mixed
		case r.hasAudio:
			finalAudio = r.audio
			finalHasAudio = true
		}
	}

	finalVideo.EndTo("outv")
	if finalHasAudio {
		finalAudio.EndTo("outa")
	}

	images := make([]ImageInput, 0, len(imageByIndex))
	for _, img := range imageByIndex {
		images = append(images, *img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].InputIndex < images[j].InputIndex })
	return images, nil
}

// buildOne resolves a fragment's asset/container/app backing, registering
// an ImageInput when the backing input needs `-loop 1 -t <duration>`
// rather than a plain `-i`, then builds its processed stream.
func buildOne(dag *stream.DAG, fr *project.FragmentResolved, proj *project.Project, output *project.Output, rasterized Rasterized, imageByIndex map[int]*ImageInput) (fragmentStream, error) {
	spec := fr.Spec
	var asset *project.Asset

	switch spec.Kind {
	case project.ReferentAsset:
		a, ok := proj.Assets[spec.Referent]
		if !ok {
			return fragmentStream{}, &compileerr.UnknownReference{FragmentID: spec.ID, TargetName: spec.Referent, TargetKind: "asset"}
		}
		asset = a
		if a.Kind == project.KindImage {
			registerImageInput(imageByIndex, spec.InputIndex, a.Path, fr.DurationMs)
		}
	case project.ReferentContainer, project.ReferentApp:
		path, ok := rasterized.PNGPath(spec.Kind, spec.Referent)
		if !ok {
			return fragmentStream{}, &compileerr.UnknownReference{FragmentID: spec.ID, TargetName: spec.Referent, TargetKind: string(spec.Kind)}
		}
		registerImageInput(imageByIndex, spec.InputIndex, path, fr.DurationMs)
	}

	return buildFragmentStream(dag, fr, asset, output)
}

func registerImageInput(m map[int]*ImageInput, index int, path string, durationMs int64) {
	existing, ok := m[index]
	if !ok {
		m[index] = &ImageInput{InputIndex: index, Path: path, DurationMs: durationMs}
		return
	}
	if durationMs > existing.DurationMs {
		existing.DurationMs = durationMs
	}
}
