package timeline

import (
	"fmt"

	"stsc/project"
	"stsc/stream"
)

// fragmentStream is the built (video, audio) pair for one resolved
// fragment, plus whether audio was produced at all (images and
// audio-disabled sources have none).
type fragmentStream struct {
	video    stream.Stream
	audio    stream.Stream
	hasAudio bool
}

// rotationTranspose maps a probed rotation in degrees to ffmpeg's
// transpose filter direction code: 1 is a 90° clockwise rotation, 2 is 90°
// counter-clockwise; 180° is expressed as two 90°s since transpose has no
// direct 180 code.
func rotationTranspose(rotation int) []int {
	switch rotation {
	case 90:
		return []int{1}
	case 180:
		return []int{1, 1}
	case 270:
		return []int{2}
	default:
		return nil
	}
}

// buildFragmentStream materializes one enabled fragment's processed
// video (and, where present, audio) stream starting from its raw input
// label, per spec.md §4.7.2. asset is nil for container/app fragments,
// whose PNG is already rendered at exactly the output's resolution and
// needs no fit/transform beyond the optional per-fragment overlays.
func buildFragmentStream(dag *stream.DAG, fr *project.FragmentResolved, asset *project.Asset, output *project.Output) (fragmentStream, error) {
	spec := fr.Spec
	video := stream.Of(dag, stream.VideoInput(spec.InputIndex))

	if asset != nil {
		needsTrim := spec.TrimStartMs != 0 || (asset.DurationMs > 0 && fr.DurationMs < asset.DurationMs)
		if needsTrim {
			video = video.Trim(spec.TrimStartMs, fr.DurationMs)
		}
		for _, code := range rotationTranspose(asset.Rotation) {
			video = video.Transpose(code)
		}
		video = video.Fps(output.Fps)
		video = applyObjectFit(video, spec, output)
	}

	if spec.Chromakey.Enabled {
		video = video.Colorkey(spec.Chromakey.Color, spec.Chromakey.Similarity, spec.Chromakey.Blend)
	}
	if spec.BlurSigma > 0 {
		video = video.Gblur(spec.BlurSigma)
	}
	if spec.TransitionIn.Name != "" {
		video = video.Fade(stream.FadeIn, 0, spec.TransitionIn.DurationMs)
	}
	if spec.TransitionOut.Name != "" {
		outStart := fr.DurationMs - spec.TransitionOut.DurationMs
		if outStart < 0 {
			outStart = 0
		}
		video = video.Fade(stream.FadeOut, outStart, spec.TransitionOut.DurationMs)
	}

	fs := fragmentStream{video: video}
	if asset != nil && asset.HasAudio {
		audio := stream.Of(dag, stream.AudioInput(spec.InputIndex))
		needsTrim := spec.TrimStartMs != 0 || (asset.DurationMs > 0 && fr.DurationMs < asset.DurationMs)
		if needsTrim {
			audio = audio.Trim(spec.TrimStartMs, fr.DurationMs)
		}
		fs.audio = audio
		fs.hasAudio = true
	}
	return fs, nil
}

// applyObjectFit emits the fit filter chain for cover/contain per
// spec.md §4.7.2: cover scales to fill then crops; contain scales to fit,
// with letterbox (default), ambient, and pillarbox sub-modes filling the
// remaining frame.
func applyObjectFit(v stream.Stream, spec *project.FragmentSpec, output *project.Output) stream.Stream {
	w, h := output.Width, output.Height
	switch spec.ObjectFit {
	case project.FitContain:
		switch {
		case spec.Pillarbox.Color != "":
			return v.ScaleToFit(w, h).Pad(w, h, spec.Pillarbox.Color)
		case spec.Ambient != (project.AmbientParams{}):
			branches := v.Split(2)
			backdrop := branches[0].ScaleToFill(w, h).Crop(w, h).
				Gblur(spec.Ambient.Blur).
				EqFull(1.0, spec.Ambient.Brightness, spec.Ambient.Saturation)
			foreground := branches[1].ScaleToFit(w, h)
			return backdrop.OverlayExpr(foreground, "(W-w)/2", "(H-h)/2", "")
		default:
			return v.ScaleToFit(w, h).Pad(w, h, "black")
		}
	default: // cover
		return v.ScaleToFill(w, h).Crop(w, h)
	}
}

// enableWindow renders an ffmpeg `between(t,start,end)` expression in
// seconds for an overlay fragment's active window.
func enableWindow(fr *project.FragmentResolved) string {
	return fmt.Sprintf("between(t,%s,%s)", seconds(fr.StartMs), seconds(fr.EndMs))
}

func seconds(ms int64) string {
	return fmt.Sprintf("%g", float64(ms)/1000.0)
}
