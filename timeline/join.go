package timeline

import (
	"stsc/compileerr"
	"stsc/project"
	"stsc/stream"
)

// joinBase walks a sequence's z-index-0 fragments in order, joining each
// zero-overlap fragment to the result so far with one two-segment concat
// filter (video and audio together when both sides carry audio) and
// cross-fading overlapping ones with xfade/acrossfade, per spec.md
// §4.7.3. A run of several zero-overlap fragments therefore becomes a
// chain of n=2 concat filters, not a single n-segment concat. It returns the sequence's combined (video, audio) pair; audio is
// the zero value with hasAudio=false if no base fragment carried audio.
func joinBase(built []fragmentStream, resolved []*project.FragmentResolved) (video, audio stream.Stream, hasAudio bool, err error) {
	if len(built) == 0 {
		return stream.Stream{}, stream.Stream{}, false, nil
	}

	video = built[0].video
	if built[0].hasAudio {
		audio = built[0].audio
		hasAudio = true
	}

	for i := 1; i < len(built); i++ {
		overlap := resolved[i].Spec.OverlapLeftMs
		cur := built[i]

		switch {
		case overlap == 0:
			if hasAudio && cur.hasAudio {
				res, cErr := stream.Concat([][]stream.Stream{{video, audio}, {cur.video, cur.audio}})
				if cErr != nil {
					return stream.Stream{}, stream.Stream{}, false, cErr
				}
				video, audio = res.Video[0], res.Audio[0]
				continue
			}
			res, cErr := stream.Concat([][]stream.Stream{{video}, {cur.video}})
			if cErr != nil {
				return stream.Stream{}, stream.Stream{}, false, cErr
			}
			video = res.Video[0]
			if cur.hasAudio {
				audio = cur.audio
				hasAudio = true
			}

		case overlap < 0:
			durationMs := -overlap
			offsetMs := resolved[i-1].EndMs + overlap
			if offsetMs < 0 {
				offsetMs = 0
			}
			v, xErr := video.XFade(cur.video, durationMs, offsetMs, stream.DefaultTransition)
			if xErr != nil {
				return stream.Stream{}, stream.Stream{}, false, xErr
			}
			video = v
			if hasAudio && cur.hasAudio {
				a, aErr := audio.AcrossFade(cur.audio, durationMs)
				if aErr != nil {
					return stream.Stream{}, stream.Stream{}, false, aErr
				}
				audio = a
			} else if cur.hasAudio {
				audio = cur.audio
				hasAudio = true
			}

		default:
			// Positive overlap-left (starting later than a simple
			// concat would place it) has no distinct join operator in
			// spec.md §4.7.3 beyond the timelineCursor bookkeeping; a
			// plain concat is the closest faithful rendering since the
			// gap itself isn't represented as a stream operation.
			res, cErr := stream.Concat([][]stream.Stream{{video}, {cur.video}})
			if cErr != nil {
				return stream.Stream{}, stream.Stream{}, false, cErr
			}
			video = res.Video[0]
			if cur.hasAudio {
				if hasAudio {
					ares, aErr := stream.Concat([][]stream.Stream{{audio}, {cur.audio}})
					if aErr != nil {
						return stream.Stream{}, stream.Stream{}, false, aErr
					}
					audio = ares.Audio[0]
				} else {
					audio = cur.audio
					hasAudio = true
				}
			}
		}
	}
	return video, audio, hasAudio, nil
}

// applyOverlays composites every z-index>0 fragment of a sequence onto its
// base video in ascending z-index order, per spec.md §4.7.4. Overlay
// fragments never contribute audio: spec.md's joining algebra (§4.7.3)
// only describes audio handling for the base timeline.
func applyOverlays(base stream.Stream, overlays []*project.FragmentResolved, built []fragmentStream) stream.Stream {
	result := base
	for i, fr := range overlays {
		result = result.Overlay(built[i].video, 0, 0, enableWindow(fr))
	}
	return result
}

func invalidEmptySequence() error {
	return &compileerr.InvalidFilterInputs{FilterName: "sequence", Details: "sequence produced no streams"}
}
