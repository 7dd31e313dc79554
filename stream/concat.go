package stream

import (
	"stsc/compileerr"
)

// ConcatResult holds the output streams of a concat filter: one or more
// video streams, one or more audio streams, matching the v/a counts
// chosen for the join.
type ConcatResult struct {
	Video []Stream
	Audio []Stream
}

// Concat joins an ordered list of segments end-to-end with a single
// concat filter. Each segment is itself an ordered list of streams: its v
// video streams followed by its a audio streams. Every segment must
// share the same (v, a) shape; Concat infers that shape from the first
// segment and validates every other segment against it by checking each
// label's IsAudio flag, which is how the library picks the factorization
// (n, v, a) described in spec.md: n is maximized by accepting exactly the
// segment count the caller provided, partitioned by label kind.
func Concat(segments [][]Stream) (*ConcatResult, error) {
	if len(segments) == 0 {
		return nil, &compileerr.InvalidFilterInputs{FilterName: "concat", Details: "no segments given"}
	}
	n := len(segments)
	v, a, err := segmentShape(segments[0])
	if err != nil {
		return nil, err
	}
	if v == 0 && a == 0 {
		return nil, &compileerr.InvalidFilterInputs{FilterName: "concat", Details: "segment has no streams"}
	}
	for i, seg := range segments {
		sv, sa, err := segmentShape(seg)
		if err != nil {
			return nil, err
		}
		if sv != v || sa != a {
			return nil, &compileerr.InvalidFilterInputs{FilterName: "concat", Details: "segments do not share the same video/audio shape"}
		}
		_ = i
	}

	var inputs []Label
	var dag *DAG
	for _, seg := range segments {
		for _, s := range seg {
			dag = s.dag
			inputs = append(inputs, s.label)
		}
	}

	videoOuts := make([]Label, v)
	for i := range videoOuts {
		videoOuts[i] = dag.freshLabel(false)
	}
	audioOuts := make([]Label, a)
	for i := range audioOuts {
		audioOuts[i] = dag.freshLabel(true)
	}

	outputs := append(append([]Label{}, videoOuts...), audioOuts...)
	dag.append(Filter{
		Inputs: inputs,
		Name:   "concat",
		Params: []Param{
			{"n", itoa(n)},
			{"v", itoa(v)},
			{"a", itoa(a)},
		},
		Outputs: outputs,
	})

	result := &ConcatResult{}
	for _, l := range videoOuts {
		result.Video = append(result.Video, Stream{dag: dag, label: l})
	}
	for _, l := range audioOuts {
		result.Audio = append(result.Audio, Stream{dag: dag, label: l})
	}
	return result, nil
}

// segmentShape returns the (video count, audio count) of a segment,
// requiring every video label to precede every audio label within it.
func segmentShape(seg []Stream) (v, a int, err error) {
	sawAudio := false
	for _, s := range seg {
		if s.label.IsAudio {
			sawAudio = true
			a++
			continue
		}
		if sawAudio {
			return 0, 0, &compileerr.InvalidFilterInputs{FilterName: "concat", Details: "segment interleaves video after audio"}
		}
		v++
	}
	return v, a, nil
}
