package stream

import "stsc/compileerr"

// Amix mixes two or more audio streams into one via ffmpeg's amix filter,
// the cross-sequence audio composition step (spec.md §4.7.5).
func Amix(streams []Stream) (Stream, error) {
	if len(streams) == 0 {
		return Stream{}, &compileerr.InvalidFilterInputs{FilterName: "amix", Details: "no inputs given"}
	}
	if len(streams) == 1 {
		return streams[0], nil
	}
	dag := streams[0].dag
	inputs := make([]Label, len(streams))
	for i, s := range streams {
		if !s.label.IsAudio {
			return Stream{}, &compileerr.InvalidFilterInputs{FilterName: "amix", Details: "input " + s.label.Tag + " is not an audio label"}
		}
		inputs[i] = s.label
	}
	out := dag.freshLabel(true)
	dag.append(Filter{
		Inputs:  inputs,
		Name:    "amix",
		Params:  []Param{{"inputs", itoa(len(streams))}},
		Outputs: []Label{out},
	})
	return Stream{dag: dag, label: out}, nil
}
