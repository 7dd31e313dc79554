package assemble

import (
	"strings"
	"testing"

	"stsc/project"
	"stsc/timeline"
)

func TestBuildOrdersInputsByStableIndex(t *testing.T) {
	proj := &project.Project{FfmpegPresets: map[string]string{}}
	output := &project.Output{Path: "out.mp4"}
	assets := []AssetInput{
		{InputIndex: 0, Path: "a.mp4"},
		{InputIndex: 2, Path: "c.mp4"},
	}
	images := []timeline.ImageInput{{InputIndex: 1, Path: "overlay.png", DurationMs: 1500}}

	cmd := Build(proj, output, "[0:v]null[outv];[0:a]anull[outa]", images, assets, false)

	idxA := indexOf(cmd.Args, "a.mp4")
	idxLoop := indexOf(cmd.Args, "overlay.png")
	idxC := indexOf(cmd.Args, "c.mp4")
	if !(idxA < idxLoop && idxLoop < idxC) {
		t.Fatalf("inputs not in ascending stable-index order: %v", cmd.Args)
	}
	if !contains(cmd.Args, "-t") {
		t.Fatalf("expected -t duration flag for looped image input: %v", cmd.Args)
	}
}

func TestBuildDevModeOverridesPreset(t *testing.T) {
	proj := &project.Project{FfmpegPresets: map[string]string{}}
	output := &project.Output{Path: "out.mp4"}
	cmd := Build(proj, output, "graph", nil, nil, true)
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "-preset ultrafast") {
		t.Fatalf("expected dev preset override, got %s", joined)
	}
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

func contains(args []string, s string) bool {
	return indexOf(args, s) >= 0
}
