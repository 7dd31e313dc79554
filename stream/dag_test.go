package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFreshness(t *testing.T) {
	dag := New()
	v := Of(dag, VideoInput(0))
	v = v.Scale(1920, 1080).Fps(30)
	v.EndTo("outv")

	seen := map[string]bool{}
	last := len(dag.filters) - 1
	for i, f := range dag.filters {
		for _, out := range f.Outputs {
			assert.False(t, seen[out.Tag], "duplicate label %s", out.Tag)
			seen[out.Tag] = true
			if i != last {
				assert.NotEqual(t, "outv", out.Tag, "no intermediate label should collide with reserved outv unless it is the terminal")
			}
		}
	}
	assert.Contains(t, dag.Labels(), "outv")
}

func TestRenderSimpleChain(t *testing.T) {
	dag := New()
	v := Of(dag, VideoInput(0))
	v = v.Fps(30).Scale(1920, 1080).Crop(1920, 1080)
	v.EndTo("outv")

	graph := dag.Render()
	assert.True(t, strings.HasPrefix(graph, "[0:v]fps=30"))
	assert.Contains(t, graph, "scale=1920:1080")
	assert.Contains(t, graph, "crop=1920:1080")
	assert.Contains(t, graph, "[outv]")
}

func TestConcatFactorization(t *testing.T) {
	dag := New()
	seg1 := []Stream{Of(dag, VideoInput(0)), Of(dag, AudioInput(0))}
	seg2 := []Stream{Of(dag, VideoInput(1)), Of(dag, AudioInput(1))}

	result, err := Concat([][]Stream{seg1, seg2})
	require.NoError(t, err)
	assert.Len(t, result.Video, 1)
	assert.Len(t, result.Audio, 1)

	graph := dag.Render()
	assert.Contains(t, graph, "concat=n=2:v=1:a=1")
}

func TestConcatEmptyIsHardError(t *testing.T) {
	_, err := Concat(nil)
	assert.Error(t, err)
}

func TestConcatRejectsMismatchedShapes(t *testing.T) {
	dag := New()
	seg1 := []Stream{Of(dag, VideoInput(0)), Of(dag, AudioInput(0))}
	seg2 := []Stream{Of(dag, VideoInput(1))}
	_, err := Concat([][]Stream{seg1, seg2})
	assert.Error(t, err)
}

func TestXFadeTypeSafety(t *testing.T) {
	dag := New()
	video := Of(dag, VideoInput(0))
	audio := Of(dag, AudioInput(0))

	_, err := video.XFade(audio, 1000, 2000, DefaultTransition)
	assert.Error(t, err)

	video2 := Of(dag, VideoInput(1))
	out, err := video.XFade(video2, 1000, 2000, DefaultTransition)
	require.NoError(t, err)
	assert.False(t, out.label.IsAudio)
}

func TestXFadeParams(t *testing.T) {
	dag := New()
	a := Of(dag, VideoInput(0))
	b := Of(dag, VideoInput(1))
	out, err := a.XFade(b, 1000, 2000, "")
	require.NoError(t, err)
	out.EndTo("outv")

	graph := dag.Render()
	assert.Contains(t, graph, "xfade=duration=1:offset=2:transition=fade")
}

func TestAcrossFadeRejectsVideo(t *testing.T) {
	dag := New()
	a := Of(dag, VideoInput(0))
	b := Of(dag, AudioInput(0))
	_, err := a.AcrossFade(b, 1000)
	assert.Error(t, err)
}

func TestDeterministicRender(t *testing.T) {
	build := func() string {
		dag := New()
		v := Of(dag, VideoInput(0)).Fps(30).Scale(1280, 720)
		v.EndTo("outv")
		a := Of(dag, AudioInput(0))
		a.EndTo("outa")
		return dag.Render()
	}
	assert.Equal(t, build(), build())
}
