// Package assemble implements the Command Assembler (C8): it builds the
// encoder's argument vector from a compiled filter graph and the project's
// stable input ordering, then spawns the encoder and streams its stderr.
package assemble

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"stsc/compileerr"
	"stsc/project"
	"stsc/timeline"
)

// DefaultEncoderArgs is the baseline encoder preset used when an output
// carries no named preset (spec.md §4.8).
const DefaultEncoderArgs = "-pix_fmt yuv420p -preset medium -c:a aac -b:a 192k"

// DevEncoderArgs overrides the preset for fast local iteration.
const DevEncoderArgs = "-preset ultrafast"

// Command is the fully-built encoder invocation, kept structured so tests
// and debug-mode error reporting can inspect it without re-parsing argv.
type Command struct {
	Binary string
	Args   []string
}

// String renders the command the way debug mode reports it on failure.
func (c Command) String() string {
	s := c.Binary
	for _, a := range c.Args {
		s += " " + quoteIfNeeded(a)
	}
	return s
}

func quoteIfNeeded(s string) string {
	for _, r := range s {
		if r == ' ' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}

// Build assembles the encoder argument vector: global flags, inputs in
// ascending stable-index order, the filter_complex graph, output mappings,
// encoder preset args, and the output path (spec.md §4.8).
func Build(proj *project.Project, output *project.Output, graph string, images []timeline.ImageInput, assetInputs []AssetInput, devMode bool) Command {
	args := []string{"-y", "-loglevel", "warning"}

	type indexed struct {
		index int
		args  []string
	}
	var inputs []indexed
	for _, a := range assetInputs {
		inputs = append(inputs, indexed{index: a.InputIndex, args: []string{"-i", a.Path}})
	}
	for _, img := range images {
		seconds := float64(img.DurationMs) / 1000.0
		inputs = append(inputs, indexed{
			index: img.InputIndex,
			args:  []string{"-loop", "1", "-t", strconv.FormatFloat(seconds, 'f', -1, 64), "-i", img.Path},
		})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].index < inputs[j].index })
	for _, in := range inputs {
		args = append(args, in.args...)
	}

	args = append(args, "-filter_complex", graph)
	args = append(args, "-map", "[outv]", "-map", "[outa]")

	presetArgs := DefaultEncoderArgs
	if output.FfmpegArgs != "" {
		if p, ok := proj.FfmpegPresets[output.FfmpegArgs]; ok {
			presetArgs = p
		}
	}
	if devMode {
		presetArgs = DevEncoderArgs
	}
	args = append(args, splitArgs(presetArgs)...)
	args = append(args, output.Path)

	return Command{Binary: "ffmpeg", Args: args}
}

// AssetInput pairs a real media asset with its stable input index, the
// form Build needs alongside the rasterizer's ImageInput list.
type AssetInput struct {
	InputIndex int
	Path       string
}

func splitArgs(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}

// Run executes cmd as a child process, streaming its stderr line-by-line
// to log as progress (opaque passthrough per spec.md §4.8). A non-zero
// exit produces EncoderFailed carrying the last lines of stderr.
func Run(ctx context.Context, cmd Command, log *logrus.Entry) error {
	if _, err := exec.LookPath(cmd.Binary); err != nil {
		return &compileerr.EncoderNotFound{Binary: cmd.Binary}
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	stderr, err := c.StderrPipe()
	if err != nil {
		return fmt.Errorf("opening encoder stderr: %v", err)
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("starting encoder: %v", err)
	}

	tail := newTailBuffer(20)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.add(line)
		log.Info(line)
	}

	err = c.Wait()
	if err != nil {
		if ctx.Err() == context.Canceled {
			return &compileerr.Cancelled{}
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &compileerr.EncoderFailed{ExitCode: exitCode, Tail: tail.String()}
	}
	return nil
}

type tailBuffer struct {
	lines []string
	cap   int
}

func newTailBuffer(cap int) *tailBuffer { return &tailBuffer{cap: cap} }

func (t *tailBuffer) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.cap {
		t.lines = t.lines[len(t.lines)-t.cap:]
	}
}

func (t *tailBuffer) String() string {
	s := ""
	for i, l := range t.lines {
		if i > 0 {
			s += "\n"
		}
		s += l
	}
	return s
}
