// Package probe invokes the external media-probe tool to measure an
// asset's duration, dimensions, rotation, and stream presence.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"stsc/compileerr"
)

// Metadata is what the probe measures about one asset.
type Metadata struct {
	DurationMs int64
	Width      int
	Height     int
	Rotation   int
	HasVideo   bool
	HasAudio   bool
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

// IsImagePath reports whether path's extension identifies a still image,
// the same inference the Project Model Builder uses to default an asset's
// kind when the document doesn't override it with data-type.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Prober probes a single asset path. The default implementation shells
// out to the external probe binary; tests substitute a stub.
type Prober interface {
	Probe(ctx context.Context, path string) (Metadata, error)
}

// ExecProber runs the configured probe binary (ffprobe-compatible) via
// os/exec, the same shelling-out pattern the Command Assembler uses to
// drive the encoder.
type ExecProber struct {
	Binary string // defaults to "ffprobe"
}

// NewExecProber returns a Prober using "ffprobe" on PATH.
func NewExecProber() *ExecProber { return &ExecProber{Binary: "ffprobe"} }

func (p *ExecProber) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "ffprobe"
}

// Probe implements Prober by invoking ffprobe twice: once for duration,
// once for a JSON stream/rotation descriptor, matching the argument
// shapes spec.md §6 documents for the external toolchain contract.
func (p *ExecProber) Probe(ctx context.Context, path string) (Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, &compileerr.AssetMissing{Path: path}
		}
		return Metadata{}, &compileerr.AssetProbeFailed{Path: path, Message: err.Error()}
	}

	if IsImagePath(path) {
		w, h, err := p.probeImageDimensions(ctx, path)
		if err != nil {
			return Metadata{}, err
		}
		return Metadata{DurationMs: 0, Width: w, Height: h}, nil
	}

	durationMs, err := p.probeDuration(ctx, path)
	if err != nil {
		return Metadata{}, err
	}
	streams, err := p.probeStreams(ctx, path)
	if err != nil {
		return Metadata{}, err
	}
	streams.DurationMs = durationMs
	return streams, nil
}

func (p *ExecProber) probeDuration(ctx context.Context, path string) (int64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := p.run(ctx, path, args)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, &compileerr.AssetProbeFailed{Path: path, Message: "unparseable duration: " + err.Error()}
	}
	return int64(seconds * 1000), nil
}

// ffprobeStreamJSON is the subset of ffprobe's -show_streams JSON output
// the compiler consults.
type ffprobeStreamJSON struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Tags         map[string]string `json:"tags"`
		SideDataList []struct {
			Rotation int `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
}

func (p *ExecProber) probeStreams(ctx context.Context, path string) (Metadata, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height,side_data_list",
		"-of", "json",
		path,
	}
	out, err := p.run(ctx, path, args)
	if err != nil {
		return Metadata{}, err
	}
	var parsed ffprobeStreamJSON
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Metadata{}, &compileerr.AssetProbeFailed{Path: path, Message: "unparseable stream descriptor: " + err.Error()}
	}
	var m Metadata
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			m.HasVideo = true
			if s.Width > m.Width {
				m.Width = s.Width
			}
			if s.Height > m.Height {
				m.Height = s.Height
			}
			for _, sd := range s.SideDataList {
				if sd.Rotation != 0 {
					m.Rotation = normalizeRotation(sd.Rotation)
				}
			}
		case "audio":
			m.HasAudio = true
		}
	}
	return m, nil
}

func (p *ExecProber) probeImageDimensions(ctx context.Context, path string) (int, int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "stream=width,height",
		"-of", "default=noprint_wrappers=1",
		path,
	}
	out, err := p.run(ctx, path, args)
	if err != nil {
		return 0, 0, err
	}
	var w, h int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		n, _ := strconv.Atoi(strings.TrimSpace(kv[1]))
		switch strings.TrimSpace(kv[0]) {
		case "width":
			w = n
		case "height":
			h = n
		}
	}
	return w, h, nil
}

func (p *ExecProber) run(ctx context.Context, path string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &compileerr.AssetProbeFailed{Path: path, Message: strings.TrimSpace(stderr.String()) + ": " + err.Error()}
	}
	return stdout.Bytes(), nil
}

// normalizeRotation folds an arbitrary side-data rotation value (which may
// be negative, e.g. -90) into one of 0/90/180/270.
func normalizeRotation(r int) int {
	r = r % 360
	if r < 0 {
		r += 360
	}
	switch {
	case r < 45 || r >= 315:
		return 0
	case r < 135:
		return 90
	case r < 225:
		return 180
	default:
		return 270
	}
}
