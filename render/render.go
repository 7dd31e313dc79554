// Package render implements the orchestrator that drives one or more
// outputs through the per-output render state machine (spec.md §4.10):
// Parse → Probe → ResolveExpressions → Rasterize → BuildGraph → Encode →
// ReapCache → Done.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stsc/assemble"
	"stsc/browser"
	"stsc/cache"
	"stsc/compileerr"
	"stsc/logging"
	"stsc/markup"
	"stsc/probe"
	"stsc/project"
	"stsc/stream"
	"stsc/timeline"
)

// Options configures one invocation of the orchestrator.
type Options struct {
	ProjectDir  string
	ProjectFile string // defaults to "project.html"
	OutputNames []string // empty means every output in the document
	DevMode     bool
	Prober      probe.Prober // nil uses probe.NewExecProber()
}

func (o Options) projectFile() string {
	if o.ProjectFile != "" {
		return o.ProjectFile
	}
	return "project.html"
}

// Context carries the per-run collaborators every stage shares: the
// browser session, the cache-key touched-set, and the tagged logger.
// Spec.md §9 calls for exactly this shape in place of global renderer
// state — constructed once at the top of a run and dropped deterministically
// at the end, closing the browser.
type Context struct {
	RunID   string
	Log     *logrus.Entry
	Browser *browser.BrowserSession
	Touched cache.TouchedKeys
}

// NewContext launches a browser session and returns a ready Context.
func NewContext() (*Context, error) {
	runID := uuid.NewString()
	log := logging.New(runID)
	bs, err := browser.NewBrowserSession()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %v", err)
	}
	return &Context{RunID: runID, Log: log, Browser: bs}, nil
}

// Close tears the session down.
func (c *Context) Close() {
	c.Browser.Close()
}

// Run renders every requested output sequentially, each from a freshly
// re-parsed project document so no state leaks between outputs (spec.md
// §5), then reaps the overlay caches once every output has succeeded.
// A failure in any output aborts the whole batch without running the
// reaper (spec.md §7: stale cache entries are preserved for a retry).
func Run(ctx context.Context, opts Options, rc *Context) error {
	prober := opts.Prober
	if prober == nil {
		prober = probe.NewExecProber()
	}

	names := opts.OutputNames
	if len(names) == 0 {
		var err error
		names, err = discoverOutputNames(opts, prober)
		if err != nil {
			return err
		}
	}

	for _, name := range names {
		stageLog := logging.WithStage(rc.Log, string(compileerr.StageParse)).WithField("output", name)
		stageLog.Info("rendering output")
		if err := renderOne(ctx, opts, rc, prober, name); err != nil {
			return err
		}
	}

	cache.Reap([]string{
		filepath.Join(opts.ProjectDir, ".cache", "containers"),
		filepath.Join(opts.ProjectDir, "cache", "apps"),
	}, &rc.Touched, rc.Log)
	return nil
}

// discoverOutputNames parses the project once just to enumerate its
// <output> elements, independent of the per-output fresh rebuild Run
// performs for the actual compile.
func discoverOutputNames(opts Options, prober probe.Prober) ([]string, error) {
	doc, err := parseProject(opts)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range doc.Root.Find("output") {
		if name, ok := n.Attr("data-name"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func parseProject(opts Options) (*markup.Document, error) {
	path := filepath.Join(opts.ProjectDir, opts.projectFile())
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, compileerr.Wrap(compileerr.StageParse, fmt.Errorf("reading %s: %v", path, err))
	}
	doc, err := markup.ParseDocument(src)
	if err != nil {
		return nil, compileerr.Wrap(compileerr.StageParse, err)
	}
	return doc, nil
}

func renderOne(ctx context.Context, opts Options, rc *Context, prober probe.Prober, outputName string) error {
	doc, err := parseProject(opts)
	if err != nil {
		return err
	}

	proj, err := project.Build(ctx, doc, prober, opts.ProjectDir)
	if err != nil {
		return compileerr.Wrap(compileerr.StageProbe, err)
	}

	output, ok := proj.Outputs[outputName]
	if !ok {
		return compileerr.Wrap(compileerr.StageParse, fmt.Errorf("unknown output %q", outputName))
	}

	rasterized, err := rasterizeAll(rc, proj, output)
	if err != nil {
		return compileerr.Wrap(compileerr.StageRasterize, err)
	}

	dag := stream.New()
	images, err := timeline.Compile(dag, proj, output, rasterized)
	if err != nil {
		return compileerr.Wrap(compileerr.StageBuildGraph, err)
	}
	graph := dag.Render()

	assetInputs := collectAssetInputs(proj)
	cmd := assemble.Build(proj, output, graph, images, assetInputs, opts.DevMode)

	encodeLog := logging.WithStage(rc.Log, string(compileerr.StageEncode)).WithField("output", outputName)
	if err := assemble.Run(ctx, cmd, encodeLog); err != nil {
		return compileerr.Wrap(compileerr.StageEncode, err)
	}
	return nil
}

// collectAssetInputs finds the stable input index for every non-image
// asset referenced anywhere in the project, the plain `-i path` inputs
// the Command Assembler interleaves with looped image inputs.
func collectAssetInputs(proj *project.Project) []assemble.AssetInput {
	seen := map[int]bool{}
	var out []assemble.AssetInput
	for _, seq := range proj.Sequences {
		for _, f := range seq.Fragments {
			if f.Kind != project.ReferentAsset {
				continue
			}
			asset, ok := proj.Assets[f.Referent]
			if !ok || asset.Kind == project.KindImage || seen[f.InputIndex] {
				continue
			}
			seen[f.InputIndex] = true
			out = append(out, assemble.AssetInput{InputIndex: f.InputIndex, Path: asset.Path})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InputIndex < out[j].InputIndex })
	return out
}

// rasterizedSet implements timeline.Rasterized over a precomputed map built
// by rasterizeAll.
type rasterizedSet struct {
	paths map[string]string // "container:id" / "app:id" -> png path
}

func (r rasterizedSet) PNGPath(kind project.ReferentKind, id string) (string, bool) {
	p, ok := r.paths[string(kind)+":"+id]
	return p, ok
}

// rasterizeAll renders every container/app referenced by any fragment of
// any sequence at the given output's resolution, recording each content
// key as touched regardless of cache hit or miss (spec.md §4.5).
func rasterizeAll(rc *Context, proj *project.Project, output *project.Output) (rasterizedSet, error) {
	used := map[string]project.ReferentKind{}
	for _, seq := range proj.Sequences {
		for _, f := range seq.Fragments {
			if f.Kind == project.ReferentContainer || f.Kind == project.ReferentApp {
				used[f.Referent] = f.Kind
			}
		}
	}

	result := rasterizedSet{paths: map[string]string{}}
	containersDir := filepath.Join(proj.Dir, ".cache", "containers")
	appsDir := filepath.Join(proj.Dir, "cache", "apps")

	ids := make([]string, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		switch used[id] {
		case project.ReferentContainer:
			c, ok := proj.Containers[id]
			if !ok {
				return result, &compileerr.UnknownReference{TargetName: id, TargetKind: "container"}
			}
			key := browser.ContainerKey(c.InnerHTML, c.CSS, output.Width, output.Height)
			rc.Touched.Touch(key)
			path, err := browser.RasterizeContainer(rc.Browser, containersDir, key, c.InnerHTML, c.CSS, output.Width, output.Height)
			if err != nil {
				return result, err
			}
			result.paths["container:"+id] = path

		case project.ReferentApp:
			a, ok := proj.Apps[id]
			if !ok {
				return result, &compileerr.UnknownReference{TargetName: id, TargetKind: "app"}
			}
			key := browser.AppKey(a.SourceDir, a.Params, a.Title, a.Date, a.Tags, output.Name, output.Width, output.Height)
			rc.Touched.Touch(key)
			path, err := browser.RasterizeApp(rc.Browser, appsDir, key, a.SourceDir, a.Params, output.Width, output.Height, a.ID)
			if err != nil {
				return result, err
			}
			result.paths["app:"+id] = path
		}
	}
	return result, nil
}
