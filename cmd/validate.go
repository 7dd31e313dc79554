package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stsc/compileerr"
	"stsc/markup"
	"stsc/probe"
	"stsc/project"
	"stsc/timeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate <project-dir>",
	Short: "Parse, probe, and resolve a project without rendering",
	Long: `validate runs the compiler up through expression resolution —
parsing the document, probing every referenced asset, and resolving
fragment timing — without rasterizing overlays or invoking the encoder.
Intended for CI: a clean exit means the project is renderable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateProject(args[0]); err != nil {
			fmt.Fprintln(os.Stderr, explain(err))
			return err
		}
		fmt.Println("ok:", args[0])
		return nil
	},
}

func validateProject(dir string) error {
	proj, err := buildProjectOnly(dir)
	if err != nil {
		return err
	}
	if err := timeline.ResolveAll(proj); err != nil {
		return compileerr.Wrap(compileerr.StageResolve, err)
	}
	return nil
}

// buildProjectOnly runs Parse and Probe only, the shared prefix validate,
// reap, and upload-config show all need before their own next step.
func buildProjectOnly(dir string) (*project.Project, error) {
	src, err := os.ReadFile(filepath.Join(dir, "project.html"))
	if err != nil {
		return nil, compileerr.Wrap(compileerr.StageParse, err)
	}
	doc, err := markup.ParseDocument(src)
	if err != nil {
		return nil, compileerr.Wrap(compileerr.StageParse, err)
	}
	proj, err := project.Build(context.Background(), doc, probe.NewExecProber(), dir)
	if err != nil {
		return nil, compileerr.Wrap(compileerr.StageProbe, err)
	}
	return proj, nil
}
