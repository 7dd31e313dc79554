package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"stsc/render"
)

var (
	compileOutputs []string
	compileDev     bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <project-dir>",
	Short: "Render one or all outputs of a project",
	Long: `compile runs the full render state machine — parse, probe, resolve
expressions, rasterize overlays, build the filter graph, encode, and reap
the overlay cache — for every output named in the project document, or the
subset given with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rc, err := render.NewContext()
		if err != nil {
			return err
		}
		defer rc.Close()

		opts := render.Options{
			ProjectDir:  args[0],
			OutputNames: compileOutputs,
			DevMode:     compileDev,
		}
		if err := render.Run(ctx, opts, rc); err != nil {
			fmt.Fprintln(os.Stderr, explain(err))
			return err
		}
		fmt.Println("compiled", args[0])
		return nil
	},
}

func init() {
	compileCmd.Flags().StringSliceVar(&compileOutputs, "output", nil, "render only these output names (default: all)")
	compileCmd.Flags().BoolVar(&compileDev, "dev", devModeFromEnv(), "use the fast ultrafast encoder preset for local iteration (default from $STSC_DEV)")
}

// devModeFromEnv reads STSC_DEV as the --dev flag's default, falling back to
// false when unset or unparseable, the same env-override-with-fallback
// pattern logging.go uses for LOG_LEVEL.
func devModeFromEnv() bool {
	v, ok := os.LookupEnv("STSC_DEV")
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// signalContext returns a context cancelled on SIGINT/SIGTERM, the
// cancellation path asset probing and the encoder run (assemble.Run) both
// watch; overlay rasterization does not take the context.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
