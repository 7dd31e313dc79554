package cmd

import (
	"errors"
	"fmt"

	"stsc/compileerr"
)

// exitCodeFor maps a compile error to spec.md §6's exit code table: 0
// success (never reached here), 1 compiler/user error, 2 external-tool
// failure, 3 cancellation.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var cancelled *compileerr.Cancelled
	if errors.As(err, &cancelled) {
		return 3
	}
	var encNotFound *compileerr.EncoderNotFound
	var encFailed *compileerr.EncoderFailed
	var containerFailed *compileerr.ContainerRenderFailed
	var appTimeout *compileerr.AppRenderTimeout
	var probeFailed *compileerr.AssetProbeFailed
	switch {
	case errors.As(err, &encNotFound),
		errors.As(err, &encFailed),
		errors.As(err, &containerFailed),
		errors.As(err, &appTimeout),
		errors.As(err, &probeFailed):
		return 2
	}
	return 1
}

// explain renders err the way the CLI reports failures: a short message by
// default, or the full wrapped chain (stage by stage) in debug mode.
func explain(err error) string {
	if !debugMode {
		return err.Error()
	}
	var b string
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if b != "" {
			b += "\n  caused by: "
		}
		b += fmt.Sprintf("%v", cur)
	}
	return b
}
