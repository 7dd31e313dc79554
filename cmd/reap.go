package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"stsc/cache"
	"stsc/logging"
)

var reapCmd = &cobra.Command{
	Use:   "reap <project-dir>",
	Short: "Clear the overlay rasterization cache",
	Long: `reap runs the Cache Reaper standalone against the project's current
cache contents, first validating the project still parses. Since no
rasterization runs outside a full compile, the touched set is empty and
every cached overlay PNG is removed — use this to force every container
and app to re-rasterize on the next compile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := validateProject(dir); err != nil {
			return err
		}
		log := logging.New("reap")
		var touched cache.TouchedKeys
		cache.Reap([]string{
			filepath.Join(dir, ".cache", "containers"),
			filepath.Join(dir, "cache", "apps"),
		}, &touched, log)
		fmt.Println("reaped", dir)
		return nil
	},
}
