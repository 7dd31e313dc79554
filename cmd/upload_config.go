package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"stsc/project"
)

var uploadConfigCmd = &cobra.Command{
	Use:   "upload-config",
	Short: "Inspect the project's upload configuration",
}

var uploadConfigShowCmd = &cobra.Command{
	Use:   "show <project-dir>",
	Short: "Print every parsed upload target, performing no network calls",
	Long: `show parses the project's <upload> block and prints the platform,
auth file path, and target output for each entry. Upload/auth flows are
out of scope for the compiler (spec.md §1); this surfaces the parsed
contract without acting on it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		proj, err := buildProjectOnly(dir)
		if err != nil {
			fmt.Println(explain(err))
			return err
		}
		printUploads(proj)
		return nil
	},
}

func printUploads(proj *project.Project) {
	if len(proj.Uploads) == 0 {
		fmt.Println("no upload targets configured")
		return
	}
	names := make([]string, 0, len(proj.Uploads))
	for name := range proj.Uploads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u := proj.Uploads[name]
		fmt.Printf("%s: platform=%s output=%s auth=%s\n", name, u.Platform, u.OutputName, u.AuthPath)
	}
}

func init() {
	uploadConfigCmd.AddCommand(uploadConfigShowCmd)
}
