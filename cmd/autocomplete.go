package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAutocompleteCmd generates shell completion scripts for assetpipe.
func NewAutocompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "autocomplete [shell]",
		Short: "Generate autocomplete script for your shell",
		Long: `Generate an autocomplete script for the assetpipe CLI.
Supported shells are bash, zsh and fish.`,
		DisableFlagsInUseLine: true,
		Hidden:                true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}
