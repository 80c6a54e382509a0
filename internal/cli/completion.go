package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// completionCommand prints a shell completion script to stdout.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for umlstream.

Load it for the current session:

  bash:        source <(umlstream completion bash)
  zsh:         source <(umlstream completion zsh)
  fish:        umlstream completion fish | source
  powershell:  umlstream completion powershell | Out-String | Invoke-Expression

Completions cover subcommands, --format values and the built-in
--config templates; --config also completes style file paths.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// registerRenderCompletions wires value completion for a command's
// --format and --config flags. formats lists the accepted format names.
func registerRenderCompletions(cmd *cobra.Command, formats ...string) {
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion(formats, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("config", fixedCompletion(
		[]string{plantuml.TemplateClassic, plantuml.TemplateMonochrome},
		cobra.ShellCompDirectiveDefault,
	))
}

// fixedCompletion completes the values starting with the typed prefix.
func fixedCompletion(values []string, directive cobra.ShellCompDirective) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				out = append(out, v)
			}
		}
		return out, directive
	}
}
