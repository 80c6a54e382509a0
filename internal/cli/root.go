package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/umlstream/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "umlstream renders PlantUML diagrams through streams",
		Long: `umlstream drives a PlantUML backend through its standard streams: it renders
diagrams to PNG, SVG or text art, converts sources to and from URL tokens,
and serves the same operations over HTTP.`,
		Version:      buildinfo.Resolved(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config-file", c.ConfigPath, "config file (default: ~/.config/umlstream/config.toml)")

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.encodeCommand())
	root.AddCommand(c.encodeFileCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
