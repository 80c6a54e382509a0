package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/umlstream/pkg/config"
	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/pipeline"
)

// decodeCommand creates the decode command.
func (c *CLI) decodeCommand() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "decode <token>",
		Short: "Convert a URL token back to its diagram source",
		Long: `Convert a URL token back to its diagram source.

The backend decodes the token by default. --local decodes in-process, which
is also used for engines without a decoder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if err := umlerrors.ValidateToken(token); err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if local || cfg.Backend.Engine == config.EngineGraphviz {
				src, err := pipeline.NewRunner(client, nil, nil, c.Logger).Decode(cmd.Context(), token)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, src)
				return err
			}

			s, err := client.Decode(cmd.Context(), token, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := io.Copy(out, s.Out); err != nil {
				return err
			}
			return s.Wait()
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "decode in-process instead of through the backend")
	return cmd
}
