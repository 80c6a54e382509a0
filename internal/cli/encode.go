package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
)

// encodeCommand creates the encode command, which computes tokens
// in-process.
func (c *CLI) encodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode [file|source]",
		Short: "Convert a diagram source to its URL token",
		Long: `Convert a diagram source to the compressed token used in PlantUML server URLs.

An argument naming an existing file is read from disk; any other argument is
encoded as inline source. Without an argument the source is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}

			values := make([]any, 0, 1)
			for _, a := range args {
				values = append(values, a)
			}
			s := client.Encode(cmd.Context(), values...)
			defer s.Close()

			if s.In != nil {
				if _, err := io.Copy(s.In, cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				s.In.Close()
			}

			out, err := s.Collect()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// encodeFileCommand creates the encode-file command, which asks the
// backend for the token of a file.
func (c *CLI) encodeFileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode-file <file>",
		Short: "Ask the backend to encode a diagram file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return umlerrors.Wrap(umlerrors.ErrCodeFileNotFound, err, "diagram file")
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			client, err := c.newClient(cfg)
			if err != nil {
				return err
			}

			s, err := client.EncodeFile(cmd.Context(), path, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := s.Collect()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
