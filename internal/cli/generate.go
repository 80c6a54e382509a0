package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	umlerrors "github.com/matzehuels/umlstream/pkg/errors"
	"github.com/matzehuels/umlstream/pkg/pipeline"
	"github.com/matzehuels/umlstream/pkg/plantuml"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	output  string // output file, directory for several inputs, or "-" for stdout
	format  string // png, svg, ascii or unicode; config default when empty
	config  string // template key or style file path
	jobs    int    // concurrent backends
	noCache bool   // bypass the artifact cache entirely
	refresh bool   // re-render and overwrite cached artifacts
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{jobs: defaultJobs}

	cmd := &cobra.Command{
		Use:     "generate [file...]",
		Aliases: []string{"render"},
		Short:   "Render diagrams to PNG, SVG or text art",
		Long: `Render PlantUML sources through the configured backend.

Without arguments the source is read from stdin and the diagram written to
stdout (or --output). With files, each diagram is written next to its source
with the format's extension, or into --output when it names a directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, or directory for several inputs")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: png, svg, ascii, unicode")
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "style template (classic, monochrome) or style file path")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", opts.jobs, "diagrams rendered concurrently")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render even when cached")
	registerRenderCompletions(cmd, "png", "svg", "ascii", "unicode")

	return cmd
}

func (c *CLI) runGenerate(ctx context.Context, stdin io.Reader, stdout io.Writer, files []string, opts generateOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	render := cfg.RenderOptions()
	if opts.format != "" {
		if render.Format, err = parseFormatFlag(opts.format); err != nil {
			return err
		}
	}
	if opts.config != "" {
		render.Config = opts.config
	}

	r, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer r.Close()

	if len(files) == 0 {
		return c.generateStdin(ctx, r, stdin, stdout, render, opts)
	}
	return c.generateFiles(ctx, r, stdout, files, render, opts)
}

// generateStdin renders one source read from stdin.
func (c *CLI) generateStdin(ctx context.Context, r *pipeline.Runner, stdin io.Reader, stdout io.Writer, render plantuml.Options, opts generateOpts) error {
	src, err := io.ReadAll(io.LimitReader(stdin, umlerrors.MaxSourceLength+1))
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	res, err := r.Render(ctx, pipeline.Request{
		Source:  string(src),
		Format:  render.Format,
		Config:  render.Config,
		Refresh: opts.refresh,
	})
	if err != nil {
		return err
	}

	if opts.output == "" || opts.output == "-" {
		_, err = stdout.Write(res.Data)
		return err
	}
	if err := writeArtifact(opts.output, res.Data); err != nil {
		return err
	}
	printSuccess("Rendered diagram")
	printFile(opts.output)
	printStats(len(res.Data), res.Duration, res.CacheHit)
	return nil
}

// generateFiles renders every file, at most opts.jobs at a time. All
// files are attempted; the first failure is returned.
func (c *CLI) generateFiles(ctx context.Context, r *pipeline.Runner, stdout io.Writer, files []string, render plantuml.Options, opts generateOpts) error {
	outputs, err := outputPaths(files, opts.output, render.Format)
	if err != nil {
		return err
	}

	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	var spin *spinner
	if len(files) > 1 {
		spin = newSpinner(ctx, "Rendering diagrams", len(files))
		spin.Start()
	}

	results := make([]*pipeline.Result, len(files))
	var g errgroup.Group
	g.SetLimit(max(opts.jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			res, err := renderFile(ctx, r, file, render, opts.refresh)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if outputs[i] == "-" {
				_, err = stdout.Write(res.Data)
			} else {
				err = writeArtifact(outputs[i], res.Data)
			}
			if err != nil {
				return err
			}
			results[i] = res
			spin.Advance()
			logger.Debug("rendered", "file", file, "output", outputs[i], "cached", res.CacheHit)
			return nil
		})
	}
	err = g.Wait()

	if spin != nil {
		spin.Stop()
	}

	rendered := 0
	for i, res := range results {
		if res == nil || outputs[i] == "-" {
			continue
		}
		rendered++
		printFile(outputs[i])
		printStats(len(res.Data), res.Duration, res.CacheHit)
	}
	if err != nil {
		if rendered > 0 {
			printWarning("%d of %d diagrams rendered", rendered, len(files))
		}
		return err
	}
	if rendered > 0 {
		prog.done("rendered diagrams", "count", rendered, "jobs", opts.jobs)
	}
	return nil
}

func renderFile(ctx context.Context, r *pipeline.Runner, path string, render plantuml.Options, refresh bool) (*pipeline.Result, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, umlerrors.Wrap(umlerrors.ErrCodeFileNotFound, err, "read source")
	}
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return r.Render(ctx, pipeline.Request{
		Source:  string(data),
		Format:  render.Format,
		Config:  render.Config,
		Refresh: refresh,
	})
}

// outputPaths maps each input file to its artifact path. A single input
// writes to output when given; several inputs treat output as a
// directory. Without output, artifacts land next to their sources.
func outputPaths(files []string, output string, format plantuml.Format) ([]string, error) {
	ext := "." + format.Extension()
	if len(files) == 1 && output != "" {
		return []string{output}, nil
	}
	if output == "-" {
		return nil, umlerrors.New(umlerrors.ErrCodeInvalidInput, "cannot write %d diagrams to stdout", len(files))
	}

	paths := make([]string, len(files))
	seen := make(map[string]string, len(files))
	for i, file := range files {
		base := strings.TrimSuffix(file, filepath.Ext(file))
		if output != "" {
			base = filepath.Join(output, filepath.Base(base))
		}
		p := base + ext
		if prev, ok := seen[p]; ok {
			return nil, umlerrors.New(umlerrors.ErrCodeInvalidInput, "%s and %s both render to %s", prev, file, p)
		}
		seen[p] = file
		paths[i] = p
	}
	return paths, nil
}

// writeArtifact writes data to path, creating parent directories.
func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// parseFormatFlag accepts the format names and the backend's txt/utxt aliases.
func parseFormatFlag(s string) (plantuml.Format, error) {
	f := plantuml.ParseFormat(s)
	if f == plantuml.FormatPNG && !strings.EqualFold(strings.TrimSpace(s), "png") {
		return "", umlerrors.New(umlerrors.ErrCodeInvalidFormat, "format %q (must be one of: png, svg, ascii, unicode)", s)
	}
	return f, nil
}
