package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/umlstream/internal/server"
	"github.com/matzehuels/umlstream/pkg/observability"
)

// sampleSource is rendered in the hint printed at startup.
const sampleSource = "Bob -> Alice : hello"

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Long: `Serve PlantUML-server-style URLs:

  GET  /{png|svg|txt|utxt}/{token}
  POST /{png|svg|txt|utxt}
  POST /encode
  GET  /decode/{token}
  GET  /stats
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			r, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer r.Close()

			stats := observability.NewStats()
			observability.Register(stats)
			defer observability.Reset()

			srv := server.New(r, server.Options{
				Rate:        cfg.Server.Rate,
				Burst:       cfg.Server.Burst,
				CORSOrigins: cfg.Server.CORSOrigins,
				Logger:      c.Logger,
				Stats:       stats,
			})

			base := displayURL(cfg.Server.Addr)
			printSuccess("Serving on %s", StyleLink.Render(base))
			printKeyValue("engine", cfg.Backend.Engine)
			printKeyValue("cache", cfg.Cache.Backend)
			if token, err := r.Encode(ctx, sampleSource); err == nil {
				printNextStep("Try", "curl "+base+"/txt/"+token)
			}

			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	return cmd
}

// displayURL turns a listen address into a URL a local client can open.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
