package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/cutout/internal/server"
	"github.com/matzehuels/cutout/internal/telemetry"
	"github.com/matzehuels/cutout/pkg/cache"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	transform transformFlags

	addr      string
	noMetrics bool
	noCache   bool
}

// serveCommand creates the serve command for the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Run the HTTP service.

The config file and transform flags set the defaults for requests that do not
carry their own config. Sampled holes are cached in the configured backend,
so a Redis cache lets several replicas share them.`,
		Example: `  cutout serve --addr :8080
  CUTOUT_CACHE__BACKEND=redis CUTOUT_CACHE__REDIS_ADDR=localhost:6379 cutout serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	opts.transform.register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.addr, "addr", "", "listen address (default from config, then :8080)")
	f.BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the params cache")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	f, err := c.loadConfig()
	if err != nil {
		return err
	}
	// Validate the defaults before binding the port.
	if _, err := opts.transform.resolve(f); err != nil {
		return err
	}
	addr := opts.addr
	if addr == "" {
		addr = f.Server.Addr
	}

	runner, err := c.newRunner(ctx, f, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()
	// Entries written by the service stay apart from CLI runs on a shared backend.
	runner.Keyer = cache.NewScopedKeyer(runner.Keyer, "api:")

	srvOpts := server.Options{
		Defaults:    f,
		MaxUploadMB: f.Server.MaxUploadMB,
		Logger:      logger,
	}
	if !opts.noMetrics {
		m := telemetry.New()
		m.Install()
		srvOpts.Metrics = m.Handler()
	}

	srv, err := server.New(runner, srvOpts)
	if err != nil {
		return err
	}
	printInfo("Listening on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
