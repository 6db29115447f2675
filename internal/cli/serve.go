package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adirelle/docker-graph/internal/server"
	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/observability"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/source/docker"
	"github.com/Adirelle/docker-graph/pkg/stream"
)

type serveOpts struct {
	listen     string
	dockerHost string
	hide       string
	debounce   time.Duration
	noCache    bool
}

// serveCommand watches the local Docker engine and serves its topology.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch a Docker engine and serve its topology over HTTP",
		Long: `Follow the events of a Docker engine and expose them as a Server-Sent Events
stream, along with the current graph as JSON, DOT and SVG.

The engine is reached through the standard DOCKER_HOST environment unless
--docker-host or serve.docker_host is set.`,
		Example: `  docker-graph serve --listen :8080
  docker-graph serve --docker-host tcp://10.0.0.2:2375 --hide port,host-ip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyServeFlags(cmd, &opts)
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address")
	cmd.Flags().StringVar(&opts.dockerHost, "docker-host", "", "Docker engine address")
	cmd.Flags().StringVar(&opts.hide, "hide", "", "node kinds to hide (e.g. port,host-ip)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "quiet period before publishing the graph")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

func (c *CLI) applyServeFlags(cmd *cobra.Command, opts *serveOpts) {
	cfg := &c.Config
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Serve.Listen = opts.listen
	}
	if flags.Changed("docker-host") {
		cfg.Serve.DockerHost = opts.dockerHost
	}
	if flags.Changed("hide") {
		cfg.Render.Hide = parseList(opts.hide)
	}
	if flags.Changed("debounce") {
		cfg.Serve.Debounce = opts.debounce
	}
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	if err := errors.ValidateListenAddr(c.Config.Serve.Listen); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observability.NewPrometheus(reg).Install()
	defer observability.Reset()

	renderer, rc, err := c.newRenderer(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer rc.Close()

	popts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	popts.Debounce = c.Config.Serve.Debounce
	runner, err := pipeline.NewRunner(popts)
	if err != nil {
		return err
	}

	hub := stream.NewHub(c.Logger)
	srv := server.New(server.Options{
		Hub:      hub,
		Renderer: renderer,
		Layout:   runner,
		Gatherer: reg,
		Logger:   c.Logger,
	})
	runner.AddSink(srv)

	cli, err := docker.NewClient(c.Config.Serve.DockerHost)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "create docker client")
	}
	defer cli.Close()

	source := docker.New(cli, c.Logger)
	if c.Config.Serve.InspectDelay > 0 {
		source.InspectDelay = c.Config.Serve.InspectDelay
	}

	g, ctx := errgroup.WithContext(ctx)
	submit := runner.Handler(ctx)
	handle := func(e events.Event) {
		hub.Publish(e)
		submit(e)
	}
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return source.Run(ctx, handle) })
	g.Go(func() error { return srv.ListenAndServe(ctx, c.Config.Serve.Listen) })
	return g.Wait()
}
