package cli

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/stream"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

type watchOpts struct {
	output    string
	formats   string
	hide      string
	debounce  time.Duration
	reconnect time.Duration
	noCache   bool
	tui       bool
}

// watchCommand follows a remote event stream and rewrites the graph files
// on every change.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch [URL]",
		Short: "Follow an event stream and keep graph files up to date",
		Long: `Connect to the Server-Sent Events endpoint of a docker-graph server (or any
compatible producer), maintain the topology graph and write graph.<format>
files to the output directory after every burst of changes.

The URL defaults to watch.url from the config file.`,
		Example: `  docker-graph watch http://docker-host:8080/api/events
  docker-graph watch --output /srv/www --format json,svg --tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyWatchFlags(cmd, &opts)
			url := c.Config.Watch.URL
			if len(args) == 1 {
				url = args[0]
			}
			return c.runWatch(cmd.Context(), url, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: json,dot,svg,png,pdf")
	cmd.Flags().StringVar(&opts.hide, "hide", "", "node kinds to hide (e.g. port,host-ip)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "quiet period before writing files")
	cmd.Flags().DurationVar(&opts.reconnect, "reconnect", 0, "minimum delay between connection attempts")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show a live dashboard")

	return cmd
}

// applyWatchFlags overrides the configuration with the flags the user set.
func (c *CLI) applyWatchFlags(cmd *cobra.Command, opts *watchOpts) {
	cfg := &c.Config
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Watch.Output = opts.output
	}
	if flags.Changed("format") {
		cfg.Watch.Formats = parseList(opts.formats)
	}
	if flags.Changed("hide") {
		cfg.Render.Hide = parseList(opts.hide)
	}
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = opts.debounce
	}
	if flags.Changed("reconnect") {
		cfg.Watch.Reconnect = opts.reconnect
	}
}

func (c *CLI) runWatch(ctx context.Context, url string, opts watchOpts) error {
	if err := errors.ValidateStreamURL(url); err != nil {
		return err
	}
	if err := pipeline.ValidateFormats(c.Config.Watch.Formats); err != nil {
		return err
	}
	if err := pipeline.RequireConverter(c.Config.Watch.Formats); err != nil {
		return err
	}

	renderer, rc, err := c.newRenderer(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer rc.Close()

	popts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	popts.Debounce = c.Config.Watch.Debounce

	sink := pipeline.NewFileSink(c.Config.Watch.Output, renderer, c.Config.Watch.Formats, c.Logger)
	runner, err := pipeline.NewRunner(popts)
	if err != nil {
		return err
	}

	connector := stream.NewConnector(url, c.Logger)
	if c.Config.Watch.Reconnect > 0 {
		connector.MinInterval = c.Config.Watch.Reconnect
	}

	if opts.tui {
		return c.runDashboard(ctx, url, runner, sink, connector)
	}
	runner.AddSink(sink)

	connector.OnStatus = func(s stream.Status) {
		c.Logger.Info("stream "+s.String(), "url", url)
	}
	runner.AddSink(pipeline.SinkFunc(func(_ context.Context, snap topology.Snapshot) error {
		c.Logger.Info("graph updated", "nodes", len(snap.Nodes), "links", len(snap.Links), "output", c.Config.Watch.Output)
		return nil
	}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return connector.Run(ctx, runner.Handler(ctx)) })
	return g.Wait()
}

// runDashboard runs the pipeline under a bubbletea dashboard. Logs are
// silenced while the dashboard owns the terminal.
func (c *CLI) runDashboard(ctx context.Context, url string, runner *pipeline.Runner, sink pipeline.Sink, connector *stream.Connector) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewDashboardModel(url, c.Config.Watch.Output), tea.WithContext(ctx))
	connector.OnStatus = func(s stream.Status) { program.Send(statusMsg(s)) }
	runner.AddSink(dashboardSink(sink, program.Send))

	c.Logger.SetOutput(io.Discard)
	defer c.Logger.SetOutput(c.logOutput)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return connector.Run(gctx, runner.Handler(gctx)) })

	_, runErr := program.Run()
	cancel()
	if err := g.Wait(); err != nil && !stderrors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil && !stderrors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

// dashboardSink flushes to sink and reports the outcome, including write
// failures, to the dashboard through send.
func dashboardSink(sink pipeline.Sink, send func(tea.Msg)) pipeline.Sink {
	return pipeline.SinkFunc(func(ctx context.Context, snap topology.Snapshot) error {
		err := sink.Flush(ctx, snap)
		send(newFlushMsg(snap, err))
		return err
	})
}

// parseList splits a comma-separated flag value.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
