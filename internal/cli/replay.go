package cli

import (
	"cmp"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

type replayOpts struct {
	output  string
	formats string
	hide    string
	noCache bool
}

// replayCommand feeds a captured event stream through the engine.
func (c *CLI) replayCommand() *cobra.Command {
	var opts replayOpts

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Render the graph resulting from a captured event stream",
		Long: `Read events from FILE (JSON lines or a raw Server-Sent Events capture, "-" for
stdin), apply them in order and write the final graph.

Malformed lines are reported and skipped.`,
		Example: `  curl -N http://docker-host:8080/api/events > capture.sse
  docker-graph replay capture.sse --format json,svg -o out`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("format") {
				c.Config.Watch.Formats = parseList(opts.formats)
			}
			if cmd.Flags().Changed("hide") {
				c.Config.Render.Hide = parseList(opts.hide)
			}
			if opts.output == "" {
				opts.output = c.Config.Watch.Output
			}
			return c.runReplay(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: json,dot,svg,png,pdf")
	cmd.Flags().StringVar(&opts.hide, "hide", "", "node kinds to hide")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

// replayStats is filled from the final flush.
type replayStats struct {
	events, skipped int
	nodes, links    int
}

func (c *CLI) runReplay(ctx context.Context, path string, opts replayOpts) error {
	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer in.Close()

	renderer, rc, err := c.newRenderer(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer rc.Close()

	popts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	// Only the final state matters.
	popts.Debounce = time.Hour

	var stats replayStats
	sink := pipeline.NewFileSink(opts.output, renderer, c.Config.Watch.Formats, c.Logger)
	runner, err := pipeline.NewRunner(popts, sink, pipeline.SinkFunc(func(_ context.Context, snap topology.Snapshot) error {
		stats.nodes, stats.links = len(snap.Nodes), len(snap.Links)
		return nil
	}))
	if err != nil {
		return err
	}
	if err := pipeline.ValidateFormats(sink.Formats); err != nil {
		return err
	}
	if err := pipeline.RequireConverter(sink.Formats); err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spinner := newReplaySpinner(ctx, c.logOutput, "Replaying "+path)
	spinner.Start()

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	feedErr := c.feed(ctx, events.NewReader(in), runner, &stats, spinner.Observe)
	runner.CloseInput()
	runErr := <-done

	if err := cmp.Or(feedErr, runErr); err != nil {
		spinner.StopWithError("Replay failed")
		prog.failed("replay failed", err, "events", stats.events)
		return err
	}
	spinner.StopWithSuccess("Graph written")

	prog.done("replay complete", "events", stats.events, "skipped", stats.skipped)
	printStats(stats.nodes, stats.links, stats.skipped)
	for _, format := range sink.Formats {
		printFile(sink.Path(format))
	}
	return nil
}

// feed submits every event of r. Malformed lines are skipped. observe is
// called with the running counts after every line.
func (c *CLI) feed(ctx context.Context, r *events.Reader, runner *pipeline.Runner, stats *replayStats, observe func(events, skipped int)) error {
	for {
		observe(stats.events, stats.skipped)
		e, err := r.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if errors.Is(err, errors.ErrCodeInvalidEvent) {
				c.Logger.Warn("skipped malformed event", "error", err)
				stats.skipped++
				continue
			}
			return fmt.Errorf("read events: %w", err)
		}
		if err := runner.Submit(ctx, e); err != nil {
			return err
		}
		stats.events++
	}
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, err
	}
	return f, nil
}
