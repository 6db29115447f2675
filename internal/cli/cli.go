package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Adirelle/docker-graph/internal/config"
	"github.com/Adirelle/docker-graph/pkg/buildinfo"
	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/pipeline"
	"github.com/Adirelle/docker-graph/pkg/render/nodelink"
)

// =============================================================================
// Constants
// =============================================================================

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	logOutput  io.Writer
	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		Config:    config.Default(),
		logOutput: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "docker-graph",
		Short: "docker-graph shows the live topology of a Docker host",
		Long: `docker-graph tracks containers, networks, volumes, images and published
ports of a Docker host and renders them as a graph that follows every change.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/docker-graph/config.toml)")

	root.AddCommand(c.watchCommand())
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// setup loads the configuration and attaches the logger to the command
// context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.verbose {
		c.SetLogLevel(logLevel(true))
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Rendering Factory
// =============================================================================

// openCache opens the configured render cache, or a null cache when
// disabled.
func (c *CLI) openCache(ctx context.Context, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	rc, err := cache.Open(ctx, c.Config.Cache.CacheOptions())
	if err != nil {
		return nil, err
	}
	return cache.Instrumented(rc, "render"), nil
}

// newRenderer builds a renderer over the configured cache. The returned
// cache must be closed by the caller.
func (c *CLI) newRenderer(ctx context.Context, noCache bool) (*pipeline.Renderer, cache.Cache, error) {
	rc, err := c.openCache(ctx, noCache)
	if err != nil {
		return nil, nil, err
	}
	r := pipeline.NewRenderer(rc, c.dotOptions(), c.Logger)
	if c.Config.Cache.TTL > 0 {
		r.TTL = c.Config.Cache.TTL
	}
	return r, rc, nil
}

func (c *CLI) dotOptions() nodelink.Options {
	return nodelink.Options{
		Detailed: c.Config.Render.Detailed,
		Icons:    c.Config.Render.Icons,
		RankDir:  c.Config.Render.RankDir,
	}
}

// pipelineOptions builds runner options from the configuration.
func (c *CLI) pipelineOptions() (pipeline.Options, error) {
	hide, err := c.Config.Render.HiddenKinds()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{Hide: hide, Logger: c.Logger}, nil
}
