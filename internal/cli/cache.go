package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adirelle/docker-graph/pkg/cache"
	"github.com/Adirelle/docker-graph/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the render cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached render",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.pruneCache(cmd, true)
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand.
func (c *CLI) cachePruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cached renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.pruneCache(cmd, false)
		},
	}
}

func (c *CLI) pruneCache(cmd *cobra.Command, all bool) error {
	fc, err := c.fileCache()
	if err != nil {
		return err
	}
	n, err := fc.Prune(cmd.Context(), all)
	if err != nil {
		return err
	}
	loggerFromContext(cmd.Context()).Debug("pruned cache", "dir", fc.Dir(), "all", all, "removed", n)
	if n == 0 {
		printInfo("Nothing to remove")
	} else {
		printSuccess("Removed %d cached entries", n)
	}
	printDetail("Directory: %s", fc.Dir())
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheDir returns the configured file cache directory.
func (c *CLI) cacheDir() (string, error) {
	if dir := c.Config.Cache.Dir; dir != "" {
		return dir, nil
	}
	return cache.DefaultDir()
}

// fileCache opens the file cache. Other backends manage expiration
// themselves and are not handled by the cache commands.
func (c *CLI) fileCache() (*cache.FileCache, error) {
	if b := c.Config.Cache.Backend; b != cache.BackendFile {
		return nil, errors.New(errors.ErrCodeUnsupported, "cache commands only manage the file backend (configured: %s)", b)
	}
	dir, err := c.cacheDir()
	if err != nil {
		return nil, err
	}
	return cache.NewFileCache(dir)
}
