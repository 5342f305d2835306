package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/depdiscover/internal/storage"
)

// cacheCmd groups the cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the repository cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		fetcher := storage.NewFetcher(cfg.Cache.Dir, storage.WithFetcherLogger(GetLogger()))
		if err := fetcher.Clean(); err != nil {
			return err
		}
		GetLogger().Info("Removed %s", fetcher.CacheDir())
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd, cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
