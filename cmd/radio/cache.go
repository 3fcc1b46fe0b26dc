package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maine/publishing_radio/internal/cache"
	"github.com/maine/publishing_radio/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the processed-articles cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live cache records",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		store, closeCache, err := cache.Open(cmd.Context(), cfg.Cache, config.LoadStoreEnv().RedisPassword, nil)
		if err != nil {
			return err
		}
		defer closeCache()

		records := store.Load(cmd.Context())
		urls := make([]string, 0, len(records))
		for url := range records {
			urls = append(urls, url)
		}
		sort.Strings(urls)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tREASON\tTITLE\tURL")
		for _, url := range urls {
			rec := records[url]
			reason := string(rec.FilterReason)
			if reason == "" {
				reason = "accepted"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Timestamp, reason, rec.Data.Title, url)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("%d record(s)\n", len(records))
		return nil
	},
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove one URL from the cache so the next run processes it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		store, closeCache, err := cache.Open(cmd.Context(), cfg.Cache, config.LoadStoreEnv().RedisPassword, nil)
		if err != nil {
			return err
		}
		defer closeCache()

		if err := store.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("remove %s: %w", args[0], err)
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheRemoveCmd)
}
