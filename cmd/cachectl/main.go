// cachectl is the operator CLI for the cache layer. It reads the store
// connection settings from the environment (see the config package) and
// exposes the administrative surface: statistics, pattern invalidation,
// full clear and a connectivity check.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexigraph/cachefront/cache"
	"github.com/lexigraph/cachefront/config"
	"github.com/lexigraph/cachefront/logger"
	"github.com/lexigraph/cachefront/store"
)

func newCache(ctx context.Context, log logger.Logger) (*cache.Cache, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	st := store.New(ctx, log, cfg)
	return cache.New(st, cache.PolicyFromConfig(cfg), log), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newStatsCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCache(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer c.Close()
			return printJSON(c.Stats(cmd.Context()))
		},
	}
}

func newInvalidateCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <pattern>",
		Short: "Delete every entry matching a glob pattern (e.g. 'chat:*')",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCache(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer c.Close()
			deleted, err := c.InvalidatePattern(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"pattern": args[0], "deleted_count": deleted})
		},
	}
}

func newClearCmd(log logger.Logger) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete ALL cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("clear deletes every cached entry; re-run with --yes to confirm")
			}
			c, err := newCache(cmd.Context(), log)
			if err != nil {
				return err
			}
			defer c.Close()
			deleted, err := c.ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"deleted_count": deleted})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive clear")
	return cmd
}

func newPingCmd(log logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check store connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st := store.New(cmd.Context(), log, cfg)
			defer st.Close()
			if err := st.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("store at %s unreachable: %w", cfg.Addr(), err)
			}
			fmt.Printf("store at %s is reachable\n", cfg.Addr())
			return nil
		},
	}
}

func main() {
	log := logger.NewConsoleLogger()

	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "Administer the cache layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newStatsCmd(log),
		newInvalidateCmd(log),
		newClearCmd(log),
		newPingCmd(log),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}
}
