package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"BountyBot/internal/biz"
	"BountyBot/internal/conf"
	"BountyBot/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func breakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect and reset circuit breakers",
	}
	cmd.AddCommand(breakerStatsCmd())
	cmd.AddCommand(breakerResetCmd())
	return cmd
}

func breakerStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the stored state of every breaker",
		Long: `Show the stored state of every breaker.
The state is read as stored: an OPEN breaker whose reset timeout elapsed is not probed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, cleanup, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			stats, err := registry.Peek(ctx)
			if err != nil {
				return fmt.Errorf("read breakers: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATE\tFAILURES\tSUCCESSES\tOPENED AT")
			for _, s := range stats {
				openedAt := "-"
				if s.OpenedAt != nil {
					openedAt = s.OpenedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", s.Name, s.State, s.Failures, s.Successes, openedAt)
			}
			return w.Flush()
		},
	}
}

func breakerResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [name]",
		Short: "Force a breaker CLOSED and clear its counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, cleanup, err := openRegistry(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cb, ok := registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown breaker %q (known: %v)", args[0], registry.Names())
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := cb.Reset(ctx); err != nil {
				return fmt.Errorf("reset %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "breaker %s reset to CLOSED\n", args[0])
			return nil
		},
	}
}

// openRegistry builds the breaker registry over the configured counter store.
// Only warnings and errors are logged, to stderr, so stdout stays parseable.
func openRegistry(cmd *cobra.Command) (*biz.BreakerRegistry, func(), error) {
	path, _ := cmd.Flags().GetString("conf")
	bc, err := conf.NewBootstrap(path)
	if err != nil {
		return nil, nil, err
	}

	logger := log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn))

	var rdb *redis.Client
	cleanup := func() {}
	if bc.Breaker.Store == conf.StoreRedis {
		rdb, cleanup, err = data.NewRedisClient(bc.Data, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	store := biz.NewCounterStore(bc.Breaker, rdb, logger)
	return biz.NewBreakerRegistryFromConf(bc.Breaker, store, nil, logger), cleanup, nil
}
