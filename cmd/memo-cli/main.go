package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/agentuity/go-memo/cache"
	"github.com/agentuity/go-memo/env"
	"github.com/agentuity/go-memo/scenario"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "memo-cli",
		Short:        "Replay cache scripts and inspect cache keys",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error, none); defaults to $MEMO_LOG_LEVEL or info")
	root.AddCommand(newRunCommand(), newKeyCommand())
	return root
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script.yaml>...",
		Short: "Run scenario scripts against a fresh cache each",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := env.NewLogger(cmd)
			virtual, _ := cmd.Flags().GetBool("virtual-time")
			singleFlight, _ := cmd.Flags().GetBool("single-flight")
			for _, path := range args {
				script, err := scenario.Load(path)
				if err != nil {
					return err
				}
				var clock scenario.Clock = scenario.RealClock{}
				if virtual {
					clock = scenario.NewManualClock(time.Now())
				}
				var opts []cache.Option
				if singleFlight {
					opts = append(opts, cache.WithSingleFlight())
				}
				runner := scenario.NewRunner(cmd.OutOrStdout(), clock, log, opts...)
				if err := runner.Run(cmd.Context(), script); err != nil {
					log.Error("%s: %s", path, err)
					return err
				}
				stats := runner.Cache().Stats()
				log.Info("%s: ok (hits=%d misses=%d stale=%d computes=%d)", path, stats.Hits, stats.Misses, stats.Stale, stats.Computes)
			}
			return nil
		},
	}
	cmd.Flags().Bool("virtual-time", false, "advance a simulated clock on sleep steps instead of sleeping")
	cmd.Flags().Bool("single-flight", false, "coalesce concurrent computes of the same key")
	return cmd
}

func newKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key <name> [arg...]",
		Short: "Print the cache key for a name and arguments",
		Long:  "Each argument is parsed as YAML, so 1 is an integer, \"1\" a string and [a, b] a list. Use --raw to pass arguments as plain strings.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			values := make([]any, 0, len(args)-1)
			for _, arg := range args[1:] {
				if raw {
					values = append(values, arg)
					continue
				}
				var v any
				if err := yaml.Unmarshal([]byte(arg), &v); err != nil {
					return errors.Wrapf(err, "argument %q", arg)
				}
				values = append(values, v)
			}
			key, err := cache.EncodeKey(args[0], values...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key:    %s\n", key)
			fmt.Fprintf(out, "prefix: %s\n", cache.KeyPrefix(args[0]))
			fmt.Fprintf(out, "hex:    %s\n", hex.EncodeToString([]byte(key)))
			return nil
		},
	}
	cmd.Flags().Bool("raw", false, "treat every argument as a string")
	return cmd
}
