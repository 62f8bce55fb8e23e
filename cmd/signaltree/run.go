package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/aretw0/signaltree"
	"github.com/aretw0/signaltree/internal/presentation/graph"
	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/observability"
	"github.com/aretw0/signaltree/pkg/session"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a description once",
	Long: `Compiles a description and runs it against the host store.

With --resume, async results of a failed run are saved under the given key and
replayed by the next run with the same key. Resuming across invocations needs
--redis.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		argsJSON, _ := cmd.Flags().GetString("args")
		stateJSON, _ := cmd.Flags().GetString("state")
		resume, _ := cmd.Flags().GetString("resume")
		asGraph, _ := cmd.Flags().GetBool("graph")

		initial, err := decodeObject("--args", argsJSON)
		if err != nil {
			return err
		}
		seed, err := decodeObject("--state", stateJSON)
		if err != nil {
			return err
		}

		sig, err := loadSignal(args[0],
			signaltree.WithLogger(logger),
			signaltree.WithLifecycleHooks(observability.LoggingHooks(logger)),
		)
		if err != nil {
			return err
		}

		b, err := openBackend(cmd, seed)
		if err != nil {
			return err
		}
		defer func() {
			if err := b.close(); err != nil {
				logger.Warn("failed to close backend", "error", err)
			}
		}()
		if resume != "" && !b.remote() {
			return errors.New("--resume needs --redis to keep replay records between runs")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store := b.newStore()
		if b.remote() {
			for _, key := range domain.SortedOutputNames(seed) {
				if err := store.Set(ctx, key, seed[key]); err != nil {
					return fmt.Errorf("failed to seed store: %w", err)
				}
			}
		}

		var res *domain.SignalResult
		var runErr error
		if resume != "" {
			sessions := session.NewManager(b.replay,
				session.WithLocker(b.locker),
				session.WithLogger(logger),
			)
			res, runErr = sessions.Run(ctx, resume, sig, store, initial)
		} else {
			res, runErr = sig.Run(ctx, store, initial)
		}

		if res != nil {
			out := cmd.OutOrStdout()
			if asGraph {
				fmt.Fprint(out, graph.GenerateMermaid(sig.Tree(), graph.OverlayFromResult(res)))
			} else {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("failed to encode result: %w", err)
				}
			}
		}
		if runErr != nil && resume != "" {
			logger.Info("async results saved for resume", "run_key", resume)
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("args", "", "Initial args as a JSON object")
	runCmd.Flags().String("state", "", "Initial host store contents as a JSON object")
	runCmd.Flags().String("resume", "", "Run key; replays async results saved by a failed run with the same key")
	runCmd.Flags().Bool("graph", false, "Print the run as a Mermaid diagram instead of JSON")
	addBackendFlags(runCmd.Flags())
}

func decodeObject(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object: %w", flag, err)
	}
	return v, nil
}
