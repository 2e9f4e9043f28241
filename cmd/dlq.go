package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/queue"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/store"
)

var (
	dlqErrorType string
	dlqLimit     int
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry dead-lettered builds",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead-lettered builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("dlq"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entries, err := st.ListDLQ(cmd.Context(), resilience.DLQFilter{ErrorType: dlqErrorType, Limit: dlqLimit})
		if err != nil {
			return eris.Wrap(err, "list dead letters")
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderDLQTable(entries))
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-enqueue dead-lettered builds that still have retry budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("dlq"); err != nil {
			return err
		}
		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		q, err := initQueue(cfg, env)
		if err != nil {
			return err
		}
		n, err := retryDeadLetters(ctx, env.Store, q, resilience.DLQFilter{ErrorType: dlqErrorType, Limit: dlqLimit})
		if closeErr := q.Close(); closeErr != nil {
			zap.L().Warn("queue close", zap.Error(closeErr))
		}
		if err != nil {
			return err
		}
		zap.L().Info("dead letters re-enqueued", zap.Int("count", n))
		return nil
	},
}

// retryDeadLetters re-enqueues entries that are due and still have budget.
// Each entry spends one retry and is pushed out by the retry delay before its
// build is enqueued; a successful build clears it.
func retryDeadLetters(ctx context.Context, st store.Store, q queue.Queue, filter resilience.DLQFilter) (int, error) {
	entries, err := st.ListDLQ(ctx, filter)
	if err != nil {
		return 0, eris.Wrap(err, "dlq: list")
	}
	now := time.Now().UTC()
	n := 0
	for _, e := range entries {
		if !e.CanRetry() || e.NextRetryAt.After(now) {
			continue
		}
		e.RetryCount++
		e.NextRetryAt = now.Add(queue.DLQRetryDelay)
		if err := st.EnqueueDLQ(ctx, e); err != nil {
			return n, eris.Wrapf(err, "dlq: record retry %s", e.ID)
		}
		if _, err := q.Enqueue(ctx, e.Request); err != nil {
			return n, eris.Wrapf(err, "dlq: enqueue %s", e.ID)
		}
		n++
	}
	return n, nil
}

func renderDLQTable(entries []resilience.DLQEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Person", "Step", "Type", "Retries", "Last failed", "Error"})
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.ID,
			e.Request.PersonID,
			e.FailedStep,
			e.ErrorType,
			fmt.Sprintf("%d/%d", e.RetryCount, e.MaxRetries),
			e.LastFailedAt.Format(time.RFC3339),
			truncate(e.Error, 60),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(entries)})
	return tw.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	pf := dlqCmd.PersistentFlags()
	pf.StringVar(&dlqErrorType, "error-type", "", "filter by error type: transient or permanent")
	pf.IntVar(&dlqLimit, "limit", 100, "maximum entries")
	dlqCmd.AddCommand(dlqListCmd, dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
