package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal build worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("worker"); err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		tc, err := queue.Dial(cfg.Queue)
		if err != nil {
			return err
		}
		defer tc.Close()

		w := queue.NewWorker(tc, cfg.Queue, cfg.Pipeline.MaxConcurrentSources, queue.NewActivities(env.Pipeline, env.Store))

		zap.L().Info("starting worker",
			zap.String("host", cfg.Queue.Host),
			zap.String("namespace", cfg.Queue.Namespace),
			zap.String("task_queue", cfg.Queue.TaskQueue),
		)
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "worker run")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
