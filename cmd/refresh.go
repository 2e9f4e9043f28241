package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/queue"
	"github.com/sells-group/profile-cli/internal/store"
)

const refreshPageSize = 100

var (
	refreshStaleDays int
	refreshLimit     int
	refreshForce     bool
	refreshLockPath  string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Enqueue builds for stale persons",
	Long: `Finds persons not updated within --stale-days and enqueues a build for
each. Only one refresh runs at a time per lock file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("refresh"); err != nil {
			return err
		}

		lock := flock.New(refreshLockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return eris.Wrap(err, "acquire refresh lock")
		}
		if !ok {
			return eris.Errorf("another refresh holds %s", refreshLockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				zap.L().Warn("release refresh lock", zap.Error(err))
			}
		}()

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		q, err := initQueue(cfg, env)
		if err != nil {
			return err
		}

		staleDays := refreshStaleDays
		if staleDays <= 0 {
			staleDays = max(1, cfg.Pipeline.RefreshIntervalHours/24)
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -staleDays)

		n, err := enqueueStale(ctx, env.Store, q, cutoff, refreshLimit, refreshForce)
		// The local queue finishes its builds before Close returns.
		if closeErr := q.Close(); closeErr != nil {
			zap.L().Warn("queue close", zap.Error(closeErr))
		}
		if err != nil {
			return err
		}
		zap.L().Info("refresh enqueued", zap.Int("persons", n), zap.Time("stale_before", cutoff))
		return nil
	},
}

// enqueueStale enqueues a build for each person updated before cutoff. A
// limit of zero means no limit. Candidates are collected before the first
// enqueue: a build bumps updated_at, which would shift offset pages.
func enqueueStale(ctx context.Context, st store.Store, q queue.Queue, cutoff time.Time, limit int, force bool) (int, error) {
	var stale []model.Person
collect:
	for offset := 0; ; offset += refreshPageSize {
		persons, err := st.ListPersons(ctx, store.PersonFilter{
			UpdatedBefore: cutoff,
			Limit:         refreshPageSize,
			Offset:        offset,
		})
		if err != nil {
			return 0, eris.Wrap(err, "refresh: list stale persons")
		}
		for _, p := range persons {
			if p.Status == model.PersonStatusDeleted || p.Status == model.PersonStatusBuilding {
				continue
			}
			if limit > 0 && len(stale) >= limit {
				break collect
			}
			stale = append(stale, p)
		}
		if len(persons) < refreshPageSize {
			break
		}
	}

	enqueued := 0
	for _, p := range stale {
		if _, err := q.Enqueue(ctx, model.BuildRequest{
			PersonID:     p.ID,
			PersonName:   p.Name,
			ForceRefresh: force,
		}); err != nil {
			return enqueued, eris.Wrapf(err, "refresh: enqueue %s", p.ID)
		}
		enqueued++
	}
	return enqueued, nil
}

func init() {
	f := refreshCmd.Flags()
	f.IntVar(&refreshStaleDays, "stale-days", 0, "rebuild persons not updated in this many days (default from refresh_interval_hours)")
	f.IntVar(&refreshLimit, "limit", 0, "maximum builds to enqueue (0 = all)")
	f.BoolVar(&refreshForce, "force", false, "force refresh every enqueued build")
	f.StringVar(&refreshLockPath, "lock-file", filepath.Join(os.TempDir(), "profile-cli-refresh.lock"), "single-instance lock file")
	rootCmd.AddCommand(refreshCmd)
}
