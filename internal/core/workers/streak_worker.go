package workers

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-grid/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
	"github.com/comitanigiacomo/kanso-grid/internal/logger"
)

const QueueSize = 100

type StreakJob struct {
	UserID  string
	HabitID string
}

// StreakWorker recomputes streak snapshots off the request path. Jobs are
// dropped, not blocked on, when the queue is full; the next log change for
// the habit enqueues it again.
type StreakWorker struct {
	habitRepo domain.HabitRepository
	logRepo   domain.LogRepository
	cache     domain.StreakCache
	clock     clock.Clock
	loc       *time.Location
	jobs      chan StreakJob
	wg        sync.WaitGroup
}

func NewStreakWorker(hRepo domain.HabitRepository, lRepo domain.LogRepository, cache domain.StreakCache, clk clock.Clock, loc *time.Location) *StreakWorker {
	if clk == nil {
		clk = clock.Real()
	}
	if loc == nil {
		loc = time.Local
	}
	return &StreakWorker{
		habitRepo: hRepo,
		logRepo:   lRepo,
		cache:     cache,
		clock:     clk,
		loc:       loc,
		jobs:      make(chan StreakJob, QueueSize),
	}
}

func (w *StreakWorker) Start(ctx context.Context) {
	log := logger.With("streaks")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		log.Info("streak worker started")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Info("streak worker shutting down", "pending", len(w.jobs))
				return
			}
		}
	}()
}

// Wait blocks until the goroutine started by Start has returned.
func (w *StreakWorker) Wait() {
	w.wg.Wait()
}

func (w *StreakWorker) Enqueue(userID, habitID string) {
	select {
	case w.jobs <- StreakJob{UserID: userID, HabitID: habitID}:
	default:
		logger.Warn("streak queue full, dropping job", "habit", habitID)
	}
}

func (w *StreakWorker) today() domain.Date {
	return domain.DateOf(w.clock.Now().In(w.loc))
}

func (w *StreakWorker) processJob(ctx context.Context, job StreakJob) {
	habit, err := w.habitRepo.GetHabit(ctx, job.HabitID)
	if domain.IsNotFound(err) {
		if err := w.cache.DeleteStreak(ctx, job.UserID, job.HabitID); err != nil {
			logger.Error("failed to drop streak of deleted habit", "habit", job.HabitID, "err", err)
		}
		return
	}
	if err != nil {
		logger.Error("failed to fetch habit", "habit", job.HabitID, "err", err)
		return
	}

	snap, err := w.compute(ctx, habit)
	if err != nil {
		logger.Error("failed to fetch logs", "habit", job.HabitID, "err", err)
		return
	}

	if err := w.cache.SaveStreak(ctx, snap); err != nil {
		logger.Error("failed to save streak", "habit", job.HabitID, "err", err)
		return
	}
	logger.Debug("streak updated", "habit", habit.Name, "current", snap.Current, "longest", snap.Longest)
}

func (w *StreakWorker) compute(ctx context.Context, habit *domain.Habit) (domain.StreakSnapshot, error) {
	today := w.today()
	horizon := domain.LastNDays(today, analytics.StreakHorizonDays)

	logs, err := w.logRepo.GetLogsInRange(ctx, habit.UserID, horizon.Start, horizon.End)
	if err != nil {
		return domain.StreakSnapshot{}, err
	}
	idx := domain.NewLogIndex(logs)

	return domain.StreakSnapshot{
		HabitID:    habit.ID,
		UserID:     habit.UserID,
		Current:    analytics.CurrentStreak(habit, idx, today),
		Longest:    analytics.LongestStreak(habit, idx, horizon.Start, horizon.End),
		AsOf:       today,
		ComputedAt: w.clock.Now().UTC(),
	}, nil
}
