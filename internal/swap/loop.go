package swap

import (
	"context"
	"fmt"
	"time"

	"mimicbot/internal/remote"
	logx "mimicbot/pkg/logx"
)

const (
	// pollInterval bounds scheduling jitter: each group loop re-checks its
	// due time once a minute, not on a precise timer.
	pollInterval = time.Minute

	// errorBackoff is how long a loop sits out after an unexpected cycle
	// error before it resumes polling.
	errorBackoff = 5 * time.Minute
)

// runGroup is one group's loop. It only exits on cancellation; unexpected
// cycle errors are absorbed with a longer backoff, and panics are handled by
// the supervisor's restart wrapper around this function.
func (s *Service) runGroup(ctx context.Context, g remote.Group) error {
	log := s.log.With(logx.String("group", g.Display()))
	log.Info("group loop started")
	defer log.Info("group loop stopped")

	for {
		wait := pollInterval
		if err := s.tick(ctx, g); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("cycle failed; backing off", logx.Err(err), logx.Duration("backoff", errorBackoff))
			wait = errorBackoff
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// tick checks whether the group is due and, if so, runs one full cycle and
// persists the next due time. The next due time is anchored at the moment
// the cycle started, not when it finished, and always lands within the
// configured interval window from that anchor.
//
// A group with no stored entry is due immediately.
func (s *Service) tick(ctx context.Context, g remote.Group) error {
	set := s.settings()
	if !set.Enabled {
		return nil
	}

	sched := s.store.Load(ctx)
	start := time.Now()
	if next, ok := sched[g.GroupID]; ok && float64(start.Unix()) < next {
		return nil
	}

	log := s.log.With(logx.String("group", g.Display()))
	log.Info("swap cycle starting")

	s.runCycle(ctx, g, set)

	interval := nextInterval(set.MinIntervalMinutes, set.MaxIntervalMinutes, s.uniform, log)
	nextRun := float64(start.Unix()) + interval.Seconds()
	if err := s.store.SetNext(ctx, g.GroupID, nextRun); err != nil {
		return fmt.Errorf("persist next run: %w", err)
	}

	log.Info("swap cycle finished",
		logx.Duration("next_in", interval),
		logx.Time("next_run", time.Unix(int64(nextRun), 0)))
	return nil
}

// runCycle runs rank -> select -> action sequence. Step failures inside the
// sequence are already logged and classified there; whatever happens, the
// cycle counts as executed and the group is rescheduled by the caller.
func (s *Service) runCycle(ctx context.Context, g remote.Group, set Settings) {
	log := s.log.With(logx.String("group", g.Display()))

	ranked := s.ranker.Rank(ctx, g.GroupID)
	if len(ranked) == 0 {
		log.Warn("no active users in window; skipping cycle")
		return
	}
	log.Debug("candidates ranked", logx.Int("count", len(ranked)))

	target, ok := s.selector.Select(ranked, set.Lambda)
	if !ok || target == "" {
		log.Warn("no target selectable; skipping cycle")
		return
	}
	log.Info("target selected", logx.String("target", target))

	// Fatal step failures abort the remainder of the sequence but not the
	// reschedule.
	_ = s.seq.Run(ctx, g, set.Identity, target)
}
