package swap

import (
	"context"
	"sort"
	"time"

	"mimicbot/internal/history"
	logx "mimicbot/pkg/logx"
)

// activityWindow is the trailing period over which speakers are counted.
const activityWindow = 24 * time.Hour

// Ranker turns recent chat history into an ordered candidate list.
type Ranker struct {
	repo   history.Repo
	window time.Duration
	log    logx.Logger
}

func NewRanker(repo history.Repo, log logx.Logger) *Ranker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Ranker{repo: repo, window: activityWindow, log: log}
}

// Rank returns user ids ordered by message count over the trailing window,
// most active first. Ties keep first-appearance order, so the ordering is
// stable across calls on the same data. Bot and command messages are
// excluded at the store. Any query failure degrades to an empty list; the
// caller treats that as "nothing to do this cycle".
func (r *Ranker) Rank(ctx context.Context, chatID string) []string {
	now := time.Now()
	msgs, err := r.repo.QueryRange(ctx, chatID, now.Add(-r.window), now, history.Filter{
		ExcludeBot:      true,
		ExcludeCommands: true,
	})
	if err != nil {
		r.log.Error("activity query failed", logx.String("chat", chatID), logx.Err(err))
		return nil
	}

	counts := make(map[string]int, 16)
	order := make([]string, 0, 16)
	for _, m := range msgs {
		if m.UserID == "" {
			continue
		}
		if _, seen := counts[m.UserID]; !seen {
			order = append(order, m.UserID)
		}
		counts[m.UserID]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}
