package swap

import (
	"time"

	logx "mimicbot/pkg/logx"
)

// nextInterval draws the delay until the next cycle uniformly from
// [min, max] minutes. An inverted range collapses to min with a warning
// rather than failing the cycle.
func nextInterval(minMinutes, maxMinutes int, uniform func() float64, log logx.Logger) time.Duration {
	if minMinutes < 0 {
		minMinutes = 0
	}
	if maxMinutes < minMinutes {
		log.Warn("interval range inverted; clamping to min",
			logx.Int("min_minutes", minMinutes), logx.Int("max_minutes", maxMinutes))
		maxMinutes = minMinutes
	}
	m := float64(minMinutes) + uniform()*float64(maxMinutes-minMinutes)
	return time.Duration(m * float64(time.Minute))
}
