package analytics

import (
	"github.com/comitanigiacomo/kanso-grid/internal/core/domain"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendSlipping  Trend = "slipping"
)

const (
	TrendWindowDays = 14
	TrendThreshold  = 0.20
)

type TrendResult struct {
	Trend  Trend      `json:"trend"`
	Delta  float64    `json:"delta"`
	Recent RateResult `json:"recent"`
	Prior  RateResult `json:"prior"`
}

// ComputeTrend compares the rate of the last 14 days (today included) with
// the 14 days before them.
func ComputeTrend(h *domain.Habit, logs Logs, today domain.Date) TrendResult {
	recentRange := domain.LastNDays(today, TrendWindowDays)
	priorRange := domain.LastNDays(recentRange.Start.AddDays(-1), TrendWindowDays)

	out := TrendResult{
		Recent: RateOver(h, logs, recentRange),
		Prior:  RateOver(h, logs, priorRange),
	}
	if !out.Recent.HasData() && !out.Prior.HasData() {
		out.Trend = TrendStable
		return out
	}

	out.Delta = out.Recent.Rate - out.Prior.Rate
	out.Trend = Classify(out.Delta)
	return out
}

func Classify(delta float64) Trend {
	switch {
	case delta >= TrendThreshold-epsilon:
		return TrendImproving
	case delta <= -TrendThreshold+epsilon:
		return TrendSlipping
	default:
		return TrendStable
	}
}
