package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// DayCount is one bucket of the 30-day completion trend.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// StageDayCount is one bucket of the 30-day per-stage trend, keyed by
// the order's own date rather than its completion date.
type StageDayCount struct {
	Date    string `json:"date"`
	Produce int    `json:"produce"`
	Ready   int    `json:"ready"`
	Shipped int    `json:"shipped"`
}

// DashboardStats is the funnel and trend summary served to the
// dashboard.
type DashboardStats struct {
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	Produce        int             `json:"produce"`
	Ready          int             `json:"ready"`
	Shipped        int             `json:"shipped"`
	DailyCompleted int             `json:"daily_completed"`
	MonthlyTrend   []DayCount      `json:"monthly_trend"`
	StageTrend     []StageDayCount `json:"stage_trend"`
}

// Summarize walks the unified view once and produces funnel counters
// plus the 30-day daily and per-stage trends. Completion days come from
// the tracker's log, localized to the fixed dashboard offset; an order
// that is complete but has no usable log timestamp falls back to its
// own date field. Stale log entries found along the way are
// self-corrected, the only side effect of this call.
func (e *Engine) Summarize(ctx context.Context, view []model.Order) DashboardStats {
	today := e.now().In(dashboardZone)
	todayKey := today.Format("2006-01-02")

	days := make([]string, 0, 30)
	dayCounts := make(map[string]int, 30)
	stageCounts := make(map[string]*StageDayCount, 30)
	for i := 29; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format("2006-01-02")
		days = append(days, key)
		dayCounts[key] = 0
		stageCounts[key] = &StageDayCount{Date: key}
	}

	log := e.log.Snapshot()
	var stats DashboardStats
	var stale []string

	for _, order := range view {
		produce, ready, shipped := order.StageFlags()
		if produce && !ready {
			stats.Produce++
		}
		if ready {
			stats.Ready++
		}
		if shipped {
			stats.Shipped++
		}

		if t, ok := order.OrderDate(); ok {
			if bucket, tracked := stageCounts[t.Format("2006-01-02")]; tracked {
				if produce {
					bucket.Produce++
				}
				if ready {
					bucket.Ready++
				}
				if shipped {
					bucket.Shipped++
				}
			}
		}

		complete := produce && ready && shipped
		completionKey := ""
		if id := order.Identifier(""); id != "" {
			if entry, ok := log[id]; ok {
				if entry.IsComplete && !complete {
					stale = append(stale, id)
				} else if complete && entry.IsComplete {
					// An entry without a timestamp (a reconciliation
					// upgrade) is not stale; the order's own date backs
					// it below.
					if day, ok := entry.CompletionDate(dashboardZone); ok {
						completionKey = day.Format("2006-01-02")
					}
				}
			}
		}
		if complete && completionKey == "" {
			if t, ok := order.OrderDate(); ok {
				completionKey = t.Format("2006-01-02")
			}
		}

		if complete {
			stats.Completed++
			if completionKey != "" {
				if completionKey == todayKey {
					stats.DailyCompleted++
				}
				if _, tracked := dayCounts[completionKey]; tracked {
					dayCounts[completionKey]++
				}
			}
		} else {
			stats.Pending++
		}
	}

	if len(stale) > 0 {
		e.correctStaleEntries(ctx, stale)
	}

	stats.MonthlyTrend = make([]DayCount, 0, len(days))
	stats.StageTrend = make([]StageDayCount, 0, len(days))
	for _, key := range days {
		stats.MonthlyTrend = append(stats.MonthlyTrend, DayCount{Date: key, Count: dayCounts[key]})
		stats.StageTrend = append(stats.StageTrend, *stageCounts[key])
	}
	return stats
}

// correctStaleEntries downgrades log entries whose stored complete flag
// no longer matches the live order, without touching their history.
func (e *Engine) correctStaleEntries(ctx context.Context, ids []string) {
	_, err := e.log.Mutate(func(entries map[string]*model.CompletionEntry) bool {
		changed := false
		for _, id := range ids {
			entry, ok := entries[id]
			if !ok || !entry.IsComplete {
				continue
			}
			entry.ClearCompletion()
			changed = true
		}
		return changed
	})
	if err != nil {
		zap.L().Warn("completion log self-correction persist failed", zap.Error(err))
	}
	for _, id := range ids {
		if err := e.archive.ClearCompletion(ctx, id); err != nil {
			zap.L().Warn("archive clear failed", zap.String("transaction", id), zap.Error(err))
		}
	}
	zap.L().Debug("corrected stale completion entries", zap.Int("count", len(ids)))
}
