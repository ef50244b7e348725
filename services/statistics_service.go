package services

import (
	"context"
	"time"

	"github.com/go-kit/log/level"
	"github.com/quresis/go-quresis-server/global"
	"github.com/quresis/go-quresis-server/metrics"
)

const statisticsPageSize = 100

// StatisticsService exports hook counters as prometheus gauges.
// It's for the backend usage, and doesn't expose any API.
type StatisticsService struct {
	hooks *HookService
}

func NewStatisticsService(hooks *HookService) *StatisticsService {
	return &StatisticsService{hooks: hooks}
}

// RefreshHookGauges reads every hook and publishes its counters (cron job)
func (s *StatisticsService) RefreshHookGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	refreshed := 0
	for skip := 0; ; skip += statisticsPageSize {
		hooks, err := s.hooks.ListHooks(ctx, statisticsPageSize, skip)
		if err != nil {
			level.Error(global.Logger).Log("msg", "failed to list hooks for statistics", "err", err)
			return
		}
		for _, hook := range hooks {
			asset := hook.Asset.String()
			metrics.HookTransfersChecked.WithLabelValues(asset).Set(float64(hook.TotalTransfersChecked))
			metrics.HookHighValueTransfers.WithLabelValues(asset).Set(float64(hook.HighValueTransfersDetected))
		}
		refreshed += len(hooks)
		if len(hooks) < statisticsPageSize {
			break
		}
	}
	level.Info(global.Logger).Log("msg", "hook statistics refreshed", "hooks", refreshed)
}
