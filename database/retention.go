package database

import (
	"context"
	"fmt"
	"time"

	"github.com/arjun7095/Chat-Application/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// PruneOlderThan 刪除早於 now-window 的訊息
func PruneOlderThan(ctx context.Context, store MessageStore, window time.Duration, now time.Time) (int64, error) {
	n, err := store.PruneMessages(ctx, now.Add(-window))
	if err != nil {
		return 0, err
	}
	metrics.MessagesPruned.Add(float64(n))
	return n, nil
}

// ScheduleRetention 依 schedule 定期清除過期訊息；window <= 0 時不排程
func ScheduleRetention(c *cron.Cron, store MessageStore, schedule string, window, timeout time.Duration) error {
	if window <= 0 {
		return nil
	}
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		n, err := PruneOlderThan(ctx, store, window, time.Now())
		if err != nil {
			log.Error().Err(err).Str("module", "database").Msg("message retention failed")
			return
		}
		if n > 0 {
			log.Info().Str("module", "database").Int64("pruned", n).Msg("pruned expired messages")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention %q: %w", schedule, err)
	}
	return nil
}
