package service

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/developingchet/counterd/internal/metrics"
)

// runJanitor periodically resynchronises gauges with the store:
//   - counterd_counters from Store.Len (other replicas may share a Redis store).
//   - counterd_store_db_size_bytes for on-disk stores.
//
// It returns when ctx is cancelled.
func runJanitor(ctx context.Context, s *Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshGauges(ctx)
		}
	}
}

func (s *Service) refreshGauges(ctx context.Context) {
	if n, err := s.store.Len(ctx); err != nil {
		log.Warn().Err(err).Msg("janitor: counting counters failed")
	} else {
		metrics.CountersLive.Set(float64(n))
	}
	if path := s.store.DBPath(); path != "" {
		if info, err := os.Stat(path); err == nil {
			metrics.StoreDBSizeBytes.Set(float64(info.Size()))
		}
	}
}
