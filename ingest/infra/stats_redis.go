package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sheetsync-bridge/ingest/domain"

	"github.com/redis/go-redis/v9"
)

// RedisSyncStats records sync outcomes in Redis.
//
// Layout per Record call (pipelined):
//
//	<prefix>:total                      HINCRBY <outcome> 1
//	<prefix>:minute:<yyyymmddhhmm>      HINCRBY <outcome> 1   (bucket=minute)
//	<prefix>:sheet:<spreadsheetID>      HINCRBY <outcome> 1   (trackSheets)
type RedisSyncStats struct {
	rdb *redis.Client

	prefix string
	// ttl applies only to time-series and per-spreadsheet keys.
	// The total is cumulative and never expires.
	ttl time.Duration

	bucket string // "minute" (default) or "none"

	trackSheets bool
}

type RedisSyncStatsOption func(*RedisSyncStats)

func WithStatsPrefix(prefix string) RedisSyncStatsOption {
	return func(s *RedisSyncStats) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisSyncStatsOption {
	return func(s *RedisSyncStats) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisSyncStatsOption {
	return func(s *RedisSyncStats) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSheets(track bool) RedisSyncStatsOption {
	return func(s *RedisSyncStats) { s.trackSheets = track }
}

func NewRedisSyncStats(rdb *redis.Client, opts ...RedisSyncStatsOption) *RedisSyncStats {
	s := &RedisSyncStats{
		rdb:    rdb,
		prefix: "sheetsync:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record implements domain.SyncStats.
func (s *RedisSyncStats) Record(ctx context.Context, ev domain.SyncEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := string(ev.Outcome)
	if field == "" {
		return nil
	}

	totalKey := s.prefix + ":total"

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if s.trackSheets {
		id := strings.TrimSpace(ev.SpreadsheetID)
		if id != "" {
			sheetKey := s.prefix + ":sheet:" + id
			pipe.HIncrBy(ctx, sheetKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, sheetKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
