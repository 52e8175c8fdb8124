package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/eleven-am/live-translate/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL = 24 * time.Hour
	metricsTTL = 7 * 24 * time.Hour
)

type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = shared.NewID("sess_")
	}
	sess.Status = StatusActive
	sess.StartedAt = time.Now()
	sess.LastActiveAt = sess.StartedAt

	if err := s.save(ctx, sess); err != nil {
		return err
	}
	return s.IncrementMetric(ctx, FieldSessions, 1)
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) UpdateLanguages(ctx context.Context, id, sourceLang, targetLang string) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	sess.SourceLang = sourceLang
	sess.TargetLang = targetLang
	return s.touch(ctx, sess)
}

func (s *Store) EndSession(ctx context.Context, id string, status Status, reason string) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	sess.Status = status
	sess.CloseReason = reason
	return s.touch(ctx, sess)
}

func (s *Store) ListActive(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	iter := s.redis.Scan(ctx, 0, "session:sess_*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.redis.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Status == StatusActive {
			sessions = append(sessions, &sess)
		}
	}
	return sessions, iter.Err()
}

func (s *Store) touch(ctx context.Context, sess *Session) error {
	sess.LastActiveAt = time.Now()
	return s.save(ctx, sess)
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, sess.RedisKey(), data, sessionTTL).Err()
}

func (s *Store) IncrementMetric(ctx context.Context, field string, value int64) error {
	now := time.Now().UTC()
	key := MetricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) RecordLatency(ctx context.Context, latency time.Duration) error {
	now := time.Now().UTC()
	key := MetricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, "total_latency_ms", latency.Milliseconds())
	pipe.HIncrBy(ctx, key, "latency_count", 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) GetMetrics(ctx context.Context, hours int) ([]*Metrics, error) {
	now := time.Now().UTC()
	var metrics []*Metrics

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := MetricsRedisKey(t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Metrics{
			Date: t.Format("2006-01-02"),
			Hour: t.Hour(),
		}
		m.Sessions, _ = strconv.ParseInt(data[FieldSessions], 10, 64)
		m.Segments, _ = strconv.ParseInt(data[FieldSegments], 10, 64)
		m.Results, _ = strconv.ParseInt(data[FieldResults], 10, 64)
		m.ErrorCount, _ = strconv.ParseInt(data[FieldErrors], 10, 64)
		m.Rejected, _ = strconv.ParseInt(data[FieldRejected], 10, 64)

		totalLatency, _ := strconv.ParseInt(data["total_latency_ms"], 10, 64)
		latencyCount, _ := strconv.ParseInt(data["latency_count"], 10, 64)
		if latencyCount > 0 {
			m.AvgLatencyMs = totalLatency / latencyCount
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}
