package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no job record exists for the given ID.
var ErrNotFound = errors.New("job not found")

const keyPrefix = "extract_job:"

// RedisStore is the durable home of extraction job records. Every batch
// checkpoint rewrites the record and refreshes its TTL, so retention is
// measured from last activity rather than creation.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(opt *redis.Options, ttl time.Duration) *RedisStore {
	return &RedisStore{client: redis.NewClient(opt), ttl: ttl}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func jobKey(id string) string {
	return keyPrefix + id
}

func (s *RedisStore) SaveJob(ctx context.Context, job *models.ExtractionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, jobKey(job.ID), payload, s.ttl).Err()
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*models.ExtractionJob, error) {
	payload, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var job models.ExtractionJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisStore) DeleteJob(ctx context.Context, id string) error {
	return s.client.Del(ctx, jobKey(id)).Err()
}

// ListJobs scans the job keyspace and returns every record that is still
// retained. Records that expire mid-scan are skipped.
func (s *RedisStore) ListJobs(ctx context.Context) ([]*models.ExtractionJob, error) {
	var jobs []*models.ExtractionJob
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var job models.ExtractionJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}
