package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// ErrUpdateContention is returned when an optimistic update keeps losing to
// concurrent writers.
var ErrUpdateContention = errors.New("job: too much contention updating job")

const redisMaxTxRetries = 10

// RedisStore keeps each job as a JSON document under <prefix>job:<id>, with two
// sorted sets scored by creation time in milliseconds: one per owner for
// ListByOwner and one global set for DeleteOlderThan.
//
// Update uses WATCH/MULTI so the read-modify-write is safe across processes,
// not only across goroutines.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key namespace. Default: "reelchain:".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "reelchain:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisClient parses a redis:// URL and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) jobKey(id string) string      { return s.prefix + "job:" + id }
func (s *RedisStore) ownerKey(owner string) string { return s.prefix + "owner:" + owner }
func (s *RedisStore) createdKey() string           { return s.prefix + "jobs:created" }

// Create writes the document only if the key does not exist yet.
func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.jobKey(job.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis create job: %w", err)
	}
	if !ok {
		return ErrJobExists
	}

	score := float64(job.CreatedAt.UnixMilli())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.createdKey(), redis.Z{Score: score, Member: job.ID})
		if job.UserID != "" {
			pipe.ZAdd(ctx, s.ownerKey(job.UserID), redis.Z{Score: score, Member: job.ID})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis index job: %w", err)
	}
	return nil
}

// Get retrieves a job by its ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("redis get job: %w", err)
	}
	return decodeJob(data)
}

// Update runs fn inside an optimistic transaction, retrying when another
// writer touched the key between WATCH and EXEC.
func (s *RedisStore) Update(ctx context.Context, id string, fn Mutator) (*Job, error) {
	key := s.jobKey(id)
	var result *Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrJobNotFound
			}
			return fmt.Errorf("redis get job: %w", err)
		}
		working, err := decodeJob(data)
		if err != nil {
			return err
		}
		if err := fn(working); err != nil {
			return err
		}
		touch(working)

		out, err := json.Marshal(working)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		result = working
		return nil
	}

	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrUpdateContention
}

// ListByOwner reads the newest ids from the owner index and loads them in one MGET.
func (s *RedisStore) ListByOwner(ctx context.Context, userID string, limit int) ([]*Job, error) {
	n := int64(clampLimit(limit))
	ids, err := s.client.ZRevRange(ctx, s.ownerKey(userID), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list owner jobs: %w", err)
	}
	if len(ids) == 0 {
		return []*Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load owner jobs: %w", err)
	}

	jobs := make([]*Job, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry outlived its document
			continue
		}
		j, err := decodeJob([]byte(str))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// DeleteOlderThan removes documents and index entries for jobs created before cutoff.
func (s *RedisStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.createdKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis find old jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := 0
	for _, id := range ids {
		j, err := s.Get(ctx, id)
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			return deleted, err
		}

		var del *redis.IntCmd
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.Del(ctx, s.jobKey(id))
			pipe.ZRem(ctx, s.createdKey(), id)
			if j != nil && j.UserID != "" {
				pipe.ZRem(ctx, s.ownerKey(j.UserID), id)
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("redis delete job %s: %w", id, err)
		}
		deleted += int(del.Val())
	}
	return deleted, nil
}

func decodeJob(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if j.Segments == nil {
		j.Segments = make([]Segment, 0)
	}
	return &j, nil
}
