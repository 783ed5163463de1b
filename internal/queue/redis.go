package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var _ Queue = (*RedisQueue)(nil)

// RedisQueue keeps jobs in a redis list so they survive restarts and can be
// shared by several worker processes.
type RedisQueue struct {
	client *redis.Client
	poll   time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, poll: time.Second}
}

// NewRedisQueueFromURL connects to redis and checks the connection.
func NewRedisQueueFromURL(ctx context.Context, url string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisQueue(client), nil
}

func (r *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, SuggestionJobQueue, data).Err()
}

// Dequeue polls with a short blocking pop so that a cancelled ctx is noticed promptly.
func (r *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := r.client.BLPop(ctx, r.poll, SuggestionJobQueue).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		// res is [key, value]
		job := &Job{}
		if err := json.Unmarshal([]byte(res[1]), job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

func (r *RedisQueue) DeadLetter(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, SuggestionDeadLetterSet, data).Err()
}

func (r *RedisQueue) DeadLetters(ctx context.Context) ([]*Job, error) {
	values, err := r.client.LRange(ctx, SuggestionDeadLetterSet, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(values))
	for _, value := range values {
		job := &Job{}
		if err := json.Unmarshal([]byte(value), job); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (r *RedisQueue) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, SuggestionJobQueue).Result()
}

func (r *RedisQueue) Close() error {
	return r.client.Close()
}
