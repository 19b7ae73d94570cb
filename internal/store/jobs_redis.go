package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisJobs stores job records as hashes under job:<id>:status and keeps a
// per-session list of job ids.
type RedisJobs struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisJobs(redisURL string, ttl time.Duration) (*RedisJobs, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisJobs{client: c, keyNS: "job", ttl: ttl}, nil
}

func (s *RedisJobs) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisJobs) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:jobs", sessionID)
}

func (s *RedisJobs) Set(ctx context.Context, job Job) error {
	m := map[string]interface{}{
		"session_id":   job.SessionID,
		"tool":         job.Tool,
		"status":       job.Status,
		"message":      job.Message,
		"result_name":  job.ResultName,
		"result_ref":   job.ResultRef,
		"content_type": job.ContentType,
		"size":         job.Size,
	}
	if job.Start != nil {
		m["start"] = job.Start.Format(time.RFC3339Nano)
	}
	if job.End != nil {
		m["end"] = job.End.Format(time.RFC3339Nano)
	}
	if job.Metadata != nil {
		b, _ := json.Marshal(job.Metadata)
		m["metadata"] = string(b)
	}

	key := s.key(job.ID)
	isNew, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, m)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if isNew == 0 && job.SessionID != "" {
		sk := s.sessionKey(job.SessionID)
		pipe.RPush(ctx, sk, job.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, sk, s.ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisJobs) Get(ctx context.Context, jobID string) (Job, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Job{}, false, err
	}
	if len(res) == 0 {
		return Job{}, false, nil
	}
	j := Job{
		ID:          jobID,
		SessionID:   res["session_id"],
		Tool:        res["tool"],
		Status:      res["status"],
		Message:     res["message"],
		ResultName:  res["result_name"],
		ResultRef:   res["result_ref"],
		ContentType: res["content_type"],
	}
	if v := res["size"]; v != "" {
		// ignore parse error; default 0
		j.Size, _ = strconv.Atoi(v)
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			j.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			j.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &j.Metadata)
	}
	return j, true, nil
}

// SessionJobs lists job ids recorded for a session, oldest first.
func (s *RedisJobs) SessionJobs(ctx context.Context, sessionID string) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.sessionKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return ids, err
}

func (s *RedisJobs) Close() error { return s.client.Close() }

// Client returns the underlying Redis client
func (s *RedisJobs) Client() *redis.Client { return s.client }
