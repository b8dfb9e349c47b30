package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Question bank operations

func (s *Storage) SaveQuestions(ctx context.Context, questions []model.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, questionsKey(), data, 0).Err()
}

func (s *Storage) GetQuestions(ctx context.Context) ([]model.Question, error) {
	data, err := s.client.Get(ctx, questionsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrQuestionsNotLoaded
		}
		return nil, err
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Session archive operations

func (s *Storage) SaveSummary(ctx context.Context, summary *model.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := summaryKey(summary.ID)
	indexKey := summaryIndexKey()

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.cfg.SummaryTTL)
	pipe.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(summary.CompletedAt.UnixMilli()),
		Member: string(summary.ID),
	})
	if s.cfg.SummaryTTL > 0 {
		// Drop index entries whose summaries have expired
		cutoff := summary.CompletedAt.Add(-s.cfg.SummaryTTL).UnixMilli()
		pipe.ZRemRangeByScore(ctx, indexKey, "-inf", "("+strconv.FormatInt(cutoff, 10))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error) {
	data, err := s.client.Get(ctx, summaryKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var summary model.SessionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListSummaries returns every archived summary, most recently completed first
func (s *Storage) ListSummaries(ctx context.Context) ([]*model.SessionSummary, error) {
	ids, err := s.client.ZRevRange(ctx, summaryIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.SessionSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = summaryKey(model.SessionID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.SessionSummary, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Summary may have expired
		}
		var summary model.SessionSummary
		if err := json.Unmarshal([]byte(val.(string)), &summary); err != nil {
			continue // Skip invalid data
		}
		summaries = append(summaries, &summary)
	}

	return summaries, nil
}
