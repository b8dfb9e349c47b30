package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/trivia-go/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.SummaryTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func summary(id string, completedAt time.Time) *model.SessionSummary {
	return &model.SessionSummary{
		ID:     model.SessionID(id),
		Rounds: 5,
		Standings: []model.Standing{
			{Rank: 1, Name: "ana", Score: 30, CorrectCount: 3, Accuracy: 60},
			{Rank: 2, Name: "ben", Score: 10, CorrectCount: 1, Accuracy: 20},
		},
		StartedAt:   completedAt.Add(-time.Minute),
		CompletedAt: completedAt,
	}
}

// Question tests

func (s *StorageSuite) TestGetQuestionsNotLoaded() {
	_, err := s.storage.GetQuestions(s.ctx)
	s.ErrorIs(err, model.ErrQuestionsNotLoaded)
}

func (s *StorageSuite) TestSaveAndGetQuestions() {
	questions := []model.Question{
		{
			Prompt:  "Sino ang unang Pangulo ng Pilipinas?",
			Options: [4]string{"A) Jose Rizal", "B) Emilio Aguinaldo", "C) Manuel Quezon", "D) Andres Bonifacio"},
			Correct: model.LetterB,
		},
	}

	err := s.storage.SaveQuestions(s.ctx, questions)
	s.Require().NoError(err)

	s.True(s.mini.Exists("trivia:questions"))

	retrieved, err := s.storage.GetQuestions(s.ctx)
	s.Require().NoError(err)
	s.Equal(questions, retrieved)
}

// Summary tests

func (s *StorageSuite) TestSaveAndGetSummary() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	sum := summary("session-1", now)

	err := s.storage.SaveSummary(s.ctx, sum)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetSummary(s.ctx, "session-1")
	s.Require().NoError(err)
	s.Equal(sum.ID, retrieved.ID)
	s.Equal(sum.Rounds, retrieved.Rounds)
	s.Equal(sum.Standings, retrieved.Standings)
	s.True(sum.CompletedAt.Equal(retrieved.CompletedAt))
	s.True(sum.StartedAt.Equal(retrieved.StartedAt))
}

func (s *StorageSuite) TestGetSummaryNotFound() {
	_, err := s.storage.GetSummary(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestSummaryTTL() {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveSummary(s.ctx, summary("session-1", now))

	ttl := s.mini.TTL(summaryKey("session-1"))
	s.Equal(time.Hour, ttl)

	s.mini.FastForward(2 * time.Hour)

	_, err := s.storage.GetSummary(s.ctx, "session-1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *StorageSuite) TestListSummariesNewestFirst() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveSummary(s.ctx, summary("first", base))
	_ = s.storage.SaveSummary(s.ctx, summary("third", base.Add(20*time.Minute)))
	_ = s.storage.SaveSummary(s.ctx, summary("second", base.Add(10*time.Minute)))

	list, err := s.storage.ListSummaries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(model.SessionID("third"), list[0].ID)
	s.Equal(model.SessionID("second"), list[1].ID)
	s.Equal(model.SessionID("first"), list[2].ID)
}

func (s *StorageSuite) TestListSummariesSkipsExpired() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_ = s.storage.SaveSummary(s.ctx, summary("old", base))

	s.mini.FastForward(2 * time.Hour)
	_ = s.storage.SaveSummary(s.ctx, summary("new", base.Add(2*time.Hour)))

	list, err := s.storage.ListSummaries(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(model.SessionID("new"), list[0].ID)

	// the stale index entry is pruned on save
	members, err := s.mini.ZMembers(summaryIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"new"}, members)
}

func (s *StorageSuite) TestListSummariesEmpty() {
	list, err := s.storage.ListSummaries(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}
