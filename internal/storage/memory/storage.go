package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	questions []model.Question
	summaries map[model.SessionID]*model.SessionSummary
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		summaries: make(map[model.SessionID]*model.SessionSummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Question bank operations

func (s *Storage) SaveQuestions(ctx context.Context, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = make([]model.Question, len(questions))
	copy(s.questions, questions)
	return nil
}

func (s *Storage) GetQuestions(ctx context.Context) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.questions == nil {
		return nil, model.ErrQuestionsNotLoaded
	}
	result := make([]model.Question, len(s.questions))
	copy(result, s.questions)
	return result, nil
}

// Session archive operations

func (s *Storage) SaveSummary(ctx context.Context, summary *model.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.ID] = cloneSummary(summary)
	return nil
}

func (s *Storage) GetSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return cloneSummary(summary), nil
}

// ListSummaries returns every archived summary, most recently completed first
func (s *Storage) ListSummaries(ctx context.Context) ([]*model.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.SessionSummary, 0, len(s.summaries))
	for _, summary := range s.summaries {
		result = append(result, cloneSummary(summary))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.After(result[j].CompletedAt)
	})
	return result, nil
}

func cloneSummary(summary *model.SessionSummary) *model.SessionSummary {
	c := *summary
	c.Standings = make([]model.Standing, len(summary.Standings))
	copy(c.Standings, summary.Standings)
	return &c
}
