package storage

import (
	"context"

	"github.com/mcoot/trivia-go/internal/model"
)

// Storage defines the interface for data persistence.
// Live game state never passes through here; only the question bank and
// summaries of finished sessions do.
type Storage interface {
	// Question bank operations
	SaveQuestions(ctx context.Context, questions []model.Question) error
	GetQuestions(ctx context.Context) ([]model.Question, error)

	// Session archive operations
	SaveSummary(ctx context.Context, summary *model.SessionSummary) error
	GetSummary(ctx context.Context, id model.SessionID) (*model.SessionSummary, error)
	ListSummaries(ctx context.Context) ([]*model.SessionSummary, error)
}
