package round

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/trivia-go/internal/dependencies/clock"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
	"github.com/mcoot/trivia-go/internal/services/broadcast"
	"github.com/mcoot/trivia-go/internal/services/registry"
	"github.com/mcoot/trivia-go/internal/services/scoring"
)

// State is the phase of the round currently being driven
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingAnswers    State = "awaiting_answers"
	StateEvaluating         State = "evaluating"
	StateBroadcastingResult State = "broadcasting_result"
	StateComplete           State = "complete"
)

// Outcome describes one completed round
type Outcome struct {
	Round       int // 0-based
	Correct     model.Letter
	Evaluations []model.Evaluation
	Result      protocol.Result
	StartedAt   time.Time
	CompletedAt time.Time
}

// Coordinator drives single rounds: question, barrier, scoring, result.
// Run is called from one goroutine only; State may be read from any.
type Coordinator struct {
	registry    registry.RegistryInterface
	scoring     scoring.ServiceInterface
	broadcaster broadcast.BroadcasterInterface
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	clock       clock.Clock
	logger      *slog.Logger

	mu    sync.RWMutex
	state State
	index int
}

// NewCoordinator creates a new RoundCoordinator
func NewCoordinator(
	registry registry.RegistryInterface,
	scoring scoring.ServiceInterface,
	broadcaster broadcast.BroadcasterInterface,
	metrics *metrics.Metrics,
	tracer trace.Tracer,
	clock clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		registry:    registry,
		scoring:     scoring,
		broadcaster: broadcaster,
		metrics:     metrics,
		tracer:      tracer,
		clock:       clock,
		logger:      logger.With(slog.String("component", "round")),
		state:       StateIdle,
		index:       -1,
	}
}

// Run plays round index (0-based) with question q.
// It returns only when the round is complete or ctx is done. Answers for
// the round are accepted only once the round is opened here, so no answer
// can precede its question.
func (c *Coordinator) Run(ctx context.Context, index int, q model.Question) (*Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "round.run", trace.WithAttributes(
		attribute.Int("round", index+1),
	))
	defer span.End()

	started := c.clock.Now()
	c.setState(index, StateAwaitingAnswers)

	c.registry.OpenRound(index)
	recipients := c.registry.Snapshot()
	span.SetAttributes(attribute.Int("players.start", len(recipients)))

	c.broadcaster.Broadcast(recipients, protocol.Question{
		Round:   index + 1,
		Prompt:  q.Prompt,
		Options: q.Options,
	})
	c.logger.Info("question broadcast",
		slog.Int("round", index+1),
		slog.Int("players", len(recipients)))

	if err := c.registry.WaitForRound(ctx, index); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "round interrupted")
		c.logger.Warn("round interrupted",
			slog.Int("round", index+1),
			slog.Any("error", err))
		return nil, err
	}
	span.AddEvent("answers collected")

	c.setState(index, StateEvaluating)
	evals := c.scoring.Evaluate(c.registry.Snapshot(), index, q.Correct)
	c.registry.ApplyEvaluations(evals)

	c.setState(index, StateBroadcastingResult)
	final := c.registry.Snapshot()
	result := BuildResult(index, q.Correct, final)
	c.broadcaster.Broadcast(final, result)

	completed := c.clock.Now()
	c.setState(index, StateComplete)
	c.metrics.RoundCompleted(completed.Sub(started))
	span.SetAttributes(attribute.Int("players.end", len(final)))

	c.logger.Info("round complete",
		slog.Int("round", index+1),
		slog.String("correct", q.Correct.String()),
		slog.Int("players", len(final)),
		slog.Duration("duration", completed.Sub(started)))

	return &Outcome{
		Round:       index,
		Correct:     q.Correct,
		Evaluations: evals,
		Result:      result,
		StartedAt:   started,
		CompletedAt: completed,
	}, nil
}

// State returns the current round index (0-based, -1 before the first) and phase
func (c *Coordinator) State() (int, State) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index, c.state
}

func (c *Coordinator) setState(index int, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = index
	c.state = state
}

// BuildResult builds the RESULT message for a round from a post-evaluation snapshot
func BuildResult(index int, correct model.Letter, players []model.Player) protocol.Result {
	entries := make([]protocol.ResultEntry, 0, len(players))
	for _, p := range players {
		letter := p.AnswerFor(index)
		entries = append(entries, protocol.ResultEntry{
			Name:    p.Name,
			Letter:  letter,
			Correct: letter != model.Unanswered && letter == correct,
			Score:   p.Score,
		})
	}
	return protocol.Result{
		Round:   index + 1,
		Correct: correct,
		Players: entries,
	}
}

// Interface for dependency injection
type CoordinatorInterface interface {
	Run(ctx context.Context, index int, q model.Question) (*Outcome, error)
	State() (int, State)
}

var _ CoordinatorInterface = (*Coordinator)(nil)
