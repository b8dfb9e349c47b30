package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/trivia-go/internal/dependencies/clock"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
	"github.com/mcoot/trivia-go/internal/services/broadcast"
	"github.com/mcoot/trivia-go/internal/services/registry"
	"github.com/mcoot/trivia-go/internal/services/round"
	"github.com/mcoot/trivia-go/internal/services/scoring"
	"github.com/mcoot/trivia-go/internal/storage"
)

// DefaultWelcomeText is broadcast once the lobby fills
const DefaultWelcomeText = "Game starting! Get ready for trivia questions!"

// DefaultInterRoundDelay gives players time to read each result
const DefaultInterRoundDelay = 3 * time.Second

// Config holds the fixed parameters of one session
type Config struct {
	LobbySize       int
	InterRoundDelay time.Duration
	WelcomeText     string
}

// Status is a point-in-time view of a session
type Status struct {
	ID          model.SessionID
	State       model.SessionState
	Round       int // 1-based, 0 before the first round
	TotalRounds int
	LobbySize   int
	Players     []model.Player
	StartedAt   time.Time
}

// Session sequences lobby fill, rounds and the final broadcast.
// Run drives the whole game from a single goroutine.
type Session struct {
	id        model.SessionID
	cfg       Config
	questions []model.Question

	registry    registry.RegistryInterface
	coordinator round.CoordinatorInterface
	scoring     scoring.ServiceInterface
	broadcaster broadcast.BroadcasterInterface
	storage     storage.Storage
	metrics     *metrics.Metrics
	clock       clock.Clock
	logger      *slog.Logger

	mu        sync.RWMutex
	state     model.SessionState
	round     int
	startedAt time.Time
}

// New creates a session over an ordered, immutable question list
func New(
	cfg Config,
	questions []model.Question,
	registry registry.RegistryInterface,
	coordinator round.CoordinatorInterface,
	scoring scoring.ServiceInterface,
	broadcaster broadcast.BroadcasterInterface,
	storage storage.Storage,
	metrics *metrics.Metrics,
	clock clock.Clock,
	logger *slog.Logger,
) *Session {
	if cfg.WelcomeText == "" {
		cfg.WelcomeText = DefaultWelcomeText
	}
	qs := make([]model.Question, len(questions))
	copy(qs, questions)

	id := model.SessionID(uuid.NewString())
	return &Session{
		id:          id,
		cfg:         cfg,
		questions:   qs,
		registry:    registry,
		coordinator: coordinator,
		scoring:     scoring,
		broadcaster: broadcaster,
		storage:     storage,
		metrics:     metrics,
		clock:       clock,
		logger:      logger.With(slog.String("component", "session"), slog.String("session_id", string(id))),
		state:       model.SessionStateWaitingForLobby,
	}
}

// ID returns the session identifier
func (s *Session) ID() model.SessionID {
	return s.id
}

// Run plays the session to completion and returns the archived summary.
// Waiting for the lobby has no timeout; only ctx ends it early.
func (s *Session) Run(ctx context.Context) (*model.SessionSummary, error) {
	s.logger.Info("waiting for players", slog.Int("lobby_size", s.cfg.LobbySize))
	if err := s.registry.WaitForLobby(ctx); err != nil {
		return nil, err
	}

	started := s.clock.Now()
	s.mu.Lock()
	s.startedAt = started
	s.mu.Unlock()

	s.setState(model.SessionStateWelcoming, 0)
	s.broadcaster.Broadcast(s.registry.Snapshot(), protocol.Welcome{Text: s.cfg.WelcomeText})
	s.logger.Info("game starting", slog.Int("rounds", len(s.questions)))

	for i, q := range s.questions {
		s.setState(model.SessionStateRound, i+1)
		if _, err := s.coordinator.Run(ctx, i, q); err != nil {
			return nil, err
		}

		if i == len(s.questions)-1 {
			break
		}
		select {
		case <-s.clock.After(s.cfg.InterRoundDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.setState(model.SessionStateFinalBroadcast, len(s.questions))
	final := s.registry.Snapshot()
	standings := s.scoring.Rank(final, len(s.questions))
	s.broadcaster.Broadcast(final, protocol.FinalFromStandings(standings))

	summary := &model.SessionSummary{
		ID:          s.id,
		Rounds:      len(s.questions),
		Standings:   standings,
		StartedAt:   started,
		CompletedAt: s.clock.Now(),
	}
	if err := s.storage.SaveSummary(ctx, summary); err != nil {
		s.logger.Error("failed to archive session", slog.Any("error", err))
	}

	s.metrics.SessionCompleted()
	s.setState(model.SessionStateFinished, len(s.questions))

	s.logger.Info("game finished",
		slog.Int("players", len(standings)),
		slog.String("winner", summary.Winner()))

	return summary, nil
}

// Status returns the current phase, round and players
func (s *Session) Status() Status {
	s.mu.RLock()
	status := Status{
		ID:          s.id,
		State:       s.state,
		Round:       s.round,
		TotalRounds: len(s.questions),
		LobbySize:   s.cfg.LobbySize,
		StartedAt:   s.startedAt,
	}
	s.mu.RUnlock()

	status.Players = s.registry.Snapshot()
	return status
}

func (s *Session) setState(state model.SessionState, round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.round = round
}

// Interface for dependency injection
type SessionInterface interface {
	ID() model.SessionID
	Run(ctx context.Context) (*model.SessionSummary, error)
	Status() Status
}

var _ SessionInterface = (*Session)(nil)
