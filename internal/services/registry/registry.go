package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/trivia-go/internal/dependencies/clock"
	"github.com/mcoot/trivia-go/internal/model"
)

// noRoundOpen is the open-round marker before the first question
const noRoundOpen = -1

// Condition is evaluated over the live player set while the registry lock is held.
// It must not call back into the registry.
type Condition func(players []*model.Player) bool

type waiter struct {
	cond Condition
	done chan struct{}
}

// Registry is the single owner of mutable player state.
//
// All methods are safe for concurrent use. Mutations and snapshots are
// serialized by one mutex, so every snapshot reflects some total order of
// the mutations applied so far.
type Registry struct {
	mu sync.Mutex

	capacity int
	rounds   int
	sealed   bool

	players   []*model.Player // insertion order
	byConn    map[model.ConnID]*model.Player
	nextSeq   int
	openRound int

	waiters []*waiter

	clock  clock.Clock
	logger *slog.Logger
}

// New creates a registry for a session of the given lobby capacity and round count
func New(capacity, rounds int, clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		capacity:  capacity,
		rounds:    rounds,
		byConn:    make(map[model.ConnID]*model.Player),
		openRound: noRoundOpen,
		clock:     clock,
		logger:    logger.With(slog.String("component", "registry")),
	}
}

// Add registers a player for a connection that has completed its join line
func (r *Registry) Add(id model.ConnID, name string) (model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed || len(r.players) >= r.capacity {
		return model.Player{}, model.ErrRegistryFull
	}
	if _, ok := r.byConn[id]; ok {
		return model.Player{}, model.ErrDuplicateConnection
	}

	p := model.NewPlayer(id, name, r.rounds, r.nextSeq, r.clock.Now())
	r.nextSeq++
	r.players = append(r.players, p)
	r.byConn[id] = p

	r.logger.Info("player joined",
		slog.String("conn_id", string(id)),
		slog.String("player", name),
		slog.Int("count", len(r.players)),
		slog.Int("capacity", r.capacity),
	)

	r.notifyLocked()
	return p.Clone(), nil
}

// Remove drops the player for a connection. Removing an unknown connection is a no-op.
func (r *Registry) Remove(id model.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[id]
	if !ok {
		return
	}

	delete(r.byConn, id)
	for i, candidate := range r.players {
		if candidate == p {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	r.logger.Info("player left",
		slog.String("conn_id", string(id)),
		slog.String("player", p.Name),
		slog.Int("count", len(r.players)),
	)

	r.notifyLocked()
}

// OpenRound makes round the only round that accepts answers
func (r *Registry) OpenRound(round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openRound = round
	r.notifyLocked()
}

// RecordAnswer sets the player's answer slot for a round if it is still unanswered.
// The returned error only describes why the answer was ignored; callers treat
// every error as a no-op.
func (r *Registry) RecordAnswer(id model.ConnID, round int, letter model.Letter) error {
	if !letter.Valid() {
		return model.ErrInvalidLetter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byConn[id]
	if !ok {
		return model.ErrUnknownConnection
	}
	if round != r.openRound || round < 0 || round >= len(p.Answers) {
		return model.ErrRoundNotOpen
	}
	if p.Answers[round] != model.Unanswered {
		return model.ErrAlreadyAnswered
	}

	p.Answers[round] = letter

	r.logger.Info("answer recorded",
		slog.String("player", p.Name),
		slog.Int("round", round+1),
		slog.String("letter", letter.String()),
	)

	r.notifyLocked()
	return nil
}

// ApplyEvaluations writes scores back. Evaluations for departed players are skipped.
func (r *Registry) ApplyEvaluations(evals []model.Evaluation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range evals {
		p, ok := r.byConn[e.ConnID]
		if !ok {
			continue
		}
		// score and correct count never decrease
		if e.NewScore > p.Score {
			p.Score = e.NewScore
		}
		if e.NewCorrectCount > p.CorrectCount {
			p.CorrectCount = e.NewCorrectCount
		}
	}
}

// Snapshot returns a point-in-time deep copy of all players in join order
func (r *Registry) Snapshot() []model.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.Player, 0, len(r.players))
	for _, p := range r.players {
		result = append(result, p.Clone())
	}
	return result
}

// Count returns the number of registered players
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// WaitFor blocks until cond holds over the live player set or ctx is done.
// The condition is checked immediately and again after every mutation.
func (r *Registry) WaitFor(ctx context.Context, cond Condition) error {
	r.mu.Lock()
	if cond(r.players) {
		r.mu.Unlock()
		return nil
	}
	w := &waiter{cond: cond, done: make(chan struct{})}
	r.waiters = append(r.waiters, w)
	r.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		r.dropWaiter(w)
		return ctx.Err()
	}
}

// WaitForCount blocks until at least n players are registered
func (r *Registry) WaitForCount(ctx context.Context, n int) error {
	return r.WaitFor(ctx, func(players []*model.Player) bool {
		return len(players) >= n
	})
}

// WaitForLobby blocks until the lobby is at capacity and closes it to new
// joins in the same critical section, so a seat freed afterwards stays closed
// and the game never starts on a lobby that was not full when it sealed.
func (r *Registry) WaitForLobby(ctx context.Context) error {
	return r.WaitFor(ctx, func(players []*model.Player) bool {
		if len(players) < r.capacity {
			return false
		}
		r.sealed = true
		return true
	})
}

// WaitForRound blocks until every live player has answered round.
// A player who disconnects leaves the wait set, so the wait cannot be
// stranded by a departed player.
func (r *Registry) WaitForRound(ctx context.Context, round int) error {
	return r.WaitFor(ctx, func(players []*model.Player) bool {
		return AllAnswered(players, round)
	})
}

// AllAnswered reports whether every player has an answer for the round.
// True for an empty set.
func AllAnswered(players []*model.Player, round int) bool {
	for _, p := range players {
		if !p.HasAnswered(round) {
			return false
		}
	}
	return true
}

// notifyLocked releases every waiter whose condition now holds. Caller holds r.mu.
func (r *Registry) notifyLocked() {
	if len(r.waiters) == 0 {
		return
	}
	remaining := r.waiters[:0]
	for _, w := range r.waiters {
		if w.cond(r.players) {
			close(w.done)
			continue
		}
		remaining = append(remaining, w)
	}
	for i := len(remaining); i < len(r.waiters); i++ {
		r.waiters[i] = nil
	}
	r.waiters = remaining
}

func (r *Registry) dropWaiter(target *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, w := range r.waiters {
		if w == target {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return
		}
	}
}

// Interface for dependency injection
type RegistryInterface interface {
	Add(id model.ConnID, name string) (model.Player, error)
	Remove(id model.ConnID)
	OpenRound(round int)
	RecordAnswer(id model.ConnID, round int, letter model.Letter) error
	ApplyEvaluations(evals []model.Evaluation)
	Snapshot() []model.Player
	Count() int
	WaitForCount(ctx context.Context, n int) error
	WaitForLobby(ctx context.Context) error
	WaitForRound(ctx context.Context, round int) error
}

var _ RegistryInterface = (*Registry)(nil)
