package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/trivia-go/internal/api"
	"github.com/mcoot/trivia-go/internal/dependencies/clock"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/services/broadcast"
	"github.com/mcoot/trivia-go/internal/services/questions"
	"github.com/mcoot/trivia-go/internal/services/registry"
	"github.com/mcoot/trivia-go/internal/services/round"
	"github.com/mcoot/trivia-go/internal/services/scoring"
	"github.com/mcoot/trivia-go/internal/services/session"
	"github.com/mcoot/trivia-go/internal/storage"
	"github.com/mcoot/trivia-go/internal/storage/memory"
	redisstorage "github.com/mcoot/trivia-go/internal/storage/redis"
	"github.com/mcoot/trivia-go/internal/transport"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// TracerName is the instrumentation scope for round spans
const TracerName = "github.com/mcoot/trivia-go"

// DefaultLobbySize matches the original three-seat game
const DefaultLobbySize = 3

// App contains all wired application components for one session
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock   clock.Clock
	Metrics *metrics.Metrics

	// Services
	QuestionService *questions.Service
	ScoringService  *scoring.Service
	Registry        *registry.Registry
	Hub             *transport.Hub
	Broadcaster     *broadcast.Broadcaster
	Coordinator     *round.Coordinator
	Session         *session.Session
	GameServer      *transport.Server

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// QuestionsPath is a YAML question bank. If empty, the built-in bank is used.
	QuestionsPath string

	LobbySize        int
	PointsPerCorrect int
	// InterRoundDelay is used as given; zero means no pause between rounds
	InterRoundDelay time.Duration
	WelcomeText     string

	// Transport configures the game listener. Zero value uses transport.DefaultConfig().
	Transport transport.Config
	// Tracer for round spans (optional). Defaults to the global otel provider.
	Tracer trace.Tracer
}

// New creates a new application with all dependencies wired.
// The question bank is loaded here because it fixes the round count.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	app, err := newWithDependencies(ctx, store, clock.New(), cfg, logger)
	if err != nil {
		_ = closeStorage(store)
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(ctx context.Context, store storage.Storage, clk clock.Clock, cfg Config, logger *slog.Logger) (*App, error) {
	cfg = withDefaults(cfg)

	questionService := questions.New(store)
	if cfg.QuestionsPath != "" {
		if err := questionService.LoadFromFile(ctx, cfg.QuestionsPath); err != nil {
			return nil, fmt.Errorf("loading questions: %w", err)
		}
	} else if err := questionService.LoadDefault(ctx); err != nil {
		return nil, fmt.Errorf("loading built-in questions: %w", err)
	}
	bank, err := questionService.Questions()
	if err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}

	m := metrics.New()
	scoringService := scoring.New(cfg.PointsPerCorrect)
	reg := registry.New(cfg.LobbySize, len(bank), clk, logger)
	hub := transport.NewHub(logger)
	broadcaster := broadcast.New(hub, m, logger)
	coordinator := round.NewCoordinator(reg, scoringService, broadcaster, m, cfg.Tracer, clk, logger)
	sess := session.New(
		session.Config{
			LobbySize:       cfg.LobbySize,
			InterRoundDelay: cfg.InterRoundDelay,
			WelcomeText:     cfg.WelcomeText,
		},
		bank,
		reg,
		coordinator,
		scoringService,
		broadcaster,
		store,
		m,
		clk,
		logger,
	)
	gameServer := transport.NewServer(cfg.Transport, reg, hub, m, logger)

	logger.Info("application wired",
		slog.String("session_id", string(sess.ID())),
		slog.Int("lobby_size", cfg.LobbySize),
		slog.Int("rounds", len(bank)),
	)

	return &App{
		Storage:         store,
		Clock:           clk,
		Metrics:         m,
		QuestionService: questionService,
		ScoringService:  scoringService,
		Registry:        reg,
		Hub:             hub,
		Broadcaster:     broadcaster,
		Coordinator:     coordinator,
		Session:         sess,
		GameServer:      gameServer,
		logger:          logger,
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.LobbySize <= 0 {
		cfg.LobbySize = DefaultLobbySize
	}
	if cfg.PointsPerCorrect <= 0 {
		cfg.PointsPerCorrect = scoring.DefaultPointsPerCorrect
	}
	if cfg.Transport == (transport.Config{}) {
		cfg.Transport = transport.DefaultConfig()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(TracerName)
	}
	return cfg
}

// Router builds the status API handler over this app's session and archive
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:  a.logger,
		Session: a.Session,
		Storage: a.Storage,
		Metrics: a.Metrics,
	})
}

// Close releases storage connections
func (a *App) Close() error {
	return closeStorage(a.Storage)
}

func closeStorage(store storage.Storage) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
