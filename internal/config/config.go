package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/trivia-go/internal/api"
	"github.com/mcoot/trivia-go/internal/factory"
	"github.com/mcoot/trivia-go/internal/services/scoring"
	"github.com/mcoot/trivia-go/internal/services/session"
	redisstorage "github.com/mcoot/trivia-go/internal/storage/redis"
	"github.com/mcoot/trivia-go/internal/transport"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "TRIVIA"

// Config holds the server's command-line and environment settings
type Config struct {
	Bind            string
	Port            int
	HTTPPort        int
	LobbySize       int
	Points          int
	InterRoundDelay time.Duration
	Questions       string
	Storage         string
	RedisURL        string
	Verbose         bool
}

// Validate checks the settings for consistency
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port (must be between 0-65535 inclusive): %d", c.HTTPPort)
	}
	if c.HTTPPort != 0 && c.HTTPPort == c.Port {
		return fmt.Errorf("--port and --http-port must differ: %d", c.Port)
	}
	if c.LobbySize < 1 {
		return fmt.Errorf("invalid lobby size (must be at least 1): %d", c.LobbySize)
	}
	if c.Points < 1 {
		return fmt.Errorf("invalid points (must be at least 1): %d", c.Points)
	}
	if c.InterRoundDelay < 0 {
		return fmt.Errorf("invalid inter-round delay: %s", c.InterRoundDelay)
	}
	switch c.Storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage type (must be memory or redis): %q", c.Storage)
	}
	return nil
}

// GameAddr is the listen address for the line protocol
func (c *Config) GameAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// LogLevel is Debug with --verbose, Info otherwise
func (c *Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Factory translates the settings into an application factory config
func (c *Config) Factory(logger *slog.Logger) factory.Config {
	tcfg := transport.DefaultConfig()
	tcfg.Addr = c.GameAddr()

	cfg := factory.Config{
		Logger:           logger,
		StorageType:      c.Storage,
		QuestionsPath:    c.Questions,
		LobbySize:        c.LobbySize,
		PointsPerCorrect: c.Points,
		InterRoundDelay:  c.InterRoundDelay,
		Transport:        tcfg,
	}
	if c.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// HTTPServer returns the status API server config, or false if it is disabled
func (c *Config) HTTPServer() (api.ServerConfig, bool) {
	if c.HTTPPort == 0 {
		return api.ServerConfig{}, false
	}
	sc := api.DefaultServerConfig()
	sc.Host = c.Bind
	sc.Port = c.HTTPPort
	return sc, true
}

// Bind registers the server flags on cmd and fills unset flags from TRIVIA_* env vars.
// Explicit flags win over the environment.
func Bind(cmd *cobra.Command, cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: TRIVIA_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "game port to listen on (env: TRIVIA_PORT)")
	fs.IntVar(&cfg.HTTPPort, "http-port", 8081, "status API port, 0 disables (env: TRIVIA_HTTP_PORT)")
	fs.IntVar(&cfg.LobbySize, "lobby-size", factory.DefaultLobbySize, "players required to start (env: TRIVIA_LOBBY_SIZE)")
	fs.IntVar(&cfg.Points, "points", scoring.DefaultPointsPerCorrect, "points per correct answer (env: TRIVIA_POINTS)")
	fs.DurationVar(&cfg.InterRoundDelay, "inter-round-delay", session.DefaultInterRoundDelay, "pause between rounds (env: TRIVIA_INTER_ROUND_DELAY)")
	fs.StringVar(&cfg.Questions, "questions", "", "path to a YAML question bank, empty for the built-in bank (env: TRIVIA_QUESTIONS)")
	fs.StringVar(&cfg.Storage, "storage", factory.StorageTypeMemory, "session archive backend: memory or redis (env: TRIVIA_STORAGE)")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "redis URL when --storage=redis (env: TRIVIA_REDIS_URL)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log at debug level (env: TRIVIA_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
