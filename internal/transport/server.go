package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
	"github.com/mcoot/trivia-go/internal/services/registry"
)

// Config holds listener and per-connection settings
type Config struct {
	Addr         string
	WriteTimeout time.Duration

	// Inbound lines per second and burst, per connection. Excess lines are delayed.
	LineRate  rate.Limit
	LineBurst int

	// Longer inbound lines are discarded without closing the connection.
	MaxLineLength int
}

var errLineTooLong = errors.New("line exceeds maximum length")

// DefaultConfig returns sensible defaults for the game listener
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		WriteTimeout:  10 * time.Second,
		LineRate:      20,
		LineBurst:     10,
		MaxLineLength: 4096,
	}
}

// Server accepts player connections and feeds their lines into the registry.
// It owns no game state; the registry and hub are handed in explicitly.
type Server struct {
	cfg      Config
	registry registry.RegistryInterface
	hub      *Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	open     map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewServer creates a new game Server
func NewServer(cfg Config, registry registry.RegistryInterface, hub *Hub, metrics *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		hub:      hub,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "transport")),
		open:     make(map[net.Conn]struct{}),
	}
}

// Listen binds the listener without accepting yet
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("game server listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done, then closes every
// connection and waits for their handlers to exit.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("transport: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = err
				s.logger.Error("accept failed", slog.Any("error", err))
			}
			break
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handle(ctx, conn)
		}()
	}

	s.closeAll()
	s.wg.Wait()
	s.logger.Info("game server stopped")
	return acceptErr
}

func (s *Server) track(conn net.Conn, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.open[conn] = struct{}{}
	} else {
		delete(s.open, conn)
	}
}

// closeAll closes every open socket, unblocking their readers
func (s *Server) closeAll() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.open))
	for c := range s.open {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	if len(conns) > 0 {
		s.logger.Info("closed open connections", slog.Int("count", len(conns)))
	}
}

// handle runs one connection: join line, then answers until EOF
func (s *Server) handle(ctx context.Context, netConn net.Conn) {
	id := model.ConnID(uuid.NewString())
	logger := s.logger.With(
		slog.String("conn_id", string(id)),
		slog.String("remote", netConn.RemoteAddr().String()),
	)

	lines := newLineReader(netConn, s.cfg.MaxLineLength)

	first, tooLong, err := lines.next()
	if err != nil && !tooLong {
		_ = netConn.Close()
		return
	}
	join, err := protocol.DecodeJoin(first)
	if tooLong {
		err = errLineTooLong
	}
	if err != nil {
		s.metrics.ConnectionRejected(metrics.RejectInvalidJoin)
		logger.Info("rejected connection", slog.Any("error", err))
		_ = netConn.Close()
		return
	}

	// register for sends before joining so no broadcast after the join is missed
	conn := newConn(id, netConn, s.cfg.WriteTimeout)
	s.hub.Register(conn)

	if _, err := s.registry.Add(id, join.Name); err != nil {
		s.hub.Unregister(id)
		_ = conn.Close()
		if errors.Is(err, model.ErrRegistryFull) {
			s.metrics.ConnectionRejected(metrics.RejectLobbyFull)
		}
		logger.Info("rejected join",
			slog.String("player", join.Name),
			slog.Any("error", err))
		return
	}
	s.metrics.PlayerJoined()

	defer func() {
		s.registry.Remove(id)
		s.hub.Unregister(id)
		_ = conn.Close()
		s.metrics.PlayerLeft()
		logger.Info("connection closed", slog.String("player", join.Name))
	}()

	limiter := rate.NewLimiter(s.cfg.LineRate, s.cfg.LineBurst)
	for {
		line, tooLong, err := lines.next()
		if tooLong {
			s.metrics.MalformedMessage()
			logger.Debug("dropped overlong line", slog.Int("max_length", s.cfg.MaxLineLength))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("read ended", slog.Any("error", err))
			}
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if !tooLong {
			s.handleLine(id, line, logger)
		}
	}
}

// handleLine decodes one inbound line. Anything other than a valid answer is dropped.
func (s *Server) handleLine(id model.ConnID, line string, logger *slog.Logger) {
	msg, err := protocol.Decode(line)
	if err != nil {
		s.metrics.MalformedMessage()
		logger.Debug("dropped malformed line", slog.Any("error", err))
		return
	}

	answer, ok := msg.(protocol.Answer)
	if !ok {
		s.metrics.MalformedMessage()
		logger.Debug("dropped unexpected message", slog.String("kind", string(msg.Kind())))
		return
	}

	if err := s.registry.RecordAnswer(id, answer.Round-1, answer.Letter); err != nil {
		s.metrics.AnswerReceived(metrics.AnswerIgnored)
		logger.Debug("answer ignored",
			slog.Int("round", answer.Round),
			slog.Any("error", err))
		return
	}
	s.metrics.AnswerReceived(metrics.AnswerRecorded)
}
