package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/trivia-go/internal/dependencies/clock"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/protocol"
	"github.com/mcoot/trivia-go/internal/services/registry"
	"github.com/mcoot/trivia-go/internal/testutil"
)

type ServerSuite struct {
	suite.Suite
	registry *registry.Registry
	hub      *Hub
	metrics  *metrics.Metrics
	server   *Server
	cancel   context.CancelFunc
	done     chan error
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.start(2)
}

func (s *ServerSuite) TearDownTest() {
	s.stop()
}

func (s *ServerSuite) start(capacity int) {
	logger := testutil.NopLogger()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.WriteTimeout = time.Second

	s.registry = registry.New(capacity, 3, clock.New(), logger)
	s.hub = NewHub(logger)
	s.metrics = metrics.New()
	s.server = NewServer(cfg, s.registry, s.hub, s.metrics, logger)
	s.Require().NoError(s.server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- s.server.Serve(ctx)
	}()
}

func (s *ServerSuite) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("server did not stop")
	}
	s.cancel = nil
}

type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (s *ServerSuite) dial(name string) *client {
	conn, err := net.Dial("tcp", s.server.Addr().String())
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })

	if name != "" {
		_, err = fmt.Fprintf(conn, "%s\n", name)
		s.Require().NoError(err)
	}
	return &client{conn: conn, reader: bufio.NewReader(conn)}
}

func (s *ServerSuite) send(c *client, line string) {
	_, err := fmt.Fprintf(c.conn, "%s\n", line)
	s.Require().NoError(err)
}

func (s *ServerSuite) readLine(c *client) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.reader.ReadString('\n')
	return strings.TrimSuffix(line, "\n"), err
}

func (s *ServerSuite) waitForPlayers(n int) {
	s.Eventually(func() bool {
		return s.registry.Count() == n
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *ServerSuite) onlyPlayer() model.Player {
	snap := s.registry.Snapshot()
	s.Require().Len(snap, 1)
	return snap[0]
}

// answerOf reads a player's slot by name; safe to call from Eventually
func (s *ServerSuite) answerOf(name string, round int) model.Letter {
	for _, p := range s.registry.Snapshot() {
		if p.Name == name {
			return p.AnswerFor(round)
		}
	}
	return model.Unanswered
}

func (s *ServerSuite) TestJoinRegistersPlayer() {
	s.dial("  Maria  ")
	s.waitForPlayers(1)

	p := s.onlyPlayer()
	s.Equal("Maria", p.Name)
	s.NotEmpty(p.ConnID)
	s.Equal(1, s.hub.Count())
}

func (s *ServerSuite) TestSendReachesClient() {
	c := s.dial("ana")
	s.waitForPlayers(1)
	p := s.onlyPlayer()

	s.Require().NoError(s.hub.Send(p.ConnID, protocol.Frame(protocol.Welcome{Text: "hello"})))
	s.Require().NoError(s.hub.Send(p.ConnID, protocol.Frame(protocol.Final{})))

	line, err := s.readLine(c)
	s.Require().NoError(err)
	s.Equal("WELCOME|hello", line)
	line, err = s.readLine(c)
	s.Require().NoError(err)
	s.Equal("FINAL", line)
}

func (s *ServerSuite) TestSendToUnknownConnection() {
	err := s.hub.Send("missing", []byte("x\n"))
	s.ErrorIs(err, model.ErrUnknownConnection)
}

func (s *ServerSuite) TestAnswerIsRecordedForOpenRound() {
	c := s.dial("ana")
	s.waitForPlayers(1)
	s.registry.OpenRound(0)

	s.send(c, "ANSWER|1|C")

	s.Eventually(func() bool {
		return s.answerOf("ana", 0) == model.LetterC
	}, 2*time.Second, 5*time.Millisecond)
}

// A malformed answer leaves the slot untouched and the connection usable
func (s *ServerSuite) TestMalformedAnswerIsDropped() {
	c := s.dial("ana")
	s.dial("ben")
	s.waitForPlayers(2)
	s.registry.OpenRound(0)

	s.send(c, "ANSWER|abc|B")
	s.send(c, "garbage")
	s.send(c, "ANSWER|1|b")
	s.send(c, "ANSWER|1|D")

	s.Eventually(func() bool {
		return s.answerOf("ana", 0) == model.LetterD
	}, 2*time.Second, 5*time.Millisecond)

	s.Equal(model.Unanswered, s.answerOf("ben", 0))
	s.Equal(2, s.registry.Count())
}

func (s *ServerSuite) metricsText() string {
	rec := httptest.NewRecorder()
	s.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// An overlong line is discarded and the player stays in the game
func (s *ServerSuite) TestOverlongLineIsDroppedAndConnectionKept() {
	c := s.dial("ana")
	s.waitForPlayers(1)
	s.registry.OpenRound(0)

	s.send(c, "ANSWER|1|"+strings.Repeat("x", 5000))
	s.send(c, "ANSWER|1|B")

	s.Eventually(func() bool {
		return s.answerOf("ana", 0) == model.LetterB
	}, 2*time.Second, 5*time.Millisecond)
	s.Equal(1, s.registry.Count())
	s.Contains(s.metricsText(), "trivia_malformed_messages_total 1")
}

func (s *ServerSuite) TestOverlongJoinLineIsRejected() {
	c := s.dial(strings.Repeat("n", 5000))

	_, err := s.readLine(c)
	s.ErrorIs(err, io.EOF)
	s.Equal(0, s.registry.Count())
	s.Contains(s.metricsText(), `trivia_connections_rejected_total{reason="invalid_join"} 1`)
}

func (s *ServerSuite) TestAnswerCannotBeChanged() {
	c := s.dial("ana")
	s.waitForPlayers(1)
	s.registry.OpenRound(0)

	s.send(c, "ANSWER|1|A")
	s.send(c, "ANSWER|1|B")
	s.send(c, "ANSWER|2|C")

	s.Eventually(func() bool {
		return s.answerOf("ana", 0) == model.LetterA
	}, 2*time.Second, 5*time.Millisecond)
	// give the later lines time to be read and ignored
	time.Sleep(50 * time.Millisecond)

	p := s.onlyPlayer()
	s.Equal(model.LetterA, p.AnswerFor(0))
	s.False(p.HasAnswered(1))
}

func (s *ServerSuite) TestDisconnectRemovesPlayer() {
	c := s.dial("ana")
	s.waitForPlayers(1)

	_ = c.conn.Close()

	s.waitForPlayers(0)
	s.Eventually(func() bool {
		return s.hub.Count() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func (s *ServerSuite) TestEmptyNameClosesConnection() {
	c := s.dial("")
	s.send(c, "   ")

	_, err := s.readLine(c)
	s.ErrorIs(err, io.EOF)
	s.Equal(0, s.registry.Count())
}

func (s *ServerSuite) TestJoinRejectedWhenFull() {
	s.dial("ana")
	s.dial("ben")
	s.waitForPlayers(2)

	late := s.dial("cara")
	_, err := s.readLine(late)
	s.ErrorIs(err, io.EOF)
	s.Equal(2, s.registry.Count())
	s.Equal(2, s.hub.Count())
}

func (s *ServerSuite) TestShutdownClosesClients() {
	joined := s.dial("ana")
	pending := s.dial("")
	s.waitForPlayers(1)

	s.stop()

	_, err := s.readLine(joined)
	s.ErrorIs(err, io.EOF)
	_, err = s.readLine(pending)
	s.ErrorIs(err, io.EOF)
	s.Equal(0, s.registry.Count())
}
