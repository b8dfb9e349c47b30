package factory

import (
	"context"
	"time"

	"github.com/mcoot/trivia-go/internal/dependencies/mocks"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/services/session"
	"github.com/mcoot/trivia-go/internal/storage/memory"
	"github.com/mcoot/trivia-go/internal/testutil"
	"github.com/mcoot/trivia-go/internal/transport"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with a mocked clock,
// in-memory storage and a game listener on a free loopback port
func NewTestApp(lobbySize int) (*TestApp, error) {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	tcfg := transport.DefaultConfig()
	tcfg.Addr = "127.0.0.1:0"
	tcfg.WriteTimeout = 2 * time.Second

	app, err := newWithDependencies(context.Background(), store, mockClock, Config{
		LobbySize:       lobbySize,
		InterRoundDelay: session.DefaultInterRoundDelay,
		Transport:       tcfg,
	}, testutil.NopLogger())
	if err != nil {
		return nil, err
	}

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}, nil
}

// DefaultBank returns the built-in questions the test app was loaded with
func (t *TestApp) DefaultBank() []model.Question {
	// always loaded by NewTestApp
	bank, _ := t.QuestionService.Questions()
	return bank
}
