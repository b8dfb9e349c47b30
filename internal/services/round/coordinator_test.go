package round

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mcoot/trivia-go/internal/dependencies/mocks"
	"github.com/mcoot/trivia-go/internal/metrics"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/services/broadcast"
	"github.com/mcoot/trivia-go/internal/services/registry"
	"github.com/mcoot/trivia-go/internal/services/scoring"
	"github.com/mcoot/trivia-go/internal/testutil"
)

type CoordinatorSuite struct {
	suite.Suite
	clock       *mocks.MockClock
	registry    *registry.Registry
	sender      *testutil.RecordingSender
	spans       *tracetest.SpanRecorder
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	logger := testutil.NopLogger()
	m := metrics.New()

	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = registry.New(3, 2, s.clock, logger)
	s.sender = testutil.NewRecordingSender()
	s.spans = tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))

	s.coordinator = NewCoordinator(
		s.registry,
		scoring.New(scoring.DefaultPointsPerCorrect),
		broadcast.New(s.sender, m, logger),
		m,
		tp.Tracer("round-test"),
		s.clock,
		logger,
	)
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) join(id model.ConnID, name string) {
	_, err := s.registry.Add(id, name)
	s.Require().NoError(err)
}

// answerOnQuestion answers as soon as the question reaches each listed connection
func (s *CoordinatorSuite) answerOnQuestion(answers map[model.ConnID]model.Letter) {
	s.sender.OnSend(func(id model.ConnID, line string) {
		if !strings.HasPrefix(line, "QUESTION|") {
			return
		}
		if letter, ok := answers[id]; ok {
			round := s.currentRound()
			_ = s.registry.RecordAnswer(id, round, letter)
		}
	})
}

func (s *CoordinatorSuite) currentRound() int {
	index, _ := s.coordinator.State()
	return index
}

func question(correct model.Letter) model.Question {
	return model.Question{
		Prompt:  "Sino ang pambansang bayani ng Pilipinas?",
		Options: [4]string{"A) Andres Bonifacio", "B) Jose Rizal", "C) Lapu-Lapu", "D) Emilio Aguinaldo"},
		Correct: correct,
	}
}

func (s *CoordinatorSuite) TestInitialState() {
	index, state := s.coordinator.State()
	s.Equal(-1, index)
	s.Equal(StateIdle, state)
}

func (s *CoordinatorSuite) TestRoundScoresAndBroadcastsResult() {
	s.join("c1", "ana")
	s.join("c2", "ben")
	s.answerOnQuestion(map[model.ConnID]model.Letter{"c1": model.LetterB, "c2": model.LetterA})

	outcome, err := s.coordinator.Run(s.ctx, 0, question(model.LetterB))
	s.Require().NoError(err)

	s.Equal(0, outcome.Round)
	s.Equal(model.LetterB, outcome.Correct)
	s.Require().Len(outcome.Evaluations, 2)
	s.True(outcome.Evaluations[0].IsCorrect)
	s.False(outcome.Evaluations[1].IsCorrect)

	s.Equal([]string{
		"QUESTION|1|Sino ang pambansang bayani ng Pilipinas?|A) Andres Bonifacio|B) Jose Rizal|C) Lapu-Lapu|D) Emilio Aguinaldo",
		"RESULT|1|B|ana|B|TAMA|10|ben|A|MALI|0",
	}, s.sender.LinesFor("c1"))

	snap := s.registry.Snapshot()
	s.Equal(10, snap[0].Score)
	s.Equal(1, snap[0].CorrectCount)
	s.Equal(0, snap[1].Score)

	index, state := s.coordinator.State()
	s.Equal(0, index)
	s.Equal(StateComplete, state)
}

// Three players join; C disconnects before answering. The round completes
// on A and B alone and C is absent from the result.
func (s *CoordinatorSuite) TestDisconnectDuringRoundReleasesBarrier() {
	s.join("a", "A")
	s.join("b", "B")
	s.join("c", "C")

	s.sender.OnSend(func(id model.ConnID, line string) {
		if !strings.HasPrefix(line, "QUESTION|") {
			return
		}
		switch id {
		case "a":
			_ = s.registry.RecordAnswer("a", 0, model.LetterB)
		case "b":
			_ = s.registry.RecordAnswer("b", 0, model.LetterC)
		}
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.coordinator.Run(s.ctx, 0, question(model.LetterB))
		done <- err
	}()

	// C received the question but never answers
	s.Eventually(func() bool {
		return len(s.sender.LinesFor("c")) == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case <-done:
		s.Fail("round finished while C was still connected")
	case <-time.After(50 * time.Millisecond):
	}

	s.registry.Remove("c")

	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("round did not complete after disconnect")
	}

	expected := "RESULT|1|B|A|B|TAMA|10|B|C|MALI|0"
	s.Equal(expected, s.sender.LinesFor("a")[1])
	s.Equal(expected, s.sender.LinesFor("b")[1])
	s.Len(s.sender.LinesFor("c"), 1)
}

func (s *CoordinatorSuite) TestAnswersArrivingWhileBlocked() {
	s.join("c1", "ana")
	s.join("c2", "ben")

	done := make(chan error, 1)
	go func() {
		_, err := s.coordinator.Run(s.ctx, 0, question(model.LetterD))
		done <- err
	}()

	s.Eventually(func() bool {
		_, state := s.coordinator.State()
		return state == StateAwaitingAnswers && len(s.sender.Lines()) == 2
	}, time.Second, 5*time.Millisecond)

	s.Require().NoError(s.registry.RecordAnswer("c2", 0, model.LetterD))
	s.Require().NoError(s.registry.RecordAnswer("c1", 0, model.LetterC))

	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("round did not complete")
	}

	s.Equal("RESULT|1|D|ana|C|MALI|0|ben|D|TAMA|10", s.sender.LinesFor("c1")[1])
}

func (s *CoordinatorSuite) TestRoundsAreStrictlyOrdered() {
	s.join("c1", "ana")
	s.join("c2", "ben")
	s.answerOnQuestion(map[model.ConnID]model.Letter{"c1": model.LetterA, "c2": model.LetterA})

	_, err := s.coordinator.Run(s.ctx, 0, question(model.LetterA))
	s.Require().NoError(err)
	_, err = s.coordinator.Run(s.ctx, 1, question(model.LetterB))
	s.Require().NoError(err)

	for _, id := range []model.ConnID{"c1", "c2"} {
		lines := s.sender.LinesFor(id)
		s.Require().Len(lines, 4)
		s.True(strings.HasPrefix(lines[0], "QUESTION|1|"))
		s.True(strings.HasPrefix(lines[1], "RESULT|1|"))
		s.True(strings.HasPrefix(lines[2], "QUESTION|2|"))
		s.True(strings.HasPrefix(lines[3], "RESULT|2|"))
	}

	// round 2 answers were wrong, so scores carry over unchanged
	s.Equal("RESULT|2|B|ana|A|MALI|10|ben|A|MALI|10", s.sender.LinesFor("c1")[3])
}

func (s *CoordinatorSuite) TestLateAnswerForPreviousRoundIgnored() {
	s.join("c1", "ana")
	s.answerOnQuestion(map[model.ConnID]model.Letter{"c1": model.LetterA})

	_, err := s.coordinator.Run(s.ctx, 0, question(model.LetterA))
	s.Require().NoError(err)

	s.sender.OnSend(nil)
	s.registry.OpenRound(1)
	err = s.registry.RecordAnswer("c1", 0, model.LetterB)
	s.ErrorIs(err, model.ErrRoundNotOpen)
}

func (s *CoordinatorSuite) TestSendFailureDoesNotFailRound() {
	s.join("c1", "ana")
	s.join("c2", "ben")
	s.sender.FailFor("c2")
	s.answerOnQuestion(map[model.ConnID]model.Letter{"c1": model.LetterA})

	// c2 never sees the question but answers anyway
	s.registry.OpenRound(0)
	s.Require().NoError(s.registry.RecordAnswer("c2", 0, model.LetterB))

	outcome, err := s.coordinator.Run(s.ctx, 0, question(model.LetterA))
	s.Require().NoError(err)
	s.Equal("RESULT|1|A|ana|A|TAMA|10|ben|B|MALI|0", s.sender.LinesFor("c1")[1])
	s.Len(outcome.Result.Players, 2)
}

func (s *CoordinatorSuite) TestEmptyRegistryCompletesImmediately() {
	outcome, err := s.coordinator.Run(s.ctx, 0, question(model.LetterA))
	s.Require().NoError(err)
	s.Empty(outcome.Result.Players)
	s.Empty(s.sender.Lines())
}

func (s *CoordinatorSuite) TestContextCancelledWhileWaiting() {
	s.join("c1", "ana")

	ctx, cancel := context.WithCancel(s.ctx)
	s.sender.OnSend(func(id model.ConnID, line string) {
		cancel()
	})

	outcome, err := s.coordinator.Run(ctx, 0, question(model.LetterA))
	s.ErrorIs(err, context.Canceled)
	s.Nil(outcome)

	ended := s.spans.Ended()
	s.Require().Len(ended, 1)
	s.Equal(codes.Error, ended[0].Status().Code)
}

func (s *CoordinatorSuite) TestRoundSpan() {
	s.join("c1", "ana")
	s.answerOnQuestion(map[model.ConnID]model.Letter{"c1": model.LetterA})

	_, err := s.coordinator.Run(s.ctx, 1, question(model.LetterA))
	s.Require().NoError(err)

	ended := s.spans.Ended()
	s.Require().Len(ended, 1)
	span := ended[0]
	s.Equal("round.run", span.Name())
	s.Contains(span.Attributes(), attribute.Int("round", 2))
	s.Contains(span.Attributes(), attribute.Int("players.start", 1))
	s.Contains(span.Attributes(), attribute.Int("players.end", 1))
}

func (s *CoordinatorSuite) TestBuildResult() {
	players := []model.Player{
		{Name: "ana", Score: 10, Answers: []model.Letter{model.LetterB}},
		{Name: "ben", Score: 0, Answers: []model.Letter{model.Unanswered}},
	}

	result := BuildResult(0, model.LetterB, players)

	s.Equal(1, result.Round)
	s.Require().Len(result.Players, 2)
	s.True(result.Players[0].Correct)
	s.False(result.Players[1].Correct)
	s.Equal(model.Unanswered, result.Players[1].Letter)
}
