package response

import (
	"time"

	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/services/session"
)

// Player represents a connected player in API responses
type Player struct {
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	CorrectCount int      `json:"correct_count"`
	Answers      []string `json:"answers"`
	JoinedAt     string   `json:"joined_at"`
}

// PlayerFromModel converts a model.Player; unanswered slots render as "?"
func PlayerFromModel(p model.Player) Player {
	answers := make([]string, len(p.Answers))
	for i, a := range p.Answers {
		answers[i] = a.String()
	}
	return Player{
		Name:         p.Name,
		Score:        p.Score,
		CorrectCount: p.CorrectCount,
		Answers:      answers,
		JoinedAt:     p.JoinedAt.UTC().Format(time.RFC3339),
	}
}

// Session represents the live session status
type Session struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Round       int        `json:"round"`
	TotalRounds int        `json:"total_rounds"`
	LobbySize   int        `json:"lobby_size"`
	Players     []Player   `json:"players"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
}

// SessionFromStatus converts a session.Status
func SessionFromStatus(s session.Status) Session {
	players := make([]Player, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerFromModel(p)
	}

	var startedAt *time.Time
	if !s.StartedAt.IsZero() {
		t := s.StartedAt
		startedAt = &t
	}

	return Session{
		ID:          string(s.ID),
		State:       string(s.State),
		Round:       s.Round,
		TotalRounds: s.TotalRounds,
		LobbySize:   s.LobbySize,
		Players:     players,
		StartedAt:   startedAt,
	}
}

// Standing represents one row of a final ranking
type Standing struct {
	Rank         int     `json:"rank"`
	Name         string  `json:"name"`
	Score        int     `json:"score"`
	CorrectCount int     `json:"correct_count"`
	Accuracy     float64 `json:"accuracy"`
}

// StandingFromModel converts model.Standing
func StandingFromModel(s model.Standing) Standing {
	return Standing{
		Rank:         s.Rank,
		Name:         s.Name,
		Score:        s.Score,
		CorrectCount: s.CorrectCount,
		Accuracy:     s.Accuracy,
	}
}

// Summary represents an archived session
type Summary struct {
	ID          string     `json:"id"`
	Rounds      int        `json:"rounds"`
	Standings   []Standing `json:"standings"`
	Winner      *string    `json:"winner"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// SummaryFromModel converts model.SessionSummary
func SummaryFromModel(s *model.SessionSummary) Summary {
	standings := make([]Standing, len(s.Standings))
	for i, st := range s.Standings {
		standings[i] = StandingFromModel(st)
	}

	var winner *string
	if w := s.Winner(); w != "" {
		winner = &w
	}

	return Summary{
		ID:          string(s.ID),
		Rounds:      s.Rounds,
		Standings:   standings,
		Winner:      winner,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

// SummaryList wraps a list of archived sessions
type SummaryList struct {
	Sessions []Summary `json:"sessions"`
}
