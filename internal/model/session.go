package model

import "time"

// SessionID uniquely identifies one game session
type SessionID string

// SessionState represents the current phase of a game session
type SessionState string

const (
	SessionStateWaitingForLobby SessionState = "waiting_for_lobby"
	SessionStateWelcoming       SessionState = "welcoming"
	SessionStateRound           SessionState = "round"
	SessionStateFinalBroadcast  SessionState = "final_broadcast"
	SessionStateFinished        SessionState = "finished"
)

// Standing is one row of the final ranking
type Standing struct {
	Rank         int
	Name         string
	Score        int
	CorrectCount int
	Accuracy     float64 // percent, one decimal
}

// SessionSummary is the archived record of a finished session
type SessionSummary struct {
	ID          SessionID
	Rounds      int
	Standings   []Standing
	StartedAt   time.Time
	CompletedAt time.Time
}

// Winner returns the top-ranked name, or empty string if there is no sole leader
func (s *SessionSummary) Winner() string {
	if len(s.Standings) == 0 {
		return ""
	}
	if len(s.Standings) > 1 && s.Standings[1].Score == s.Standings[0].Score {
		return ""
	}
	return s.Standings[0].Name
}
