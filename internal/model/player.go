package model

import "time"

// ConnID identifies one player connection. Owned by the transport layer.
type ConnID string

// Letter is a single answer choice, 'A' through 'D'.
// The zero value marks an unanswered slot.
type Letter byte

// Unanswered is the value of an answer slot that has not been set
const Unanswered Letter = 0

// Valid answer letters, in option order
const (
	LetterA Letter = 'A'
	LetterB Letter = 'B'
	LetterC Letter = 'C'
	LetterD Letter = 'D'
)

// Letters lists the valid answer letters in option order
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD}

// Valid reports whether l is one of A, B, C or D
func (l Letter) Valid() bool {
	return l >= LetterA && l <= LetterD
}

// String renders the letter, using "?" for an unanswered slot
func (l Letter) String() string {
	if l == Unanswered {
		return "?"
	}
	return string(rune(l))
}

// ParseLetter parses exactly one of "A", "B", "C" or "D"
func ParseLetter(s string) (Letter, error) {
	if len(s) != 1 {
		return Unanswered, ErrInvalidLetter
	}
	l := Letter(s[0])
	if !l.Valid() {
		return Unanswered, ErrInvalidLetter
	}
	return l, nil
}

// Player represents one connected participant
type Player struct {
	ConnID       ConnID
	Name         string // immutable after join
	Score        int
	CorrectCount int

	// Answers holds one slot per round, sized at creation.
	// A slot that is set is never overwritten.
	Answers []Letter

	JoinSeq  int // registration order, used to break ranking ties
	JoinedAt time.Time
}

// NewPlayer creates a player with every answer slot unanswered
func NewPlayer(id ConnID, name string, rounds, seq int, joinedAt time.Time) *Player {
	return &Player{
		ConnID:   id,
		Name:     name,
		Answers:  make([]Letter, rounds),
		JoinSeq:  seq,
		JoinedAt: joinedAt,
	}
}

// AnswerFor returns the answer for the given round, or Unanswered if out of range
func (p *Player) AnswerFor(round int) Letter {
	if round < 0 || round >= len(p.Answers) {
		return Unanswered
	}
	return p.Answers[round]
}

// HasAnswered returns true if the player has set an answer for the round
func (p *Player) HasAnswered(round int) bool {
	return p.AnswerFor(round) != Unanswered
}

// Clone returns a deep copy safe to hand outside the registry
func (p *Player) Clone() Player {
	c := *p
	c.Answers = make([]Letter, len(p.Answers))
	copy(c.Answers, p.Answers)
	return c
}

// Evaluation is the scoring outcome for one player in one round
type Evaluation struct {
	ConnID          ConnID
	Name            string
	Letter          Letter
	IsCorrect       bool
	NewScore        int
	NewCorrectCount int
}
