package protocol

import "github.com/mcoot/trivia-go/internal/model"

// Kind identifies a message on the wire by its leading field
type Kind string

const (
	KindWelcome  Kind = "WELCOME"
	KindQuestion Kind = "QUESTION"
	KindAnswer   Kind = "ANSWER"
	KindResult   Kind = "RESULT"
	KindFinal    Kind = "FINAL"
)

// Verdict labels on RESULT lines
const (
	VerdictCorrect   = "TAMA"
	VerdictIncorrect = "MALI"
)

// Message is any tagged protocol record
type Message interface {
	Kind() Kind
}

// Join is the first line a connection sends: its display name, untagged
type Join struct {
	Name string
}

// Welcome is broadcast once when the lobby is full
type Welcome struct {
	Text string
}

// Question announces a round. Round is 1-based.
type Question struct {
	Round   int
	Prompt  string
	Options [model.OptionCount]string
}

// Answer is sent client to server. Round is 1-based.
type Answer struct {
	Round  int
	Letter model.Letter
}

// ResultEntry is one player's line in a round result
type ResultEntry struct {
	Name    string
	Letter  model.Letter
	Correct bool
	Score   int
}

// Result reports the outcome of a round. Round is 1-based.
type Result struct {
	Round   int
	Correct model.Letter
	Players []ResultEntry
}

// FinalEntry is one row of the final standings
type FinalEntry struct {
	Rank     int
	Name     string
	Score    int
	Accuracy float64
}

// Final reports the final standings
type Final struct {
	Standings []FinalEntry
}

func (Welcome) Kind() Kind  { return KindWelcome }
func (Question) Kind() Kind { return KindQuestion }
func (Answer) Kind() Kind   { return KindAnswer }
func (Result) Kind() Kind   { return KindResult }
func (Final) Kind() Kind    { return KindFinal }

// FinalFromStandings converts a ranking into a Final message
func FinalFromStandings(standings []model.Standing) Final {
	entries := make([]FinalEntry, 0, len(standings))
	for _, s := range standings {
		entries = append(entries, FinalEntry{
			Rank:     s.Rank,
			Name:     s.Name,
			Score:    s.Score,
			Accuracy: s.Accuracy,
		})
	}
	return Final{Standings: entries}
}
