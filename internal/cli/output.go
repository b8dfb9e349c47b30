package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/trivia-go/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

func (o *Output) isJSON() bool {
	return o.format == "json"
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.isJSON() {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintNotice outputs a hint for the player. Suppressed in JSON mode.
func (o *Output) PrintNotice(msg string) {
	if o.isJSON() {
		return
	}
	fmt.Fprintln(o.w, msg)
}

// Prompt writes a prompt without a trailing newline. Suppressed in JSON mode.
func (o *Output) Prompt(msg string) {
	if o.isJSON() {
		return
	}
	fmt.Fprint(o.w, msg)
}

// PrintGameMessage outputs one decoded protocol message.
// JSON mode writes one compact object per line.
func (o *Output) PrintGameMessage(msg protocol.Message) {
	if o.isJSON() {
		data, _ := json.Marshal(gameMessageJSON(msg))
		fmt.Fprintln(o.w, string(data))
		return
	}

	switch m := msg.(type) {
	case protocol.Welcome:
		fmt.Fprintln(o.w, m.Text)
	case protocol.Question:
		fmt.Fprintf(o.w, "\nQuestion %d: %s\n", m.Round, m.Prompt)
		for _, opt := range m.Options {
			fmt.Fprintf(o.w, "  %s\n", opt)
		}
	case protocol.Result:
		fmt.Fprintf(o.w, "\nRound %d - correct answer: %s\n", m.Round, m.Correct)
		for _, p := range m.Players {
			fmt.Fprintf(o.w, "  %s: %s %s (%d points)\n", p.Name, p.Letter, verdictLabel(p.Correct), p.Score)
		}
	case protocol.Final:
		fmt.Fprintln(o.w, "\nFinal standings:")
		for _, s := range m.Standings {
			fmt.Fprintf(o.w, "  %d. %s - %d points (%s%%)\n", s.Rank, s.Name, s.Score, protocol.FormatAccuracy(s.Accuracy))
		}
	}
}

func verdictLabel(correct bool) string {
	if correct {
		return protocol.VerdictCorrect
	}
	return protocol.VerdictIncorrect
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Session:
		o.printSession(v)
	case Summary:
		o.printSummary(v)
	case SummaryList:
		o.printSummaryList(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	Name         string   `json:"name"`
	Score        int      `json:"score"`
	CorrectCount int      `json:"correct_count"`
	Answers      []string `json:"answers"`
}

// Session response type
type Session struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	Round       int      `json:"round"`
	TotalRounds int      `json:"total_rounds"`
	LobbySize   int      `json:"lobby_size"`
	Players     []Player `json:"players"`
}

// Standing response type
type Standing struct {
	Rank         int     `json:"rank"`
	Name         string  `json:"name"`
	Score        int     `json:"score"`
	CorrectCount int     `json:"correct_count"`
	Accuracy     float64 `json:"accuracy"`
}

// Summary response type
type Summary struct {
	ID          string     `json:"id"`
	Rounds      int        `json:"rounds"`
	Standings   []Standing `json:"standings"`
	Winner      *string    `json:"winner"`
	CompletedAt string     `json:"completed_at"`
}

// SummaryList response type
type SummaryList struct {
	Sessions []Summary `json:"sessions"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// gameMessage is the JSON rendering of a protocol message
type gameMessage struct {
	Type      string       `json:"type"`
	Round     int          `json:"round,omitempty"`
	Text      string       `json:"text,omitempty"`
	Prompt    string       `json:"prompt,omitempty"`
	Options   []string     `json:"options,omitempty"`
	Correct   string       `json:"correct,omitempty"`
	Results   []resultJSON `json:"results,omitempty"`
	Standings []Standing   `json:"standings,omitempty"`
}

type resultJSON struct {
	Name    string `json:"name"`
	Answer  string `json:"answer"`
	Correct bool   `json:"correct"`
	Score   int    `json:"score"`
}

func gameMessageJSON(msg protocol.Message) gameMessage {
	gm := gameMessage{Type: strings.ToLower(string(msg.Kind()))}
	switch m := msg.(type) {
	case protocol.Welcome:
		gm.Text = m.Text
	case protocol.Question:
		gm.Round = m.Round
		gm.Prompt = m.Prompt
		gm.Options = m.Options[:]
	case protocol.Result:
		gm.Round = m.Round
		gm.Correct = m.Correct.String()
		for _, p := range m.Players {
			gm.Results = append(gm.Results, resultJSON{
				Name:    p.Name,
				Answer:  p.Letter.String(),
				Correct: p.Correct,
				Score:   p.Score,
			})
		}
	case protocol.Final:
		for _, s := range m.Standings {
			gm.Standings = append(gm.Standings, Standing{
				Rank:     s.Rank,
				Name:     s.Name,
				Score:    s.Score,
				Accuracy: s.Accuracy,
			})
		}
	}
	return gm
}

func (o *Output) printSession(s Session) {
	fmt.Fprintf(o.w, "Session: %s\n", s.ID)
	fmt.Fprintf(o.w, "State: %s\n", s.State)
	if s.Round > 0 {
		fmt.Fprintf(o.w, "Round: %d/%d\n", s.Round, s.TotalRounds)
	} else {
		fmt.Fprintf(o.w, "Rounds: %d\n", s.TotalRounds)
	}
	fmt.Fprintf(o.w, "Players (%d/%d):\n", len(s.Players), s.LobbySize)
	for _, p := range s.Players {
		fmt.Fprintf(o.w, "  - %s: %d points [%s]\n", p.Name, p.Score, strings.Join(p.Answers, " "))
	}
}

func (o *Output) printSummary(s Summary) {
	fmt.Fprintf(o.w, "Session: %s\n", s.ID)
	fmt.Fprintf(o.w, "Completed: %s\n", s.CompletedAt)
	if s.Winner != nil {
		fmt.Fprintf(o.w, "Winner: %s\n", *s.Winner)
	}
	for _, st := range s.Standings {
		fmt.Fprintf(o.w, "  %d. %s - %d points (%s%%)\n", st.Rank, st.Name, st.Score, protocol.FormatAccuracy(st.Accuracy))
	}
}

func (o *Output) printSummaryList(l SummaryList) {
	if len(l.Sessions) == 0 {
		fmt.Fprintln(o.w, "No finished sessions")
		return
	}
	for _, s := range l.Sessions {
		winner := "(tie)"
		if s.Winner != nil {
			winner = *s.Winner
		}
		fmt.Fprintf(o.w, "%s  %s  winner: %s\n", s.ID, s.CompletedAt, winner)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
