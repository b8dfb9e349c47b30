package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcoot/trivia-go/internal/model"
)

// Delimiter separates fields on a line. It is not escaped inside free text,
// so names or prompts containing it cannot round-trip.
const Delimiter = "|"

// ErrMalformedMessage is returned for any line that cannot be decoded.
// Callers drop the line and carry on.
var ErrMalformedMessage = errors.New("malformed message")

const (
	questionFields = 3 + model.OptionCount // tag, round, prompt, options
	answerFields   = 3                     // tag, round, letter
	resultHeader   = 3                     // tag, round, correct letter
	groupSize      = 4                     // per-player group in RESULT and FINAL
)

// Encode renders a message as a single line without the trailing newline.
// Encoding never fails.
func Encode(msg Message) string {
	var b strings.Builder
	b.WriteString(string(msg.Kind()))

	field := func(s string) {
		b.WriteString(Delimiter)
		b.WriteString(s)
	}

	switch m := msg.(type) {
	case Welcome:
		field(m.Text)
	case Question:
		field(strconv.Itoa(m.Round))
		field(m.Prompt)
		for _, opt := range m.Options {
			field(opt)
		}
	case Answer:
		field(strconv.Itoa(m.Round))
		field(m.Letter.String())
	case Result:
		field(strconv.Itoa(m.Round))
		field(m.Correct.String())
		for _, p := range m.Players {
			field(p.Name)
			field(p.Letter.String())
			field(verdict(p.Correct))
			field(strconv.Itoa(p.Score))
		}
	case Final:
		for _, s := range m.Standings {
			field(strconv.Itoa(s.Rank))
			field(s.Name)
			field(strconv.Itoa(s.Score))
			field(FormatAccuracy(s.Accuracy))
		}
	}

	return b.String()
}

// Frame encodes a message and appends the line terminator
func Frame(msg Message) []byte {
	return []byte(Encode(msg) + "\n")
}

// EncodeJoin renders the join line for a display name
func EncodeJoin(name string) string {
	return name
}

// FormatAccuracy renders an accuracy percentage with one decimal
func FormatAccuracy(acc float64) string {
	return strconv.FormatFloat(acc, 'f', 1, 64)
}

func verdict(correct bool) string {
	if correct {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// DecodeJoin reads the untagged join line. The whole line is the name.
func DecodeJoin(line string) (Join, error) {
	name := strings.TrimSpace(trimLine(line))
	if name == "" {
		return Join{}, fmt.Errorf("%w: empty name", ErrMalformedMessage)
	}
	return Join{Name: name}, nil
}

// Decode classifies a line by its first field and parses it.
// Any error wraps ErrMalformedMessage.
func Decode(line string) (Message, error) {
	line = trimLine(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedMessage)
	}

	fields := strings.Split(line, Delimiter)

	switch Kind(fields[0]) {
	case KindWelcome:
		return decodeWelcome(fields)
	case KindQuestion:
		return decodeQuestion(fields)
	case KindAnswer:
		return decodeAnswer(fields)
	case KindResult:
		return decodeResult(fields)
	case KindFinal:
		return decodeFinal(fields)
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrMalformedMessage, fields[0])
	}
}

func trimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}

func fieldCountError(kind Kind, got int) error {
	return fmt.Errorf("%w: %s has %d fields", ErrMalformedMessage, kind, got)
}

func decodeWelcome(fields []string) (Message, error) {
	if len(fields) != 2 {
		return nil, fieldCountError(KindWelcome, len(fields))
	}
	return Welcome{Text: fields[1]}, nil
}

func decodeQuestion(fields []string) (Message, error) {
	if len(fields) != questionFields {
		return nil, fieldCountError(KindQuestion, len(fields))
	}
	round, err := parseRound(fields[1])
	if err != nil {
		return nil, err
	}
	q := Question{Round: round, Prompt: fields[2]}
	copy(q.Options[:], fields[3:])
	return q, nil
}

func decodeAnswer(fields []string) (Message, error) {
	if len(fields) != answerFields {
		return nil, fieldCountError(KindAnswer, len(fields))
	}
	round, err := parseRound(fields[1])
	if err != nil {
		return nil, err
	}
	letter, err := model.ParseLetter(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: answer letter %q", ErrMalformedMessage, fields[2])
	}
	return Answer{Round: round, Letter: letter}, nil
}

func decodeResult(fields []string) (Message, error) {
	if len(fields) < resultHeader || (len(fields)-resultHeader)%groupSize != 0 {
		return nil, fieldCountError(KindResult, len(fields))
	}
	round, err := parseRound(fields[1])
	if err != nil {
		return nil, err
	}
	correct, err := model.ParseLetter(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: correct letter %q", ErrMalformedMessage, fields[2])
	}

	res := Result{Round: round, Correct: correct}
	for i := resultHeader; i < len(fields); i += groupSize {
		letter, err := parseSlot(fields[i+1])
		if err != nil {
			return nil, err
		}
		var isCorrect bool
		switch fields[i+2] {
		case VerdictCorrect:
			isCorrect = true
		case VerdictIncorrect:
		default:
			return nil, fmt.Errorf("%w: verdict %q", ErrMalformedMessage, fields[i+2])
		}
		score, err := parseInt(fields[i+3])
		if err != nil {
			return nil, err
		}
		res.Players = append(res.Players, ResultEntry{
			Name:    fields[i],
			Letter:  letter,
			Correct: isCorrect,
			Score:   score,
		})
	}
	return res, nil
}

func decodeFinal(fields []string) (Message, error) {
	if (len(fields)-1)%groupSize != 0 {
		return nil, fieldCountError(KindFinal, len(fields))
	}

	var final Final
	for i := 1; i < len(fields); i += groupSize {
		rank, err := parseInt(fields[i])
		if err != nil {
			return nil, err
		}
		score, err := parseInt(fields[i+2])
		if err != nil {
			return nil, err
		}
		acc, err := strconv.ParseFloat(fields[i+3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: accuracy %q", ErrMalformedMessage, fields[i+3])
		}
		final.Standings = append(final.Standings, FinalEntry{
			Rank:     rank,
			Name:     fields[i+1],
			Score:    score,
			Accuracy: acc,
		})
	}
	return final, nil
}

// parseRound parses a 1-based round number
func parseRound(s string) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: round %d", ErrMalformedMessage, n)
	}
	return n, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: number %q", ErrMalformedMessage, s)
	}
	return n, nil
}

// parseSlot parses a RESULT answer slot, where "?" means unanswered
func parseSlot(s string) (model.Letter, error) {
	if s == model.Unanswered.String() {
		return model.Unanswered, nil
	}
	l, err := model.ParseLetter(s)
	if err != nil {
		return model.Unanswered, fmt.Errorf("%w: answer slot %q", ErrMalformedMessage, s)
	}
	return l, nil
}
