package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/trivia-go/internal/model"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		expected string
	}{
		{
			name:     "welcome",
			msg:      Welcome{Text: "Game starting!"},
			expected: "WELCOME|Game starting!",
		},
		{
			name: "question",
			msg: Question{
				Round:   1,
				Prompt:  "Sino ang pambansang bayani ng Pilipinas?",
				Options: [4]string{"A) Andres Bonifacio", "B) Jose Rizal", "C) Lapu-Lapu", "D) Emilio Aguinaldo"},
			},
			expected: "QUESTION|1|Sino ang pambansang bayani ng Pilipinas?|A) Andres Bonifacio|B) Jose Rizal|C) Lapu-Lapu|D) Emilio Aguinaldo",
		},
		{
			name:     "answer",
			msg:      Answer{Round: 3, Letter: model.LetterC},
			expected: "ANSWER|3|C",
		},
		{
			name: "result",
			msg: Result{
				Round:   2,
				Correct: model.LetterB,
				Players: []ResultEntry{
					{Name: "ana", Letter: model.LetterB, Correct: true, Score: 20},
					{Name: "ben", Letter: model.LetterC, Correct: false, Score: 0},
				},
			},
			expected: "RESULT|2|B|ana|B|TAMA|20|ben|C|MALI|0",
		},
		{
			name: "result with unanswered slot",
			msg: Result{
				Round:   1,
				Correct: model.LetterA,
				Players: []ResultEntry{{Name: "ana", Letter: model.Unanswered, Score: 0}},
			},
			expected: "RESULT|1|A|ana|?|MALI|0",
		},
		{
			name: "final",
			msg: Final{Standings: []FinalEntry{
				{Rank: 1, Name: "ana", Score: 30, Accuracy: 60},
				{Rank: 2, Name: "ben", Score: 10, Accuracy: 20},
			}},
			expected: "FINAL|1|ana|30|60.0|2|ben|10|20.0",
		},
		{
			name:     "final with no players",
			msg:      Final{},
			expected: "FINAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.msg))
		})
	}
}

func TestFrameAppendsNewline(t *testing.T) {
	assert.Equal(t, []byte("WELCOME|hi\n"), Frame(Welcome{Text: "hi"}))
}

func TestDecodeValidLines(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Message
	}{
		{
			name:     "welcome",
			line:     "WELCOME|Game starting!",
			expected: Welcome{Text: "Game starting!"},
		},
		{
			name: "question",
			line: "QUESTION|5|Prompt?|A) a|B) b|C) c|D) d",
			expected: Question{
				Round:   5,
				Prompt:  "Prompt?",
				Options: [4]string{"A) a", "B) b", "C) c", "D) d"},
			},
		},
		{
			name:     "answer",
			line:     "ANSWER|1|D",
			expected: Answer{Round: 1, Letter: model.LetterD},
		},
		{
			name:     "answer with crlf",
			line:     "ANSWER|2|A\r\n",
			expected: Answer{Round: 2, Letter: model.LetterA},
		},
		{
			name: "result",
			line: "RESULT|1|B|ana|B|TAMA|10|ben|?|MALI|0",
			expected: Result{
				Round:   1,
				Correct: model.LetterB,
				Players: []ResultEntry{
					{Name: "ana", Letter: model.LetterB, Correct: true, Score: 10},
					{Name: "ben", Letter: model.Unanswered, Correct: false, Score: 0},
				},
			},
		},
		{
			name:     "result with no players",
			line:     "RESULT|1|B",
			expected: Result{Round: 1, Correct: model.LetterB},
		},
		{
			name: "final",
			line: "FINAL|1|ana|30|60.0",
			expected: Final{Standings: []FinalEntry{
				{Rank: 1, Name: "ana", Score: 30, Accuracy: 60},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, msg)
		})
	}
}

func TestDecodeMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "empty line", line: ""},
		{name: "unknown tag", line: "HELLO|there"},
		{name: "lowercase tag", line: "answer|1|A"},
		{name: "answer non-numeric round", line: "ANSWER|abc|B"},
		{name: "answer zero round", line: "ANSWER|0|B"},
		{name: "answer negative round", line: "ANSWER|-2|B"},
		{name: "answer lowercase letter", line: "ANSWER|1|b"},
		{name: "answer letter out of range", line: "ANSWER|1|E"},
		{name: "answer two letters", line: "ANSWER|1|AB"},
		{name: "answer empty letter", line: "ANSWER|1|"},
		{name: "answer too few fields", line: "ANSWER|1"},
		{name: "answer too many fields", line: "ANSWER|1|A|B"},
		{name: "welcome missing text", line: "WELCOME"},
		{name: "question missing option", line: "QUESTION|1|Prompt|A|B|C"},
		{name: "question bad round", line: "QUESTION|x|Prompt|A|B|C|D"},
		{name: "result partial group", line: "RESULT|1|B|ana|B|TAMA"},
		{name: "result bad verdict", line: "RESULT|1|B|ana|B|YES|10"},
		{name: "result bad score", line: "RESULT|1|B|ana|B|TAMA|ten"},
		{name: "final partial group", line: "FINAL|1|ana|30"},
		{name: "final bad accuracy", line: "FINAL|1|ana|30|high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.line)
			assert.ErrorIs(t, err, ErrMalformedMessage)
			assert.Nil(t, msg)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	messages := []Message{
		Welcome{Text: "hello"},
		Answer{Round: 4, Letter: model.LetterA},
		Result{Round: 2, Correct: model.LetterC, Players: []ResultEntry{
			{Name: "ana", Letter: model.LetterC, Correct: true, Score: 20},
		}},
		Final{Standings: []FinalEntry{{Rank: 1, Name: "ana", Score: 20, Accuracy: 66.7}}},
	}

	for _, msg := range messages {
		t.Run(string(msg.Kind()), func(t *testing.T) {
			decoded, err := Decode(Encode(msg))
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestDecodeJoin(t *testing.T) {
	join, err := DecodeJoin("  Maria \r\n")
	require.NoError(t, err)
	assert.Equal(t, "Maria", join.Name)

	_, err = DecodeJoin("   \n")
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

// The delimiter is not escaped. A name containing it shifts every following
// field, so the resulting line no longer decodes.
func TestDelimiterInNameIsNotEscaped(t *testing.T) {
	line := Encode(Result{
		Round:   1,
		Correct: model.LetterA,
		Players: []ResultEntry{{Name: "ana|maria", Letter: model.LetterA, Correct: true, Score: 10}},
	})
	assert.Equal(t, "RESULT|1|A|ana|maria|A|TAMA|10", line)

	_, err := Decode(line)
	assert.ErrorIs(t, err, ErrMalformedMessage)
}

func TestFormatAccuracy(t *testing.T) {
	assert.Equal(t, "60.0", FormatAccuracy(60))
	assert.Equal(t, "33.3", FormatAccuracy(33.3))
	assert.Equal(t, "100.0", FormatAccuracy(100))
	assert.Equal(t, "0.0", FormatAccuracy(0))
}
