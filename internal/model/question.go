package model

// OptionCount is the number of options every question carries
const OptionCount = 4

// Question is one immutable quiz item
type Question struct {
	Prompt  string
	Options [OptionCount]string // labelled text, e.g. "A) Jose Rizal"
	Correct Letter
}
