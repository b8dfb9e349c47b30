package redis

import (
	"fmt"

	"github.com/mcoot/trivia-go/internal/model"
)

// Key prefix for all trivia data
const keyPrefix = "trivia"

// questionsKey returns the Redis key for the question bank
func questionsKey() string {
	return fmt.Sprintf("%s:questions", keyPrefix)
}

// summaryKey returns the Redis key for a SessionSummary
func summaryKey(id model.SessionID) string {
	return fmt.Sprintf("%s:summary:%s", keyPrefix, id)
}

// summaryIndexKey returns the Redis key for the sorted set of summaries by completion time
func summaryIndexKey() string {
	return fmt.Sprintf("%s:idx:summaries", keyPrefix)
}
