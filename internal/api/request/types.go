package request

import (
	"errors"
	"net/http"
	"strconv"
)

// DefaultListLimit caps list responses when no limit is given
const DefaultListLimit = 50

// MaxListLimit is the largest accepted limit
const MaxListLimit = 500

// ErrInvalidLimit is returned for a limit that is not a positive integer
var ErrInvalidLimit = errors.New("limit must be a positive integer")

// ListSessionsQuery holds the query parameters for GET /sessions
type ListSessionsQuery struct {
	Limit int
}

// ParseListSessionsQuery reads and validates ?limit=
func ParseListSessionsQuery(r *http.Request) (ListSessionsQuery, error) {
	q := ListSessionsQuery{Limit: DefaultListLimit}

	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return q, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return q, ErrInvalidLimit
	}
	q.Limit = min(limit, MaxListLimit)
	return q, nil
}
