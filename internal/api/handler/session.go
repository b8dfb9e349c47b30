package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/trivia-go/internal/api/request"
	"github.com/mcoot/trivia-go/internal/api/response"
	"github.com/mcoot/trivia-go/internal/model"
	"github.com/mcoot/trivia-go/internal/services/session"
	"github.com/mcoot/trivia-go/internal/storage"
)

// StatusProvider exposes the live session
type StatusProvider interface {
	Status() session.Status
}

// SessionHandler handles session status and archive endpoints
type SessionHandler struct {
	live    StatusProvider
	storage storage.Storage
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(live StatusProvider, storage storage.Storage) *SessionHandler {
	return &SessionHandler{
		live:    live,
		storage: storage,
	}
}

// Current handles GET /api/v1/session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.SessionFromStatus(h.live.Status()))
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := request.ParseListSessionsQuery(r)
	if err != nil {
		WriteError(w, NewInvalidRequestError(err.Error()))
		return
	}

	summaries, err := h.storage.ListSummaries(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	if len(summaries) > query.Limit {
		summaries = summaries[:query.Limit]
	}

	list := response.SummaryList{Sessions: make([]response.Summary, len(summaries))}
	for i, s := range summaries {
		list.Sessions[i] = response.SummaryFromModel(s)
	}
	response.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.SessionID(mux.Vars(r)["id"])

	summary, err := h.storage.GetSummary(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.SummaryFromModel(summary))
}
