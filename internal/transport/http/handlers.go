package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"partyvote/internal/commands"
	"partyvote/internal/domain"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 << 10

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CastVoteRequest is the body of POST /api/votes
type CastVoteRequest struct {
	VoterID   string `json:"voterId"`
	VoterName string `json:"voterName"`
	Target    string `json:"target"`
	Category  string `json:"category"`
	Channel   string `json:"channel,omitempty"` // defaults to the main channel
}

// ApplyMoveRequest is the body of POST /api/moves
type ApplyMoveRequest struct {
	PlayerID string `json:"playerId"`
	Row      *int   `json:"row"`
	Col      *int   `json:"col"`
	Channel  string `json:"channel,omitempty"` // defaults to the main channel
}

// CommandRequest is the body of POST /api/commands
type CommandRequest struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Channel    string `json:"channel"`
	Text       string `json:"text"`
}

// TallyResponse lists the live tally of one category
type TallyResponse struct {
	Category domain.Category     `json:"category"`
	Entries  []domain.TallyEntry `json:"entries"`
}

// BoardResponse is the board and the mark that moves next
type BoardResponse struct {
	Cells domain.Board `json:"cells"`
	Turn  domain.Mark  `json:"turn"`
	Text  string       `json:"text"`
}

// WinsResponse is the scoreboard
type WinsResponse struct {
	Wins []domain.WinCount `json:"wins"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ConnectedClients int `json:"connectedClients"`
	KillVotes        int `json:"killVotes"`
	PrayerVotes      int `json:"prayerVotes"`
	TotalWins        int `json:"totalWins"`
}

// handleCastVote handles POST /api/votes
func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CastVoteRequest
	if !s.decode(w, r, &req) {
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}
	if !s.inMainChannel(req.Channel) {
		s.sendDomainError(w, domain.ErrWrongChannel)
		return
	}
	if category == domain.CategoryKill && !commands.IsMention(req.Target) {
		s.sendDomainError(w, domain.ErrInvalidTarget)
		return
	}

	if err := s.ledger.CastVote(r.Context(), req.VoterID, req.VoterName, req.Target, category); err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &TallyResponse{
		Category: category,
		Entries:  s.ledger.Tally(category),
	})
}

// handleTally handles GET /api/tally/:category
func (s *Server) handleTally(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	category, err := domain.ParseCategory(ps.ByName("category"))
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &TallyResponse{
		Category: category,
		Entries:  s.ledger.Tally(category),
	})
}

// handleApplyMove handles POST /api/moves
func (s *Server) handleApplyMove(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req ApplyMoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Row == nil || req.Col == nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "row and col are required")
		return
	}
	if !s.inMainChannel(req.Channel) {
		s.sendDomainError(w, domain.ErrWrongChannel)
		return
	}

	result, err := s.engine.ApplyMove(r.Context(), req.PlayerID, *req.Row, *req.Col)
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	s.sendSuccess(w, &result)
}

// inMainChannel reports whether a request may change state. An empty
// channel means the main one.
func (s *Server) inMainChannel(channel string) bool {
	return channel == "" || channel == s.dispatcher.MainChannel()
}

// handleBoard handles GET /api/board
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendBoard(w)
}

// handleResetBoard handles POST /api/board/reset
func (s *Server) handleResetBoard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.engine.ResetBoard(r.Context()); err != nil {
		s.sendDomainError(w, err)
		return
	}
	s.sendBoard(w)
}

// handleWins handles GET /api/wins
func (s *Server) handleWins(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &WinsResponse{Wins: s.engine.WinCounts()})
}

// handleCommand handles POST /api/commands
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req CommandRequest
	if !s.decode(w, r, &req) {
		return
	}

	reply, err := s.dispatcher.Dispatch(r.Context(), commands.Request{
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
		Channel:    req.Channel,
		Text:       req.Text,
	})
	if err != nil {
		s.sendDomainError(w, err)
		return
	}

	if reply.InChannel {
		s.hub.Publish(domain.NewEvent(domain.EventAnnouncement, &domain.AnnouncementPayload{Text: reply.Text}))
	}
	s.sendSuccess(w, &reply)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	totalWins := 0
	for _, wc := range s.engine.WinCounts() {
		totalWins += wc.Wins
	}

	s.sendSuccess(w, &StatsResponse{
		ConnectedClients: s.hub.ClientCount(),
		KillVotes:        s.ledger.VoteCount(domain.CategoryKill),
		PrayerVotes:      s.ledger.VoteCount(domain.CategoryPrayer),
		TotalWins:        totalWins,
	})
}

func (s *Server) sendBoard(w http.ResponseWriter) {
	board, turn := s.engine.Board()
	s.sendSuccess(w, &BoardResponse{
		Cells: board,
		Turn:  turn,
		Text:  board.String(),
	})
}

// decode reads a JSON body into v, answering 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return false
	}
	return true
}

// statusFor maps a domain error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCellOccupied):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWrongChannel):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInvalidCoordinate),
		errors.Is(err, domain.ErrInvalidCommand),
		errors.Is(err, domain.ErrInvalidTarget),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidPlayer):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) sendDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		s.logger.Error("request failed", "error", err)
	}
	s.sendError(w, status, commands.ErrorCode(err), commands.UserMessage(err))
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
