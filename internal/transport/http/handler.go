package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// Handler exposes the score service over REST.
type Handler struct {
	profiles    *app.ProfileService
	submissions *app.SubmissionService
	stats       *app.StatsService
	store       app.Pinger
}

func NewHandler(profiles *app.ProfileService, submissions *app.SubmissionService, stats *app.StatsService, store app.Pinger) *Handler {
	return &Handler{profiles: profiles, submissions: submissions, stats: stats, store: store}
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users", h.createUser)
	mux.HandleFunc("GET /api/users/{address}", h.getUser)
	mux.HandleFunc("PUT /api/users/{address}", h.updateUser)
	mux.HandleFunc("GET /api/users/{address}/scores", h.listScores)
	mux.HandleFunc("GET /api/users/{address}/stats", h.userStats)
	mux.HandleFunc("POST /api/scores", h.submitScore)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", h.ready)
}

type createUserRequest struct {
	WalletAddress string `json:"walletAddress"`
	DisplayName   string `json:"displayName"`
	ProfileImage  string `json:"profileImage"`
}

type updateUserRequest struct {
	DisplayName  *string `json:"displayName"`
	ProfileImage *string `json:"profileImage"`
}

type submitScoreRequest struct {
	WalletAddress string `json:"walletAddress"`
	QuizID        string `json:"quizId"`
	Score         *int   `json:"score"`
	MaxScore      int    `json:"maxScore"`
	Difficulty    string `json:"difficulty"`
}

type historyResponse struct {
	Scores     []domain.ScoreEntry `json:"scores"`
	TotalCount int                 `json:"totalCount"`
	HasMore    bool                `json:"hasMore"`
}

type leaderboardResponse struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	p, err := h.profiles.Create(r.Context(), req.WalletAddress, req.DisplayName, req.ProfileImage)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), r.PathValue("address"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	p, err := h.profiles.Update(r.Context(), r.PathValue("address"), req.DisplayName, req.ProfileImage)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) submitScore(w http.ResponseWriter, r *http.Request) {
	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "score is required", "")
		return
	}
	result, err := h.submissions.Submit(r.Context(), req.WalletAddress, req.QuizID, *req.Score, req.MaxScore, req.Difficulty)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) listScores(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		// History clamps too; clamp here as well so hasMore is computed
		// against the offset actually applied.
		offset = 0
	}
	entries, total, err := h.stats.History(r.Context(), r.PathValue("address"), limit, offset)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Scores:     entries,
		TotalCount: total,
		HasMore:    total > offset+len(entries),
	})
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.UserStats(r.Context(), r.PathValue("address"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stats.Leaderboard(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable", "store_unavailable")
		return
	}
	w.Write([]byte("ready"))
}

// writeDomainError maps the error taxonomy onto HTTP statuses: validation
// to 400, not-found to 404, conflicts to 409, partial failures to a
// distinctly coded 500, store outage to 503.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var partial *domain.PartialFailureError
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), "validation")
	case errors.Is(err, domain.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case domain.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), "conflict")
	case errors.As(err, &partial):
		// The score entry was recorded; the caller should alert, not retry.
		writeError(w, http.StatusInternalServerError, err.Error(), "partial_failure")
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "store_unavailable")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorPayload{Error: message, Code: code})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
