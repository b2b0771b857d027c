// Package api exposes HTTP handlers for the intensity log service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"example.com/intensity/internal/domain"
	"example.com/intensity/internal/persistence"
	"example.com/intensity/internal/record"
	"example.com/intensity/internal/stats"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  logrus.FieldLogger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", healthz).Methods(http.MethodGet)

	api.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/records", h.listRecords).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/records/view", h.viewRecords).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/statistics", h.statistics).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/statistics/compare/{friendID}", h.compare).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/friends", h.friends).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/leaderboard", h.leaderboard).Methods(http.MethodGet)

	api.HandleFunc("/records", h.createRecord).Methods(http.MethodPost)
	api.HandleFunc("/records/{id}", h.getRecord).Methods(http.MethodGet)
	api.HandleFunc("/records/{id}", h.updateRecord).Methods(http.MethodPut)
	api.HandleFunc("/records/{id}", h.deleteRecord).Methods(http.MethodDelete)

	api.HandleFunc("/statistics/global", h.globalStatistics).Methods(http.MethodGet)

	api.HandleFunc("/friends/request", h.requestFriend).Methods(http.MethodPost)
	api.HandleFunc("/friends/accept", h.acceptFriend).Methods(http.MethodPost)
	api.HandleFunc("/friends", h.removeFriend).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), domain.CreateUserInput{Username: req.Username, Email: req.Email})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "user created", user)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "user found", user)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), domain.CreateRecordInput{
		UserID:       req.UserID,
		Date:         req.Date,
		TimeOfDay:    req.TimeOfDay,
		Intensity:    *req.Intensity,
		ExerciseType: req.ExerciseType,
		Memo:         req.Memo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "record created", h.banded(*rec))
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRecord(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "record found", h.banded(*rec))
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.service.UpdateRecord(r.Context(), mux.Vars(r)["id"], domain.UpdateRecordInput{
		Date:         req.Date,
		TimeOfDay:    req.TimeOfDay,
		Intensity:    req.Intensity,
		ExerciseType: req.ExerciseType,
		Memo:         req.Memo,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "record updated", h.banded(*rec))
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRecord(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "record deleted", nil)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.RecordQuery{
		UserID:       mux.Vars(r)["id"],
		ExerciseType: q.Get("exercise_type"),
		Limit:        defaultPageSize,
	}

	var err error
	if query.StartDate, err = optionalDate(q.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if query.EndDate, err = optionalDate(q.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		query.Limit = min(parsed, maxPageSize)
	}
	if query.Cursor, err = persistence.DecodeCursor(q.Get("cursor")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListRecords(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	items := make([]domain.BandedRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, h.banded(rec))
	}
	writeSuccess(w, http.StatusOK, "records found", ListRecordsResponse{
		Records:    items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) viewRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.service.ViewRecords(r.Context(), mux.Vars(r)["id"], q.Get("search"), q.Get("category"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "records filtered", view)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Statistics(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "statistics computed", report)
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	comparison, err := h.service.Compare(r.Context(), vars["id"], vars["friendID"], r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "comparison computed", comparison)
}

func (h *Handler) globalStatistics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GlobalStatistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "global statistics computed", summary)
}

func (h *Handler) requestFriend(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.FriendUsername) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id and friend_username are required")
		return
	}

	friendship, err := h.service.RequestFriendship(r.Context(), req.UserID, req.FriendUsername)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "friend request sent", friendship)
}

func (h *Handler) acceptFriend(w http.ResponseWriter, r *http.Request) {
	var req AcceptFriendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FriendshipID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "friendship_id is required")
		return
	}

	friendship, err := h.service.AcceptFriendship(r.Context(), req.FriendshipID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "friend request accepted", friendship)
}

func (h *Handler) removeFriend(w http.ResponseWriter, r *http.Request) {
	var req RemoveFriendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.FriendID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "user_id and friend_id are required")
		return
	}

	if err := h.service.RemoveFriendship(r.Context(), req.UserID, req.FriendID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "friendship removed", nil)
}

func (h *Handler) friends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.service.Friends(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "friends found", FriendsResponse{Friends: friends, TotalCount: len(friends)})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.service.Leaderboard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "leaderboard computed", LeaderboardResponse{Leaderboard: standings, TotalParticipants: len(standings)})
}

func (h *Handler) banded(rec record.Record) domain.BandedRecord {
	return domain.BandedRecord{Record: rec, Band: h.service.Thresholds().Classify(rec.Intensity)}
}

// fail maps domain errors onto HTTP statuses; anything unrecognised is logged and reported as 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, record.ErrInvalidRecord),
		errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, stats.ErrInvalidPeriod),
		errors.Is(err, domain.ErrSelfFriendship),
		errors.Is(err, domain.ErrNotPending):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrFriendshipNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrFriendshipExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body: "+err.Error())
		return false
	}
	return true
}

func optionalDate(value string) (record.Date, error) {
	if strings.TrimSpace(value) == "" {
		return record.Date{}, nil
	}
	return record.ParseDate(value)
}

// Envelope is the response body of every endpoint except health.
type Envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, Envelope{Status: "error", Message: detail, ErrorCode: code})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
