package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/bingo-rooms/internal/auth"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/service"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

// GameArchive reads finished games.
type GameArchive interface {
	GamesByRoom(ctx context.Context, roomName string, limit int) ([]*models.Game, error)
	GetGameByID(ctx context.Context, gameID int64) (*models.Game, error)
}

// EventHistory reads the room audit log.
type EventHistory interface {
	EventsByRoom(ctx context.Context, roomName string, limit int64) ([]models.RoomEvent, error)
}

// LeaveNotifier tells connected players that someone left their room.
type LeaveNotifier interface {
	NotifyLeave(res *service.LeaveResult, socketId string)
}

// Handler serves the game service HTTP API. Archive, Events and Notifier are
// optional.
type Handler struct {
	GameService *service.GameService
	Auth        *auth.Auth
	Archive     GameArchive
	Events      EventHistory
	Notifier    LeaveNotifier
	HistorySize int
}

func NewHandler(gameService *service.GameService, a *auth.Auth) *Handler {
	return &Handler{
		GameService: gameService,
		Auth:        a,
		HistorySize: 20,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Errorf("Error [handlers] %s", err)
		msg = "internal error"
	}
	h.CreateResponse(w, Response{Message: "request failed", Code: code, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, errGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownUser):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotInRoom):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRoomExists), errors.Is(err, service.ErrAlreadyInRoom):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadRequest   = errors.New("malformed request body")
	errUnavailable  = errors.New("history is not enabled")
	errGameNotFound = errors.New("game not found")
)

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running",
		Code:    http.StatusOK,
		Data: map[string]int{
			"rooms":    len(h.GameService.Rooms()),
			"sessions": h.GameService.SessionCount(),
		},
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, errBadRequest)
		return
	}

	user, err := h.GameService.Login(req.Name)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	user.Token, err = h.Auth.IssueToken(user.Name, user.UserId)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	log.Infof("token issued for %s", user.Name)

	h.CreateResponse(w, Response{Message: "logged in", Code: http.StatusOK, Data: user})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	username, err := auth.UsernameFromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	res, err := h.GameService.Logout(r.Context(), username)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if h.Notifier != nil {
		h.Notifier.NotifyLeave(res, "")
	}

	h.CreateResponse(w, Response{Message: "logged out", Code: http.StatusOK})
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{Message: "rooms", Code: http.StatusOK, Data: h.GameService.Rooms()})
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	username, err := auth.UsernameFromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	var req struct {
		Room       string `json:"room"`
		MaxPlayers int    `json:"max_players"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, errBadRequest)
		return
	}

	info, err := h.GameService.CreateRoom(r.Context(), req.Room, username, req.MaxPlayers)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Message: "room created", Code: http.StatusCreated, Data: info})
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	info, err := h.GameService.RoomInfo(chi.URLParam(r, "name"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "room", Code: http.StatusOK, Data: info})
}

// MyCards returns the caller's cards in the room.
func (h *Handler) MyCards(w http.ResponseWriter, r *http.Request) {
	username, err := auth.UsernameFromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	cards, err := h.GameService.Cards(chi.URLParam(r, "name"), username)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "cards", Code: http.StatusOK, Data: cards})
}

func (h *Handler) RoomHistory(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusServiceUnavailable, Error: errUnavailable.Error()})
		return
	}

	games, err := h.Archive.GamesByRoom(r.Context(), chi.URLParam(r, "name"), h.limit(r))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "games", Code: http.StatusOK, Data: games})
}

func (h *Handler) RoomEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusServiceUnavailable, Error: errUnavailable.Error()})
		return
	}

	events, err := h.Events.EventsByRoom(r.Context(), chi.URLParam(r, "name"), int64(h.limit(r)))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "events", Code: http.StatusOK, Data: events})
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	if h.Archive == nil {
		h.CreateResponse(w, Response{Message: "request failed", Code: http.StatusServiceUnavailable, Error: errUnavailable.Error()})
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, errBadRequest)
		return
	}

	game, err := h.Archive.GetGameByID(r.Context(), id)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	if game == nil {
		h.errorResponse(w, errGameNotFound)
		return
	}
	h.CreateResponse(w, Response{Message: "game", Code: http.StatusOK, Data: game})
}

// limit reads ?limit=, bounded by HistorySize.
func (h *Handler) limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > h.HistorySize {
		return h.HistorySize
	}
	return n
}
