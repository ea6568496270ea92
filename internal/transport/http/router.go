package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"challenge-arena/internal/app"
	"challenge-arena/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// Handler serves the room API and the game websocket.
type Handler struct {
	service    *app.ChallengeService
	identities *IdentityResolver
	baseURL    string
	verbose    bool
	upgrader   websocket.Upgrader
}

// Options tune a Handler.
type Options struct {
	// BaseURL is the public origin used in share links; the request host is
	// used when empty.
	BaseURL string
	Verbose bool
}

func NewHandler(service *app.ChallengeService, identities *IdentityResolver, opts Options) *Handler {
	return &Handler{
		service:    service,
		identities: identities,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		verbose:    opts.Verbose,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers every endpoint on a new router.
func (h *Handler) Routes() *httprouter.Router {
	mux := httprouter.New()
	mux.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.POST("/rooms", h.createRoom)
	mux.POST("/rooms/join", h.joinRoom)
	mux.GET("/rooms/:id", h.getRoom)
	mux.POST("/rooms/:id/leave", h.leaveRoom)
	mux.GET("/rooms/:id/qr", h.roomQR)
	mux.GET("/ws/:room/:player", h.ServeWS)
	return mux
}

func (h *Handler) logf(format string, args ...any) {
	if h.verbose {
		log.Printf(format, args...)
	}
}

type createRoomRequest struct {
	ChallengeType string         `json:"challenge_type"`
	Topic         string         `json:"topic"`
	MaxPlayers    int            `json:"max_players"`
	Settings      map[string]any `json:"settings"`
}

type createRoomResponse struct {
	RoomID    string              `json:"room_id"`
	ShareCode string              `json:"share_code"`
	Message   string              `json:"message"`
	Room      domain.RoomSnapshot `json:"room"`
}

type joinRoomRequest struct {
	RoomID    string `json:"room_id"`
	ShareCode string `json:"share_code"`
}

type roomResponse struct {
	Message string              `json:"message,omitempty"`
	Room    domain.RoomSnapshot `json:"room"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	who, err := h.identities.Resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	ct, err := domain.ParseChallengeType(req.ChallengeType)
	if err != nil {
		writeError(w, err)
		return
	}

	room, err := h.service.CreateSession(r.Context(), app.CreateRequest{
		Host:          who,
		ChallengeType: ct,
		Topic:         req.Topic,
		MaxPlayers:    req.MaxPlayers,
		Settings:      req.Settings,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomID:    room.ID,
		ShareCode: strings.ToUpper(room.ID),
		Message:   "Room created! Share the code with friends.",
		Room:      room,
	})
}

func (h *Handler) joinRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	who, err := h.identities.Resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	roomID := firstNonEmpty(req.RoomID, req.ShareCode)
	if roomID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "room_id is required"})
		return
	}

	room, err := h.service.JoinSession(r.Context(), roomID, who)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Message: "Joined room", Room: room})
}

func (h *Handler) getRoom(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	room, err := h.service.Snapshot(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomResponse{Room: room})
}

func (h *Handler) leaveRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	who, err := h.identities.Resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.LeaveSession(r.Context(), ps.ByName("id"), who.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// roomQR renders the join link for a room as a PNG.
func (h *Handler) roomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.Snapshot(ps.ByName("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	png, err := qrcode.Encode(h.joinURL(r, room.ID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handler) joinURL(r *http.Request, roomID string) string {
	base := h.baseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + strings.ToUpper(roomID)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errMissingIdentity), errors.Is(err, errInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBankNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrSessionInProgress), errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrSessionCompleted), errors.Is(err, domain.ErrSessionExists),
		errors.Is(err, domain.ErrAlreadyInRoom):
		return http.StatusConflict
	case errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownChallengeType):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
