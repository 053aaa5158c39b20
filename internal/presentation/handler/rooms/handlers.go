package rooms

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/codeclash/internal/domain"
	"github.com/hilthontt/codeclash/internal/infrastructure/identity"
	"github.com/hilthontt/codeclash/internal/infrastructure/json"
	"github.com/hilthontt/codeclash/internal/infrastructure/logging"
	"github.com/hilthontt/codeclash/internal/infrastructure/ws"
)

type roomReader interface {
	Snapshot(roomID string) (domain.RoomSnapshot, error)
}

type Handler struct {
	rooms          roomReader
	core           *ws.Core
	dispatcher     ws.Dispatcher
	verifier       *identity.Verifier
	logger         logging.Logger
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewHandler(
	rooms roomReader,
	core *ws.Core,
	dispatcher ws.Dispatcher,
	verifier *identity.Verifier,
	logger logging.Logger,
	allowedOrigins []string,
) *Handler {
	h := &Handler{
		rooms:          rooms,
		core:           core,
		dispatcher:     dispatcher,
		verifier:       verifier,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.allowedOrigins, origin)
}

// GetRoomHandler godoc
// @Summary      Get a room snapshot
// @Description  Returns the current slots, status and match times of a room
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomResponse "Room snapshot"
// @Failure      404 {object} json.ErrorResponse "Room not found"
// @Router       /rooms/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if err := domain.ValidateRoomID(roomID); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	snapshot, err := h.rooms.Snapshot(roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteNotFoundError(w, "Room not found")
			return
		}
		json.WriteInternalError(w, h.logger, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, snapshot)
}

// ServeWS godoc
// @Summary      Open the match websocket
// @Description  Upgrades to a websocket carrying room, match and editor events. When authentication is configured a bearer token or token query parameter is required.
// @Tags         rooms
// @Param        token query string false "Identity token"
// @Success      101 "Switching Protocols"
// @Failure      401 {object} json.ErrorResponse "Missing or invalid token"
// @Failure      503 {object} json.ErrorResponse "Server is shutting down"
// @Router       /rooms/ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var who string
	if h.verifier.Enabled() {
		tok, err := identity.TokenFromRequest(r)
		if err != nil {
			json.WriteUnauthorizedError(w, "Missing or invalid authentication")
			return
		}
		if who, err = h.verifier.Verify(tok); err != nil {
			json.WriteUnauthorizedError(w, "Missing or invalid authentication")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Warn(logging.Websocket, logging.Connect, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	client := ws.NewClient(conn, uuid.NewString(), who, h.core.QueueSize())
	if !h.core.Attach(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	h.logger.Info(logging.Websocket, logging.Connect, "client connected", map[logging.ExtraKey]any{
		logging.ConnID:   client.ID,
		logging.Identity: who,
	})

	// The request context ends when this handler returns; the socket outlives it.
	ctx := context.WithoutCancel(r.Context())

	go client.WriteMessage(h.core)
	go client.ReadMessage(ctx, h.core, h.dispatcher)
}
