package report

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/alertavecinal/alerta-api/internal/middleware"
	"github.com/alertavecinal/alerta-api/internal/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin is already enforced by the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler streams filtered report snapshots over a websocket. Each
// frame is the full current result set for the connection's filter; the
// first frame arrives right after the upgrade.
type LiveHandler struct {
	service *Service
}

// NewLiveHandler creates the live feed handler
func NewLiveHandler(service *Service) *LiveHandler {
	return &LiveHandler{service: service}
}

// Serve handles GET /reports/live
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	// Same visibility rule as the list endpoint
	role := middleware.GetRole(r.Context())
	if role != "moderator" && role != "admin" && f.UserID != middleware.GetUserID(r.Context()) {
		approved := StatusApproved
		f.Status = &approved
	}

	// The request context is cancelled as soon as this handler returns,
	// which happens right after the hijack. The subscription has to
	// outlive it, so it runs on its own context cancelled from readPump
	// when the peer goes away.
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := h.service.Watch(ctx, f)
	if err != nil {
		cancel()
		h.serviceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		sub.Close()
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	go h.writePump(conn, sub)
	go h.readPump(conn, sub, cancel)
}

// writePump pushes snapshots and pings until the subscription ends
func (h *LiveHandler) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case snapshot, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and closes the subscription when the
// peer goes away
func (h *LiveHandler) readPump(conn *websocket.Conn, sub *Subscription, cancel context.CancelFunc) {
	defer func() {
		cancel()
		sub.Close()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LiveHandler) serviceError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("Failed to open live subscription")
	response.InternalError(w)
}
