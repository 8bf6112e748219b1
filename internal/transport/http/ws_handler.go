package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
	"github.com/vovakirdan/roomchat-server/internal/ticket"
	"github.com/vovakirdan/roomchat-server/internal/utils"
)

const defaultWriteTimeout = 5 * time.Second

var errDropped = errors.New("connection dropped by server")

// WSHandler upgrades HTTP connections and bridges them to core sessions.
type WSHandler struct {
	coord   *core.Coordinator
	tickets *ticket.Issuer
	cfg     *config.Config
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(coord *core.Coordinator, tickets *ticket.Issuer, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{coord: coord, tickets: tickets, cfg: cfg, log: logger}
}

// Serve handles GET /ws. The client joins with an explicit join message.
func (h *WSHandler) Serve(c *gin.Context) {
	h.serve(rawWriter(c), c.Request, nil)
}

// ServeRoom handles GET /rooms/:id and joins on connect, either as ?username=
// or with a ticket from the REST join endpoint.
func (h *WSHandler) ServeRoom(c *gin.Context) {
	roomID := c.Param("id")
	name := c.Query("username")

	if tok := c.Query("ticket"); tok != "" {
		claims, err := h.tickets.Parse(tok)
		if err != nil {
			h.log.Debug().Err(err).Str("room_id", roomID).Msg("rejected ws ticket")
			c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "invalid ticket"})
			return
		}
		if claims.RoomID != roomID {
			c.JSON(stdhttp.StatusUnauthorized, ErrorResponse{Error: "ticket is for another room"})
			return
		}
		name = claims.Name
	}
	if name == "" {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "username or ticket is required"})
		return
	}

	h.serve(rawWriter(c), c.Request, &core.Command{Kind: core.CommandJoinRoom, Room: roomID, Name: name})
}

// rawWriter returns the net/http writer behind gin's wrapper. gin refuses to
// hijack a response whose header it has already flushed, which Accept does.
func rawWriter(c *gin.Context) stdhttp.ResponseWriter {
	if u, ok := c.Writer.(interface{ Unwrap() stdhttp.ResponseWriter }); ok {
		return u.Unwrap()
	}
	return c.Writer
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, initial *core.Command) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := core.NewClient(utils.NewID(), h.cfg.SendBuffer)
	session := h.coord.Connect(client)
	defer h.coord.Disconnect(session)

	log := h.log.With().Str("conn_id", client.ID()).Logger()
	log.Debug().Str("remote", r.RemoteAddr).Msg("ws connected")

	if initial != nil {
		if err := h.coord.Handle(ctx, session, *initial); err != nil {
			h.flush(ctx, conn, client)
			conn.Close(websocket.StatusPolicyViolation, "join failed")
			return
		}
	}

	limiter := newRateLimiter(h.cfg.MessagesPerMinute)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session, client, limiter, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch closeStatus := websocket.CloseStatus(err); {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	case closeStatus == websocket.StatusNormalClosure, closeStatus == websocket.StatusGoingAway:
	case errors.Is(err, errDropped):
		status, reason = websocket.StatusPolicyViolation, "dropped"
	default:
		status, reason = websocket.StatusInternalError, "connection error"
		log.Warn().Err(err).Msg("ws connection closed with error")
	}

	log.Debug().Int("status", int(status)).Msg("ws disconnected")
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(
	ctx context.Context,
	conn *websocket.Conn,
	session *core.Session,
	client *core.Client,
	limiter *rateLimiter,
	log *zerolog.Logger,
) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.reject(client, core.BadRequest("expected a text frame"), log)
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.reject(client, core.BadRequest("malformed envelope"), log)
			continue
		}

		cmd, err := inboundToCommand(inbound)
		if err != nil {
			h.reject(client, err, log)
			continue
		}
		if cmd.Kind == core.CommandSendRoomMessage && !limiter.allow() {
			h.reject(client, core.ErrRateLimited, log)
			continue
		}

		if err := h.coord.Handle(ctx, session, cmd); err != nil {
			if errors.Is(err, core.ErrConnClosed) {
				return errDropped
			}
			log.Debug().Err(err).Str("type", inbound.Type).Msg("command rejected")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	var ping <-chan time.Time
	if h.cfg.PingInterval > 0 {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case event := <-client.Events():
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				log.Error().Err(err).Stringer("event", event.Kind).Msg("write ws event")
				return err
			}
		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, h.writeTimeout())
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		case <-client.Done():
			return errDropped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, h.writeTimeout())
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}

// flush writes whatever is already queued for client.
func (h *WSHandler) flush(ctx context.Context, conn *websocket.Conn, client *core.Client) {
	for {
		select {
		case event := <-client.Events():
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (h *WSHandler) reject(client *core.Client, err error, log *zerolog.Logger) {
	if sendErr := client.Send(core.ErrorEvent(err)); sendErr != nil {
		log.Debug().Err(sendErr).Msg("failed to queue error event")
	}
}

func (h *WSHandler) writeTimeout() time.Duration {
	if h.cfg.WriteTimeout > 0 {
		return h.cfg.WriteTimeout
	}
	return defaultWriteTimeout
}
