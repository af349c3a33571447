package push

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/config"
	"github.com/wonkchat/wonk/internal/domain"
	"github.com/wonkchat/wonk/internal/gateway"
)

type Controller struct {
	gw  *gateway.Service
	cfg *config.Config
}

func NewController(gw *gateway.Service, cfg *config.Config) *Controller {
	return &Controller{gw: gw, cfg: cfg}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleGateway upgrades the request and binds the connection to the
// authenticated user. Registering replaces any previous connection for
// the same user; the displaced one is closed here, at the transport
// layer that owns it.
func (ctl *Controller) HandleGateway(ctx context.Context, c *gin.Context, user domain.UserIdentity) {
	log.Info().Str("module", "push").Str("user", string(user.ID)).Msg("new gateway connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "push").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	conn := newConn(ws, ctl.cfg.SendBuffer)
	if prev := ctl.gw.Connected(user, conn); prev != nil {
		prev.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, user, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "push").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "push").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains inbound frames. The push channel is server-to-client;
// client frames are only read to detect disconnects and service pongs.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, user domain.UserIdentity, c *Conn) {
	defer func() {
		log.Info().Str("module", "push").Str("user", string(user.ID)).Msg("readPump closing")
		ctl.gw.Disconnected(user, c)
		c.Close()
		cancel()
	}()

	pongWait := ctl.cfg.PingPeriod + ctl.cfg.WriteTimeout
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.ws.ReadMessage(); err != nil {
				log.Info().Err(err).Str("module", "push").Str("user", string(user.ID)).Msg("readPump read error")
				return
			}
		}
	}
}
