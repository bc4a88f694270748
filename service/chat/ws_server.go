package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"MeetChat/logger"
	"MeetChat/tools/errs"
	"MeetChat/tools/ids"
	"MeetChat/tools/safe"
	"MeetChat/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
)

const sendQueueSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser origins are enforced by the middleware layer in front of the
	// router; the upgrader itself accepts what got that far.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsToken pulls the bearer token from the query string (browsers cannot set
// headers on a websocket handshake) or from the Authorization header.
func wsToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}

// HandleWS is the websocket entry: GET /ws/chat/:userID. Identity is settled
// before the upgrade; a bad token or unknown user never gets a socket.
func (g *Gateway) HandleWS(c *gin.Context) {
	userID := c.Param("userID")

	sub, err := security.VerifySubject(g.jwtOpts, wsToken(c))
	if err != nil || sub == "" || sub != userID {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	user, err := g.users.Resolve(ctx, userID)
	cancel()
	if err != nil {
		if pkgerrors.Is(err, errs.ErrUserNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
		} else {
			c.AbortWithStatus(http.StatusServiceUnavailable)
		}
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade user=%s: %v", userID, err)
		return
	}

	client := NewClient(ids.GenerateString(), user.ID, ws, sendQueueSize)
	g.reg.Register(client.UserID, client)
	safe.Go(client.WritePump)

	onlineCtx, onlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
	g.users.Online(onlineCtx, client.UserID)
	if n, err := g.chat.UnreadCount(onlineCtx, client.UserID); err == nil {
		client.TrySend(BuildNotification(n))
	}
	onlineCancel()

	g.readLoop(client)
}

// readLoop owns the socket's read side. Frames dispatch inline, one at a
// time, so a connection's frames apply in arrival order. Handler errors go
// back as error frames and the connection stays open; only read errors
// (peer gone) end the session.
func (g *Gateway) readLoop(c *Client) {
	defer func() {
		g.reg.Unregister(c.UserID, c.ConnID)
		c.Close()
	}()

	dctx := &Context{GW: g}
	for {
		_, raw, err := c.WS.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Infof("[ws] read conn=%s user=%s: %v", c.ConnID, c.UserID, err)
			}
			return
		}

		f, err := ParseFrame(raw)
		if err != nil {
			c.TrySend(BuildErrorFrame(err))
			continue
		}
		if err := g.disp.Dispatch(dctx, f, c); err != nil {
			logger.Infof("[ws] handle conn=%s user=%s type=%s: %v", c.ConnID, c.UserID, f.Kind, err)
			c.TrySend(BuildErrorFrame(err))
		}
	}
}
