package chat

import (
	"context"
)

// markReadHandler zeroes the caller's unread state across all conversations
// and confirms with a fresh notification frame to every live session of the
// user, so other devices drop their stale counter too.
type markReadHandler struct{}

func (markReadHandler) Kind() Kind { return KindMarkRead }

func (markReadHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	rctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := ctx.GW.chat.MarkAllRead(rctx, c.UserID); err != nil {
		return err
	}
	ctx.GW.DeliverToUser(c.UserID, BuildNotification(0))
	return nil
}
