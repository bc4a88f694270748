package chat

import (
	"context"
	"time"
)

const handleTimeout = 10 * time.Second

// sendMessageHandler commits a message through the engine. Delivery to both
// session groups happens in the gateway's post-commit hook, so commit always
// precedes any fanout. The sender's sessions (including the originating one)
// see isSent=true; the recipient's see isSent=false.
type sendMessageHandler struct{}

func (sendMessageHandler) Kind() Kind { return KindSendMessage }

func (sendMessageHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	p, err := f.DecodeSendMessage()
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	_, err = ctx.GW.chat.RecordMessage(rctx, c.UserID, p.RecipientID, p.Message)
	return err
}
