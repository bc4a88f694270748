package chat

// typingHandler relays typing indicators. Pure fan-out: nothing touches the
// store, an offline recipient drops the frame silently.
type typingHandler struct{}

func (typingHandler) Kind() Kind { return KindTyping }

func (typingHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	p, err := f.DecodeTyping()
	if err != nil {
		return err
	}
	if p.RecipientID == "" || p.RecipientID == c.UserID {
		return nil
	}
	ctx.GW.DeliverToUser(p.RecipientID, BuildTypingStatus(c.UserID, p.IsTyping))
	return nil
}
