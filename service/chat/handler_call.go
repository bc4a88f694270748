package chat

// callHandler covers the whole signaling family. Each registered instance
// maps one inbound kind to its outbound discriminator; the relay itself is
// identical across the family. Signaling to an absent target is dropped
// silently, never an error back to the caller.
type callHandler struct {
	kind Kind
	out  string
}

func (h *callHandler) Kind() Kind { return h.kind }

func (h *callHandler) Handle(ctx *Context, f *Frame, c *Client) error {
	p, err := f.DecodeCall()
	if err != nil {
		return err
	}
	if p.OtherPersonID == "" || p.OtherPersonID == c.UserID {
		return nil
	}
	ctx.GW.DeliverToUser(p.OtherPersonID, BuildCallFrame(h.out, c.UserID, p))
	return nil
}
