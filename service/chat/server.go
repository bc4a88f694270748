package chat

import (
	"context"
	"time"

	chatmodel "MeetChat/module/chat/model"
	chatsvc "MeetChat/module/chat/service"
	usersvc "MeetChat/module/user/service"
	"MeetChat/tools/security"
)

// Gateway ties the registry, the delivery pool and the frame dispatcher to
// the chat engine. One instance per process, constructed at boot and
// injected into the HTTP layer.
type Gateway struct {
	gwID    string
	jwtOpts security.Options

	reg  *Registry
	pool *Fanout
	disp *Dispatcher

	chat  *chatsvc.Service
	users *usersvc.Service
}

func NewGateway(gwID string, jwtOpts security.Options, chat *chatsvc.Service, users *usersvc.Service) *Gateway {
	g := &Gateway{
		gwID:    gwID,
		jwtOpts: jwtOpts,
		chat:    chat,
		users:   users,
	}
	g.reg = NewRegistry(g.onUserEmpty)
	g.pool = NewFanout(256, g.dropClient)
	g.disp = NewDispatcher()

	g.disp.Register(&sendMessageHandler{})
	g.disp.Register(&typingHandler{})
	g.disp.Register(&callHandler{kind: KindInitiateCall, out: OutIncomingCall})
	g.disp.Register(&callHandler{kind: KindAcceptCall, out: OutCallAccepted})
	g.disp.Register(&callHandler{kind: KindDeclineCall, out: OutCallDeclined})
	g.disp.Register(&callHandler{kind: KindCancelCall, out: OutCallCancelled})
	g.disp.Register(&callHandler{kind: KindBusy, out: OutBusy})
	g.disp.Register(&markReadHandler{})

	chat.AddPostCommit(g.deliverCommitted)
	return g
}

// deliverCommitted pushes a committed message to every live session of both
// parties. Registered as a post-commit hook so socket sends and REST sends
// share one delivery path.
func (g *Gateway) deliverCommitted(_ context.Context, m *chatmodel.Message) {
	g.DeliverToUser(m.SenderID, BuildChatMessage(m, m.SenderID))
	g.DeliverToUser(m.RecipientID, BuildChatMessage(m, m.RecipientID))
}

// DeliverToUser fans a payload out to every live session of the user via the
// worker pool; zero sessions is a no-op (silent drop).
func (g *Gateway) DeliverToUser(userID string, payload []byte) {
	g.pool.Broadcast(g.reg.ListUser(userID), payload)
}

// dropClient removes a connection that failed delivery (closed or
// backpressured) so it cannot block its siblings again.
func (g *Gateway) dropClient(c *Client) {
	c.Close()
	g.reg.Unregister(c.UserID, c.ConnID)
}

// onUserEmpty is the registry's last-connection-gone hook: flip presence to
// offline immediately so it cannot go stale.
func (g *Gateway) onUserEmpty(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	g.users.Offline(ctx, userID)
}
