package chat

// Fanout delivers a payload to a snapshot of clients. Enqueueing to a client
// is non-blocking, so delivery runs inline on the caller: consecutive
// broadcasts reach each client's send queue in broadcast order, which is what
// keeps one sender's messages ordered at every recipient connection. Only the
// drop cleanup (close + unregister, which may touch presence) is offloaded,
// so a dead connection never stalls delivery to siblings.
type Fanout struct {
	drops  chan *Client
	onDrop func(*Client)
}

func NewFanout(dropQueue int, onDrop func(*Client)) *Fanout {
	if dropQueue <= 0 {
		dropQueue = 256
	}
	f := &Fanout{drops: make(chan *Client, dropQueue), onDrop: onDrop}
	go func() {
		for c := range f.drops {
			if f.onDrop != nil {
				f.onDrop(c)
			}
		}
	}()
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	for _, c := range conns {
		if c.TrySend(payload) {
			continue
		}
		select {
		case f.drops <- c:
		default:
			go func(dead *Client) {
				if f.onDrop != nil {
					f.onDrop(dead)
				}
			}(c)
		}
	}
}
