package notify

import (
	"context"
	"encoding/json"

	"MeetChat/logger"
	"MeetChat/service/storage"
	redissrv "MeetChat/service/storage/redis"
	"MeetChat/tools/safe"
)

// event is the wire shape published on the per-conversation channels by
// handleJob in this package (and by any sibling process in the queue group).
type event struct {
	Type      string           `json:"type"`
	MessageID int64            `json:"message_id"`
	PairKey   string           `json:"pair_key"`
	Sender    string           `json:"sender"`
	Unread    map[string]int64 `json:"unread"`
}

// Relay bridges the pub/sub channels back into live sessions: whichever
// process holds a user's connections pushes the refreshed counter to them.
// Deliver is the gateway's per-user push; it must not block.
type Relay struct {
	deliver func(userID string, unread int64)
}

func NewRelay(deliver func(userID string, unread int64)) *Relay {
	return &Relay{deliver: deliver}
}

// Start pattern-subscribes to every conversation channel and pumps events
// until ctx is done. Without a redis client there is nothing to relay; counters
// still reach clients on their next connect.
func (r *Relay) Start(ctx context.Context) {
	rdb := redissrv.GetRedis()
	if rdb == nil {
		logger.Warnf("[notify] relay disabled, no cache client")
		return
	}
	sub := rdb.PSubscribe(ctx, storage.NotifyChannel("*"))
	safe.Go(func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handle([]byte(msg.Payload))
			}
		}
	})
}

func (r *Relay) handle(raw []byte) {
	var ev event
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Warnf("[notify] relay payload: %v", err)
		return
	}
	for uid, n := range ev.Unread {
		r.deliver(uid, n)
	}
}
