package queue

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

const (
	publishRetryBudget = 5
	publishBackoffCap  = 5 * time.Second
)

// Producer publishes jobs. The enqueue itself retries with bounded
// exponential backoff; once the broker accepts the message, redelivery is the
// consumer side's problem (queue semantics are at-least-once).
type Producer struct {
	c *Client
}

func NewProducer(c *Client) *Producer { return &Producer{c: c} }

// Publish sends data on subject. hdr["Nats-Msg-Id"] doubles as the dedup key
// consumed by the idempotency middleware.
func (p *Producer) Publish(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}
	if len(hdr) > 0 {
		msg.Header = nats.Header{}
		for k, v := range hdr {
			msg.Header.Set(k, v)
		}
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < publishRetryBudget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = p.c.nc.PublishMsg(msg)
		if lastErr == nil {
			return nil
		}
		glog.Warningf("[queue] publish subject=%s attempt=%d: %v", subject, i+1, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > publishBackoffCap {
			backoff = publishBackoffCap
		}
	}
	return lastErr
}
