package queue

import (
	"context"

	"github.com/golang/glog"
	"github.com/nats-io/nats.go"
)

// Message is the broker-neutral envelope handlers receive.
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

type Handler func(ctx context.Context, msg Message) error

type Middleware func(Handler) Handler

// Chain wraps h with middlewares, first middleware outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Consumer subscribes handlers. Handler failures are logged, not redelivered
// forever: duplicate fanout would otherwise storm, and jobs are idempotent
// recomputations anyway.
type Consumer struct {
	c   *Client
	mws []Middleware
}

func NewConsumer(c *Client, mws ...Middleware) *Consumer {
	return &Consumer{c: c, mws: mws}
}

// Subscribe joins the queue group on subject so multiple processes share the
// work; an empty group means plain fan-in.
func (cs *Consumer) Subscribe(subject, group string, h Handler) error {
	h = Chain(h, cs.mws...)
	cb := func(m *nats.Msg) {
		msg := Message{
			Subject: m.Subject,
			Data:    append([]byte(nil), m.Data...),
			Header:  headerToMap(m.Header),
		}
		if err := h(context.Background(), msg); err != nil {
			glog.Errorf("[queue] handler subject=%s: %v", m.Subject, err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if group == "" {
		sub, err = cs.c.nc.Subscribe(subject, cb)
	} else {
		sub, err = cs.c.nc.QueueSubscribe(subject, group, cb)
	}
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	cs.c.track(sub)
	return nil
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
