package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MeetChat/logger"
	chatmodel "MeetChat/module/chat/model"
	"MeetChat/service/queue"
	"MeetChat/service/storage"
	"MeetChat/tools/safe"
)

const (
	// SubjectMessageCommitted carries post-commit fanout jobs.
	SubjectMessageCommitted = "chat.message.committed"
	// queueGroup shares job processing across gateway processes.
	queueGroup = "chat-notify"
)

// Job is the unit of post-commit work: recompute both parties' unread
// counters from ground truth and notify out-of-process listeners.
type Job struct {
	PairKey     string `json:"pair_key"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	MessageID   int64  `json:"message_id"`
}

// Source is what the worker needs from the chat engine: authoritative
// recompute (never a blind increment) and message lookup for the payload.
type Source interface {
	RecomputeUnread(ctx context.Context, userID string, ttl time.Duration) (int64, error)
	MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error)
}

// Notifier decouples "message committed" from "derived state refreshed".
// Enqueue is fire-and-forget for the send path; processing is idempotent so
// at-least-once delivery is safe.
type Notifier struct {
	prod *queue.Producer
	src  Source
}

func New(prod *queue.Producer, src Source) *Notifier {
	return &Notifier{prod: prod, src: src}
}

// Enqueue is registered as a post-commit hook. It never blocks or fails the
// send: publish retries with backoff inside the producer, and a spent retry
// budget is logged and absorbed (the next read recomputes on cache miss).
func (n *Notifier) Enqueue(_ context.Context, m *chatmodel.Message) {
	job := Job{
		PairKey:     m.PairKey(),
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		MessageID:   m.ID,
	}
	b, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("[notify] marshal job msg=%d: %v", m.ID, err)
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		hdr := map[string]string{"Nats-Msg-Id": fmt.Sprintf("msg-%d", m.ID)}
		if err := n.prod.Publish(ctx, SubjectMessageCommitted, b, hdr); err != nil {
			logger.Errorf("[notify] enqueue msg=%d: %v", m.ID, err)
		}
	})
}

// Start subscribes the worker on the shared queue group.
func (n *Notifier) Start(cons *queue.Consumer) error {
	return cons.Subscribe(SubjectMessageCommitted, queueGroup, n.handleJob)
}

func (n *Notifier) handleJob(ctx context.Context, msg queue.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return fmt.Errorf("unmarshal job: %w", err)
	}

	// Recompute from the durable store for both sides; running this twice
	// yields the same result, which is what makes duplicates harmless.
	unread := map[string]int64{}
	for _, uid := range []string{job.SenderID, job.RecipientID} {
		cnt, err := n.src.RecomputeUnread(ctx, uid, storage.UnreadTTL)
		if err != nil {
			logger.Warnf("[notify] recompute user=%s msg=%d: %v", uid, job.MessageID, err)
			continue
		}
		unread[uid] = cnt
	}

	payload := map[string]any{
		"type":       "new_message",
		"message_id": job.MessageID,
		"pair_key":   job.PairKey,
		"sender":     job.SenderID,
		"unread":     unread,
	}
	if m, err := n.src.MessageByID(ctx, job.MessageID); err == nil {
		payload["content"] = m.Content
		payload["timestamp"] = m.Timestamp.Format(time.RFC3339)
	} else {
		logger.Warnf("[notify] message lookup msg=%d: %v", job.MessageID, err)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	storage.Publish(ctx, storage.NotifyChannel(job.PairKey), b)
	return nil
}
