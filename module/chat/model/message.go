package model

import "time"

// Message is the durable chat record. The id is assigned by the store
// (bigserial) and is monotonically increasing; timestamp is server-assigned
// and immutable. IsRead flips through the read-receipt flow only.
type Message struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
}

// PairKey returns the canonical conversation key for the message's two
// parties.
func (m *Message) PairKey() string {
	return PairKey(m.SenderID, m.RecipientID)
}
