package model

import (
	"sort"
	"time"
)

// Contact is the denormalized 1:1 conversation summary. Exactly one row
// exists per unordered user pair; the canonical ordering UserOne < UserTwo is
// what lets the store enforce that with a plain uniqueness constraint.
//
// The unread counter is directional, stored as one column per side, so a
// reader always picks its own column and mark-all-read resets only the
// caller's side.
type Contact struct {
	UserOne       string    `json:"user_one"`
	UserTwo       string    `json:"user_two"`
	LastMessageID int64     `json:"last_message_id"`
	UserOneUnread int64     `json:"user_one_unread"`
	UserTwoUnread int64     `json:"user_two_unread"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanonicalPair orders two user ids deterministically (lexicographic, the
// same ordering the store's CHECK constraint enforces).
func CanonicalPair(a, b string) (one, two string) {
	p := []string{a, b}
	sort.Strings(p)
	return p[0], p[1]
}

// PairKey derives the order-independent conversation key used for
// notification channels and fanout jobs.
func PairKey(a, b string) string {
	one, two := CanonicalPair(a, b)
	return one + "_" + two
}

// UnreadFor returns the counter belonging to the given side.
func (c *Contact) UnreadFor(user string) int64 {
	switch user {
	case c.UserOne:
		return c.UserOneUnread
	case c.UserTwo:
		return c.UserTwoUnread
	}
	return 0
}

// OtherSide returns the peer of the given user in this contact.
func (c *Contact) OtherSide(user string) string {
	if user == c.UserOne {
		return c.UserTwo
	}
	return c.UserOne
}

// Bump applies a newly committed message: refresh the last-message pointer
// and increment the recipient's side only.
func (c *Contact) Bump(m *Message) {
	c.LastMessageID = m.ID
	c.UpdatedAt = m.Timestamp
	if m.RecipientID == c.UserOne {
		c.UserOneUnread++
	} else if m.RecipientID == c.UserTwo {
		c.UserTwoUnread++
	}
}

// ResetUnread zeroes the given side's counter.
func (c *Contact) ResetUnread(user string) {
	switch user {
	case c.UserOne:
		c.UserOneUnread = 0
	case c.UserTwo:
		c.UserTwoUnread = 0
	}
}
