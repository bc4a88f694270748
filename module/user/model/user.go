package model

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User identity is owned by the identity collaborator; this core only reads
// it and mutates the presence attributes on connect/disconnect.
type User struct {
	ID        string    `json:"id"`
	UUID      string    `json:"uuid"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"last_seen"`
}
