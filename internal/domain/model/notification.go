package model

import "time"

// Notification is a message upstream addressed to the account behind the
// configured API key.
type Notification struct {
	ID      string     `json:"id"`
	Text    string     `json:"text"`
	Created *time.Time `json:"created,omitempty"`
	Read    bool       `json:"read"`
	WebLink string     `json:"weblink,omitempty"`
}
