package core

import "time"

// InactivityWindow is how long a user may go without any broadcast before
// clients stop drawing their cursor. The user stays in the authoritative list
// until an explicit leave or kick.
const InactivityWindow = 5 * time.Minute

type (
	// User is an ephemeral presence record. It is created on a join
	// broadcast and refreshed by every cursor broadcast.
	User struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		Color      string    `json:"color"`
		AvatarURL  string    `json:"avatarUrl,omitempty"`
		Cursor     *Point    `json:"cursor,omitempty"`
		LastActive time.Time `json:"lastActive"`
		Owner      bool      `json:"owner,omitempty"`
	}

	// ChatMessage is one line of ephemeral room chat. The log is
	// append-only; messages are never edited or deleted.
	ChatMessage struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

// Clone returns a copy of the user record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Cursor != nil {
		c := *u.Cursor
		cp.Cursor = &c
	}
	return &cp
}

// Active reports whether the user has broadcast anything within the
// inactivity window, relative to now.
func (u *User) Active(now time.Time) bool {
	return now.Sub(u.LastActive) < InactivityWindow
}
