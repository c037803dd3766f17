package models

import (
	"strings"
	"time"
)

// DMChannel is a private conversation between the session user and one or
// more recipients.
type DMChannel struct {
	ID         ID        `json:"id"`
	Recipients []User    `json:"recipients"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName derives the channel label shown in the DM list: the display
// names of every recipient except the session's own user.
func (ch *DMChannel) DisplayName(selfID ID) string {
	names := make([]string, 0, len(ch.Recipients))
	for _, u := range ch.Recipients {
		if u.ID == selfID {
			continue
		}
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "(you)"
	}
	return strings.Join(names, ", ")
}

// HasRecipient reports whether userID is among the channel's recipients.
func (ch *DMChannel) HasRecipient(userID ID) bool {
	for _, u := range ch.Recipients {
		if u.ID == userID {
			return true
		}
	}
	return false
}
