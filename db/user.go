package db

import (
	"time"

	"github.com/google/uuid"
)

// User owns medications and receives dose reminders. PushoverDeviceTokens
// maps a channel name to the pushover device token reminders go to.
type User struct {
	ID                   uuid.UUID         `json:"id"`
	Name                 string            `json:"name"`
	PushoverDeviceTokens map[string]string `json:"pushover_device_tokens"`
	CreatedAt            time.Time         `json:"created_at"`
}

func (u *User) badgerKey() []byte {
	return badgerKeyForUsername(u.Name)
}

func badgerKeyForUsername(username string) []byte {
	return append([]byte("user:"), []byte(username)...)
}
