package model

// User is the slice of the account row the gateway needs: identity plus
// the display name stamped onto broadcast chat frames.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (*User) TableName() string { return "users" }
