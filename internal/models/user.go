package models

type User struct {
	ID          ID      `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarHash  *string `json:"avatar_hash,omitempty"`
}
