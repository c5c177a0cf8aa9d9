package types

import "time"

// User statuses.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
)

// User is an API account. Password holds the argon2id encoding; TokenHash
// holds the SHA-256 hex of the issued bearer token. Handlers project users
// into response shapes that omit both.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	TokenHash   string     `json:"token_hash,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserView is the wire shape for user reads; it carries no credentials.
type UserView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// View projects the user into its credential-free wire shape.
func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
