package models

type Window struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Number          int     `json:"number"`
	IsActive        bool    `json:"is_active"`
	CurrentUserID   *int64  `json:"current_user_id,omitempty"`
	CurrentUserName *string `json:"current_user_name,omitempty"`
}
