package models

// User is the session user. No authentication is wired, so the API never
// returns one.
type User struct {
	ID    string  `json:"id"`
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

type LogoutResult struct {
	Success bool `json:"success"`
}
