package models

// User is the account owner as returned by the auth endpoints.
type User struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Identity is the process-wide session state. The zero value is anonymous.
type Identity struct {
	Authenticated bool
	User          *User
}

// Authenticated builds the identity for a logged-in user.
func Authenticated(u User) Identity {
	return Identity{Authenticated: true, User: &u}
}

// Email returns the user's email or "" when anonymous.
func (i Identity) Email() string {
	if i.User == nil {
		return ""
	}
	return i.User.Email
}
