// Package auth provides the injected authentication service: a credential
// check plus an in-memory session store. The storage and query layers
// never see any of this; they only receive a resolved identity from the
// HTTP layer.
package auth

import "crypto/subtle"

// Roles known to the application.
const (
	RoleAdmin   = "admin"   // full CRUD
	RoleRegular = "regular" // no delete
)

// Identity is a resolved, authenticated user.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// User is one entry of the configured credential table.
type User struct {
	ID       int
	Username string
	Password string
	Role     string
}

// Authenticator validates credentials and resolves an identity.
type Authenticator interface {
	Authenticate(username, password string) (Identity, bool)
}

// Static authenticates against a fixed credential table loaded from
// configuration.
type Static struct {
	users []User
}

// NewStatic creates an authenticator over the given credential table.
func NewStatic(users []User) *Static {
	return &Static{users: users}
}

// Authenticate checks username/password against the table. Password
// comparison is constant-time.
func (s *Static) Authenticate(username, password string) (Identity, bool) {
	for _, u := range s.users {
		if u.Username != username {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
			return Identity{ID: u.ID, Username: u.Username, Role: u.Role}, true
		}
		return Identity{}, false
	}
	return Identity{}, false
}
