package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// UserId identifies the voter towards the backend. It is either supplied by the server or generated locally.
type UserId int64

// Identity is the information available right after a successful login.
type Identity struct {
	Username string
	Role     Role
	Id       UserId // zero if the server did not supply an id
}

// Session is the locally persisted record of the logged-in identity.
type Session struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Id        UserId    `json:"id"`
	LoginTime time.Time `json:"loginTime"`
}

// NewSession creates a session for the given identity. If the identity carries no id, one is derived from the
// current time in milliseconds. Such ids are not guaranteed to be unique across clients.
func NewSession(identity Identity, now time.Time) *Session {
	id := identity.Id
	if id == 0 {
		id = UserId(now.UnixMilli())
	}

	return &Session{
		Username:  identity.Username,
		Role:      identity.Role,
		Id:        id,
		LoginTime: now,
	}
}

// IsAdmin returns true if the session belongs to an administrator.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// HasIdentity returns true if the session can be used to cast a vote.
func (s *Session) HasIdentity() bool {
	return s != nil && s.Id != 0
}
