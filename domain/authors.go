package domain

import (
	"fmt"
	"time"
)

// Author is a locally hosted profile. Id is a URI and doubles as the
// globally comparable identity; remote authors are referenced by URI
// only and never stored here.
type Author struct {
	Id           string // http://host/author/<hex>/
	Username     string
	DisplayName  string
	Host         string
	Github       string
	Bio          string
	PasswordHash string
	CreatedAt    time.Time
}

func (a *Author) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tUsername: %s \n\tHost: %s \n\tCreatedAt: %s)", a.Id, a.Username, a.Host, a.CreatedAt)
}
