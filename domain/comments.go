package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment on a post. AuthorId may be a remote author we cannot resolve
// locally; RemoteCommentAuthor caches what we last knew about them.
// The only uuid-keyed entity: comments have no directly addressable URI.
type Comment struct {
	Id          uuid.UUID
	PostId      string
	AuthorId    string
	Comment     string
	ContentType string
	Published   time.Time
}

// RemoteCommentAuthor is a read-through cache row for a remote comment
// author, refreshed opportunistically on every new comment from that
// identity. Never authoritative.
type RemoteCommentAuthor struct {
	AuthorId    string // URI, primary key
	Host        string
	DisplayName string
	Github      string
}
